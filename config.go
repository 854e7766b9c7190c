package spacetraveling

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog"
)

// SiteConfig holds all configuration for a spacetraveling site.
type SiteConfig struct {
	Name        string `yaml:"name" env:"SITE_NAME" env-default:"spacetraveling"`
	URL         string `yaml:"url" env:"SITE_URL" env-default:"http://localhost:3000"` // canonical URL
	Description string `yaml:"description" env:"SITE_DESCRIPTION"`                     // RSS and meta tags
	Author      string `yaml:"author" env:"SITE_AUTHOR"`                               // JSON-LD publisher

	LogLevel     string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Addr         string `yaml:"addr" env:"ADDR" env-default:":3000"`
	DatabasePath string `yaml:"database_path" env:"DATABASE_PATH" env-default:"data/snapshot.db"`

	SessionSecret string `yaml:"session_secret" env:"SESSION_SECRET"` // Required
	CookieSecure  bool   `yaml:"cookie_secure" env:"COOKIE_SECURE"`   // Set true for HTTPS

	PostCacheTTL time.Duration `yaml:"post_cache_ttl" env:"POST_CACHE_TTL" env-default:"5m"`

	Prismic PrismicConfig `yaml:"prismic"`
	Feed    FeedConfig    `yaml:"feed"`
}

// PrismicConfig points at the headless CMS repository.
type PrismicConfig struct {
	Endpoint     string        `yaml:"endpoint" env:"PRISMIC_ENDPOINT"` // e.g. https://repo.cdn.prismic.io/api/v2
	AccessToken  string        `yaml:"access_token" env:"PRISMIC_ACCESS_TOKEN"`
	DocumentType string        `yaml:"document_type" env:"PRISMIC_DOCUMENT_TYPE" env-default:"posts"`
	PageSize     int           `yaml:"page_size" env:"PRISMIC_PAGE_SIZE" env-default:"1"`
	Timeout      time.Duration `yaml:"timeout" env:"PRISMIC_TIMEOUT" env-default:"15s"`
}

// FeedConfig tunes the per-visitor listing views.
type FeedConfig struct {
	ViewTTL     time.Duration `yaml:"view_ttl" env:"FEED_VIEW_TTL" env-default:"30m"`        // Idle views are dropped after this
	LoadTimeout time.Duration `yaml:"load_timeout" env:"FEED_LOAD_TIMEOUT" env-default:"10s"` // Bound on one "load more"
	LoadLimit   int           `yaml:"load_limit" env:"FEED_LOAD_LIMIT" env-default:"30"`      // Load-more requests per IP per minute
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "spacetraveling"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/snapshot.db"
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.Prismic.DocumentType == "" {
		c.Prismic.DocumentType = "posts"
	}
	if c.Prismic.PageSize <= 0 {
		c.Prismic.PageSize = 1
	}
	if c.Prismic.Timeout == 0 {
		c.Prismic.Timeout = 15 * time.Second
	}
	if c.Feed.ViewTTL == 0 {
		c.Feed.ViewTTL = 30 * time.Minute
	}
	if c.Feed.LoadTimeout == 0 {
		c.Feed.LoadTimeout = 10 * time.Second
	}
	if c.Feed.LoadLimit <= 0 {
		c.Feed.LoadLimit = 30
	}
}

func (c *SiteConfig) validate() error {
	if c.Prismic.Endpoint == "" {
		return fmt.Errorf("prismic.endpoint is required")
	}
	if c.Prismic.PageSize > 100 {
		return fmt.Errorf("prismic.page_size must be <= 100")
	}
	if c.PostCacheTTL < 0 {
		return fmt.Errorf("post_cache_ttl must be >= 0")
	}
	return nil
}

// LoadConfig reads configuration in priority order: the explicit path,
// then CONFIG_PATH, then ./local.yaml, then the environment alone.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig

	switch {
	case path != "":
	case os.Getenv("CONFIG_PATH") != "":
		path = os.Getenv("CONFIG_PATH")
	default:
		if _, err := os.Stat("local.yaml"); err == nil {
			path = "local.yaml"
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return cfg, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithLogger replaces the logger built from Config.LogLevel.
func WithLogger(l zerolog.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}
