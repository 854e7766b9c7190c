// Package spacetraveling is a server-rendered blog front-end for a Prismic
// repository, built with Go, Echo, and templ.
//
// It renders the post listing with a "load more" control backed by one
// feed.Feed per visitor, post-detail pages, RSS and a sitemap. Content read
// from the CMS is cached in memory and snapshotted to SQLite so the site keeps
// serving when the CMS is unreachable.
//
// Templates are supplied through ViewFuncs; the app owns handlers,
// middleware and content loading.
package spacetraveling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/eringen/spacetraveling/feed"
)

// ViewFuncs holds the templ components the app calls when rendering pages.
type ViewFuncs struct {
	Home        func(listing Listing, meta PageMeta, csrfToken string) templ.Component
	FeedItems   func(items []feed.Item, hasMore bool, csrfToken string) templ.Component
	LoadError   func(csrfToken string) templ.Component
	Post        func(post Post, meta PageMeta) templ.Component
	NotFound    func() templ.Component
	ServerError func() templ.Component
}

// App is the central spacetraveling application. It wires together the CMS
// source, cache, snapshot store, feed views, handlers and middleware.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Logger zerolog.Logger
	Store  *Store
	Cache  *PostCache
	Feeds  *FeedRegistry
	Views  ViewFuncs

	source       *PostSource
	loadLimiter  *LoadLimiter
	customRoutes []func(*App)
	staticDir    string
	stops        []func()
}

// New creates a new App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config:    cfg,
		Echo:      e,
		Logger:    NewLogger(cfg.LogLevel, nil),
		Views:     views,
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Setup opens the store, builds the CMS source and cache, and registers
// middleware and routes. Start calls it; tests call it directly.
func (a *App) Setup() error {
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("spacetraveling: SessionSecret is required")
	}
	if err := a.Config.validate(); err != nil {
		return fmt.Errorf("spacetraveling: %w", err)
	}

	source, err := NewPostSource(a.Config.Prismic)
	if err != nil {
		return fmt.Errorf("spacetraveling: init prismic: %w", err)
	}
	a.source = source

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("spacetraveling: init store: %w", err)
	}
	a.Store = store

	a.Cache = NewPostCache(a.source, a.Store, a.Config.PostCacheTTL, a.Logger,
		WithLoadTimeout(a.Config.Prismic.Timeout))

	a.Feeds = NewFeedRegistry(a.Config.Feed.ViewTTL)
	a.stops = append(a.stops, a.Feeds.StartCleanup(time.Minute))

	a.loadLimiter = NewLoadLimiter(a.Config.Feed.LoadLimit, time.Minute)
	a.stops = append(a.stops, a.loadLimiter.StartCleanup())

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start sets the app up and serves HTTP until Shutdown is called.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	a.Logger.Info().Str("addr", a.Config.Addr).Str("cms", a.Config.Prismic.Endpoint).Msg("listening")
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	return errors.Join(err, a.Close())
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Embedded framework assets fall through to the user's static dir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/feed.js", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))

	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.POST("/posts/more/", a.handleLoadMore)
	e.GET("/post/:uid/", a.handlePost)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	for _, stop := range a.stops {
		stop()
	}
	a.stops = nil
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
