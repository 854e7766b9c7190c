package spacetraveling

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/eringen/spacetraveling/feed"
)

// ContentSource is where the cache loads fresh content from.
type ContentSource interface {
	Listing(ctx context.Context) (feed.State, error)
	Post(ctx context.Context, uid string) (Post, error)
}

const (
	defaultLoadTimeout = 15 * time.Second
	defaultStaleTTL    = 30 * time.Second
)

// PostCache is an in-memory cache of the initial listing and of post pages
// with a TTL. Fresh content is written through to the Store; when the source
// fails, the last stored snapshot is served instead and kept for a short
// stale TTL so an outage does not make every request wait on the source.
type PostCache struct {
	source      ContentSource
	store       *Store
	ttl         time.Duration
	staleTTL    time.Duration
	loadTimeout time.Duration
	log         zerolog.Logger
	group       singleflight.Group

	mu      sync.RWMutex
	listing *cachedListing
	posts   map[string]cachedPost
}

type cachedListing struct {
	state   feed.State
	expires time.Time
}

type cachedPost struct {
	post    Post
	expires time.Time
}

// CacheOption configures a PostCache.
type CacheOption func(*PostCache)

// WithLoadTimeout bounds a single load from the source. Loads are shared by
// every waiting request, so they do not follow any one request's context.
func WithLoadTimeout(d time.Duration) CacheOption {
	return func(c *PostCache) { c.loadTimeout = d }
}

// WithStaleTTL sets how long a snapshot served during a source failure is
// reused before the source is tried again.
func WithStaleTTL(d time.Duration) CacheOption {
	return func(c *PostCache) { c.staleTTL = d }
}

// NewPostCache creates a PostCache backed by source, persisting to store.
func NewPostCache(source ContentSource, store *Store, ttl time.Duration, log zerolog.Logger, opts ...CacheOption) *PostCache {
	c := &PostCache{
		source:      source,
		store:       store,
		ttl:         ttl,
		staleTTL:    defaultStaleTTL,
		loadTimeout: defaultLoadTimeout,
		log:         log,
		posts:       make(map[string]cachedPost),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.listing = nil
	c.posts = make(map[string]cachedPost)
	c.mu.Unlock()
}

// load runs fn once per key across concurrent callers. fn gets a context
// detached from the callers' cancellation; each caller still stops waiting
// when its own ctx is done.
func (c *PostCache) load(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		lctx := context.WithoutCancel(ctx)
		if c.loadTimeout > 0 {
			var cancel context.CancelFunc
			lctx, cancel = context.WithTimeout(lctx, c.loadTimeout)
			defer cancel()
		}
		return fn(lctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// staleExpiry is when content served from the snapshot should be retried.
func (c *PostCache) staleExpiry() time.Time {
	return time.Now().Add(min(c.staleTTL, c.ttl))
}

// Listing returns the initial listing state.
func (c *PostCache) Listing(ctx context.Context) (feed.State, error) {
	c.mu.RLock()
	if l := c.listing; l != nil && time.Now().Before(l.expires) {
		c.mu.RUnlock()
		return l.state, nil
	}
	c.mu.RUnlock()

	v, err := c.load(ctx, "listing", func(ctx context.Context) (any, error) {
		st, err := c.source.Listing(ctx)
		if err != nil {
			return c.staleListing(err)
		}
		if err := c.store.SaveListing(st); err != nil {
			c.log.Warn().Err(err).Msg("save listing snapshot")
		}
		c.mu.Lock()
		c.listing = &cachedListing{state: st, expires: time.Now().Add(c.ttl)}
		c.mu.Unlock()
		return st, nil
	})
	if err != nil {
		return feed.State{}, err
	}
	return v.(feed.State), nil
}

func (c *PostCache) staleListing(cause error) (feed.State, error) {
	st, err := c.store.Listing()
	if err != nil {
		if errors.Is(err, ErrNoSnapshot) {
			return feed.State{}, cause
		}
		return feed.State{}, errors.Join(cause, err)
	}
	c.log.Warn().Err(cause).Int("items", st.Len()).Msg("cms unavailable, serving listing snapshot")
	c.mu.Lock()
	c.listing = &cachedListing{state: st, expires: c.staleExpiry()}
	c.mu.Unlock()
	return st, nil
}

// GetPost returns a post by uid, or ErrNotFound.
func (c *PostCache) GetPost(ctx context.Context, uid string) (Post, error) {
	c.mu.RLock()
	if p, ok := c.posts[uid]; ok && time.Now().Before(p.expires) {
		c.mu.RUnlock()
		return p.post, nil
	}
	c.mu.RUnlock()

	v, err := c.load(ctx, "post:"+uid, func(ctx context.Context) (any, error) {
		p, err := c.source.Post(ctx, uid)
		if errors.Is(err, ErrNotFound) {
			return Post{}, err
		}
		if err != nil {
			stale, serr := c.store.GetPost(uid)
			if serr != nil {
				return Post{}, err
			}
			c.log.Warn().Err(err).Str("uid", uid).Msg("cms unavailable, serving post snapshot")
			c.mu.Lock()
			c.posts[uid] = cachedPost{post: stale, expires: c.staleExpiry()}
			c.mu.Unlock()
			return stale, nil
		}
		if err := c.store.SavePost(p); err != nil {
			c.log.Warn().Err(err).Str("uid", uid).Msg("save post snapshot")
		}
		c.mu.Lock()
		c.posts[uid] = cachedPost{post: p, expires: time.Now().Add(c.ttl)}
		c.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return Post{}, err
	}
	return v.(Post), nil
}
