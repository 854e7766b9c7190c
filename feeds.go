package spacetraveling

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eringen/spacetraveling/feed"
)

// FeedRegistry keeps one feed.Feed per listing view. A view is identified by
// a random ID stored in the visitor's session and is dropped after it has
// been idle for the TTL.
type FeedRegistry struct {
	mu    sync.Mutex
	views map[uuid.UUID]*feedView
	ttl   time.Duration
	now   func() time.Time
}

type feedView struct {
	feed    *feed.Feed
	touched time.Time
}

// NewFeedRegistry creates an empty registry whose views expire after ttl.
func NewFeedRegistry(ttl time.Duration) *FeedRegistry {
	return &FeedRegistry{
		views: make(map[uuid.UUID]*feedView),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Open registers f as a new view and returns its ID.
func (r *FeedRegistry) Open(f *feed.Feed) uuid.UUID {
	id := uuid.New()
	r.mu.Lock()
	r.views[id] = &feedView{feed: f, touched: r.now()}
	r.mu.Unlock()
	return id
}

// Get returns the feed of view id and marks it as used.
func (r *FeedRegistry) Get(id uuid.UUID) (*feed.Feed, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[id]
	if !ok {
		return nil, false
	}
	if r.now().Sub(v.touched) >= r.ttl {
		delete(r.views, id)
		return nil, false
	}
	v.touched = r.now()
	return v.feed, true
}

// Close drops view id.
func (r *FeedRegistry) Close(id uuid.UUID) {
	r.mu.Lock()
	delete(r.views, id)
	r.mu.Unlock()
}

// Len returns the number of open views.
func (r *FeedRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Sweep removes every view idle for longer than the TTL and returns how many
// were removed.
func (r *FeedRegistry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, v := range r.views {
		if !v.touched.After(cutoff) {
			delete(r.views, id)
			n++
		}
	}
	return n
}

// StartCleanup sweeps expired views every interval until the returned stop
// function is called.
func (r *FeedRegistry) StartCleanup(interval time.Duration) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				r.Sweep()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
