// Package feed holds the paginated post listing shown on the home page.
//
// A State is an ordered list of items plus a cursor to the next page. It is
// an immutable value: LoadNextPage returns a new State and leaves its input
// untouched. Feed owns one State for one view and allows at most one load in
// flight at a time.
//
// Items are appended as the source returns them. No deduplication is done
// across pages, so overlapping pages from the source render twice.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrInvalidState is returned when a load is requested but the feed has
	// no further pages.
	ErrInvalidState = errors.New("feed: no further pages")

	// ErrLoadInProgress is returned when a load is requested while another
	// load on the same Feed has not settled yet.
	ErrLoadInProgress = errors.New("feed: load already in progress")
)

// FetchError reports a failed page fetch: transport failure, non-success
// response or a body that does not parse. Err is the underlying cause.
type FetchError struct {
	Cursor string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("feed: fetch %s: %v", e.Cursor, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Item is one post in the listing.
type Item struct {
	UID                  string
	FirstPublicationDate *time.Time
	Title                string
	Subtitle             string
	Author               string
}

// Page is the result of dereferencing a cursor. A nil NextCursor means the
// source has no further pages.
type Page struct {
	Items      []Item
	NextCursor *string
}

// PageFetcher dereferences a next-page cursor against the content source.
type PageFetcher interface {
	FetchPage(ctx context.Context, cursor string) (Page, error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc func(ctx context.Context, cursor string) (Page, error)

// FetchPage calls f(ctx, cursor).
func (f PageFetcherFunc) FetchPage(ctx context.Context, cursor string) (Page, error) {
	return f(ctx, cursor)
}

// State is an ordered list of items and the cursor to the page after them.
type State struct {
	items []Item
	next  *string
}

// NewState returns a State holding a copy of items. An empty next cursor is
// treated as no further pages.
func NewState(items []Item, next *string) State {
	return State{
		items: append([]Item(nil), items...),
		next:  normalizeCursor(next),
	}
}

// Items returns a copy of the items in display order.
func (s State) Items() []Item {
	return append([]Item(nil), s.items...)
}

// Len returns the number of items.
func (s State) Len() int { return len(s.items) }

// NextCursor returns the next-page cursor and whether one exists.
func (s State) NextCursor() (string, bool) {
	if s.next == nil {
		return "", false
	}
	return *s.next, true
}

// HasMore reports whether another page can be loaded.
func (s State) HasMore() bool { return s.next != nil }

// LoadNextPage fetches the page behind s's cursor and returns s with the new
// items appended and the cursor replaced by the one the source returned.
//
// On any error the returned State is s itself.
func LoadNextPage(ctx context.Context, fetcher PageFetcher, s State) (State, error) {
	cursor, ok := s.NextCursor()
	if !ok {
		return s, ErrInvalidState
	}

	page, err := fetcher.FetchPage(ctx, cursor)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return s, err
		}
		return s, &FetchError{Cursor: cursor, Err: err}
	}

	items := make([]Item, 0, len(s.items)+len(page.Items))
	items = append(items, s.items...)
	items = append(items, page.Items...)

	return State{items: items, next: normalizeCursor(page.NextCursor)}, nil
}

func normalizeCursor(c *string) *string {
	if c == nil || *c == "" {
		return nil
	}
	v := *c
	return &v
}

// Option configures a Feed.
type Option func(*Feed)

// WithTimeout bounds every LoadMore call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(f *Feed) {
		f.timeout = d
	}
}

// Feed owns the State of one listing view.
type Feed struct {
	fetcher PageFetcher
	timeout time.Duration

	mu       sync.Mutex
	state    State
	inFlight bool
}

// New creates a Feed starting from initial.
func New(fetcher PageFetcher, initial State, opts ...Option) *Feed {
	f := &Feed{fetcher: fetcher, state: initial}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns the current state.
func (f *Feed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// HasMore reports whether the load-more control should be shown.
func (f *Feed) HasMore() bool {
	return f.State().HasMore()
}

// LoadMore loads the next page and returns the items it appended.
// A second call made before the first settles fails with ErrLoadInProgress.
// On error the state is left as it was.
func (f *Feed) LoadMore(ctx context.Context) ([]Item, error) {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return nil, ErrLoadInProgress
	}
	current := f.state
	if !current.HasMore() {
		f.mu.Unlock()
		return nil, ErrInvalidState
	}
	f.inFlight = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight = false
		f.mu.Unlock()
	}()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	next, err := LoadNextPage(ctx, f.fetcher, current)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.state = next
	f.mu.Unlock()

	return append([]Item(nil), next.items[current.Len():]...), nil
}
