package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func item(uid string) Item {
	return Item{UID: uid, Title: "Title " + uid, Subtitle: "Subtitle " + uid, Author: "Author " + uid}
}

// stubFetcher serves pages keyed by cursor and records the cursors it saw.
type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]Page
	errs  map[string]error
	calls []string
}

func (s *stubFetcher) FetchPage(_ context.Context, cursor string) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, cursor)
	if err, ok := s.errs[cursor]; ok {
		return Page{}, err
	}
	p, ok := s.pages[cursor]
	if !ok {
		return Page{}, errors.New("unexpected cursor " + cursor)
	}
	return p, nil
}

func TestLoadNextPage_AppendsAndAdvancesCursor(t *testing.T) {
	f := &stubFetcher{pages: map[string]Page{
		"/page2": {Items: []Item{item("p2")}, NextCursor: strp("/page3")},
	}}
	s := NewState([]Item{item("p1")}, strp("/page2"))

	got, err := LoadNextPage(context.Background(), f, s)
	require.NoError(t, err)
	require.Equal(t, []Item{item("p1"), item("p2")}, got.Items())

	next, ok := got.NextCursor()
	require.True(t, ok)
	require.Equal(t, "/page3", next)
	require.Equal(t, []string{"/page2"}, f.calls)
}

func TestLoadNextPage_LastPageThenInvalidState(t *testing.T) {
	f := &stubFetcher{pages: map[string]Page{
		"/page2": {Items: []Item{item("p2")}, NextCursor: nil},
	}}
	s := NewState([]Item{item("p1")}, strp("/page2"))

	got, err := LoadNextPage(context.Background(), f, s)
	require.NoError(t, err)
	require.Equal(t, []Item{item("p1"), item("p2")}, got.Items())
	require.False(t, got.HasMore())

	again, err := LoadNextPage(context.Background(), f, got)
	require.ErrorIs(t, err, ErrInvalidState)
	require.Equal(t, got, again)
	require.Len(t, f.calls, 1, "no fetch once the cursor is gone")
}

func TestLoadNextPage_FetchFailureKeepsState(t *testing.T) {
	cause := errors.New("status 500")
	f := &stubFetcher{errs: map[string]error{"/page2": cause}}
	s := NewState([]Item{item("p1")}, strp("/page2"))

	got, err := LoadNextPage(context.Background(), f, s)
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "/page2", fe.Cursor)
	require.ErrorIs(t, err, cause)

	require.Equal(t, s, got)
	require.Equal(t, []Item{item("p1")}, got.Items())
	c, _ := got.NextCursor()
	require.Equal(t, "/page2", c)
}

func TestLoadNextPage_KeepsExistingFetchError(t *testing.T) {
	inner := &FetchError{Cursor: "/page2", Err: errors.New("decode")}
	f := &stubFetcher{errs: map[string]error{"/page2": inner}}

	_, err := LoadNextPage(context.Background(), f, NewState(nil, strp("/page2")))
	require.Same(t, inner, err)
}

func TestLoadNextPage_PreservesOrderAcrossPages(t *testing.T) {
	f := &stubFetcher{pages: map[string]Page{
		"a": {Items: []Item{item("3"), item("4")}, NextCursor: strp("b")},
		"b": {Items: []Item{item("5")}, NextCursor: strp("")},
	}}
	s := NewState([]Item{item("1"), item("2")}, strp("a"))

	var err error
	for s.HasMore() {
		s, err = LoadNextPage(context.Background(), f, s)
		require.NoError(t, err)
	}

	var uids []string
	for _, it := range s.Items() {
		uids = append(uids, it.UID)
	}
	require.Equal(t, []string{"1", "2", "3", "4", "5"}, uids)
}

func TestLoadNextPage_DoesNotDeduplicate(t *testing.T) {
	f := &stubFetcher{pages: map[string]Page{
		"a": {Items: []Item{item("1")}},
	}}
	s, err := LoadNextPage(context.Background(), f, NewState([]Item{item("1")}, strp("a")))
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
}

func TestState_IsImmutable(t *testing.T) {
	src := []Item{item("p1")}
	cursor := "/page2"
	s := NewState(src, &cursor)

	src[0].Title = "changed"
	cursor = "/elsewhere"
	items := s.Items()
	items[0].Title = "also changed"

	require.Equal(t, "Title p1", s.Items()[0].Title)
	c, _ := s.NextCursor()
	require.Equal(t, "/page2", c)
}

func TestNewState_EmptyCursorMeansNoMore(t *testing.T) {
	require.False(t, NewState(nil, strp("")).HasMore())
	require.False(t, NewState(nil, nil).HasMore())
	require.True(t, NewState(nil, strp("x")).HasMore())
}

func TestFeed_LoadMore(t *testing.T) {
	f := &stubFetcher{pages: map[string]Page{
		"/page2": {Items: []Item{item("p2")}, NextCursor: strp("/page3")},
		"/page3": {Items: []Item{item("p3")}},
	}}
	fd := New(f, NewState([]Item{item("p1")}, strp("/page2")))

	added, err := fd.LoadMore(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Item{item("p2")}, added)
	require.True(t, fd.HasMore())

	added, err = fd.LoadMore(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Item{item("p3")}, added)
	require.False(t, fd.HasMore())

	_, err = fd.LoadMore(context.Background())
	require.ErrorIs(t, err, ErrInvalidState)
	require.Equal(t, 3, fd.State().Len())
}

func TestFeed_FailureLeavesStateUnchanged(t *testing.T) {
	f := &stubFetcher{errs: map[string]error{"/page2": errors.New("boom")}}
	initial := NewState([]Item{item("p1")}, strp("/page2"))
	fd := New(f, initial)

	_, err := fd.LoadMore(context.Background())
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, initial, fd.State())

	// The guard is released after a failure, so the user can retry.
	_, err = fd.LoadMore(context.Background())
	require.ErrorAs(t, err, &fe)
}

func TestFeed_RejectsReentrantLoad(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fetcher := PageFetcherFunc(func(ctx context.Context, cursor string) (Page, error) {
		close(started)
		<-release
		return Page{Items: []Item{item("p2")}}, nil
	})
	fd := New(fetcher, NewState([]Item{item("p1")}, strp("/page2")))

	done := make(chan error, 1)
	go func() {
		_, err := fd.LoadMore(context.Background())
		done <- err
	}()

	<-started
	_, err := fd.LoadMore(context.Background())
	require.ErrorIs(t, err, ErrLoadInProgress)
	require.Equal(t, 1, fd.State().Len())

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, 2, fd.State().Len())
	require.False(t, fd.HasMore())
}

func TestFeed_TimeoutBoundsLoad(t *testing.T) {
	fetcher := PageFetcherFunc(func(ctx context.Context, cursor string) (Page, error) {
		<-ctx.Done()
		return Page{}, ctx.Err()
	})
	fd := New(fetcher, NewState(nil, strp("/page2")), WithTimeout(20*time.Millisecond))

	_, err := fd.LoadMore(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.True(t, fd.HasMore())
}
