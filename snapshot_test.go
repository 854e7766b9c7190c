package spacetraveling

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/eringen/spacetraveling/feed"
)

func TestSnapshot(t *testing.T) {
	src := &fakeSource{
		listing: feed.NewState([]feed.Item{{UID: "a"}, {UID: "gone"}, {UID: "b"}}, strPtr("page2")),
		posts: map[string]Post{
			"a": {UID: "a", Title: "A"},
			"b": {UID: "b", Title: "B"},
		},
	}
	store := setupTestStore(t)

	res, err := Snapshot(context.Background(), src, store, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 3, res.ListingItems)
	require.Equal(t, 2, res.Posts)
	require.Equal(t, []string{"gone"}, res.Missing)

	st, err := store.Listing()
	require.NoError(t, err)
	require.Equal(t, 3, st.Len())
	require.True(t, st.HasMore())

	p, err := store.GetPost("b")
	require.NoError(t, err)
	require.Equal(t, "B", p.Title)
}

func TestSnapshot_SourceFailure(t *testing.T) {
	cause := errors.New("cms down")
	src := newFakeSource()
	src.fail(cause)
	store := setupTestStore(t)

	_, err := Snapshot(context.Background(), src, store, zerolog.Nop())
	require.ErrorIs(t, err, cause)

	_, err = store.Listing()
	require.ErrorIs(t, err, ErrNoSnapshot)
}
