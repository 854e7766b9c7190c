package spacetraveling

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// SnapshotResult summarises a Snapshot run.
type SnapshotResult struct {
	ListingItems int
	Posts        int
	Missing      []string
}

// Snapshot fetches the initial listing and every post it links to from src
// and writes them to store. Posts the CMS no longer has are reported in
// Missing rather than failing the run.
func Snapshot(ctx context.Context, src ContentSource, store *Store, log zerolog.Logger) (SnapshotResult, error) {
	var res SnapshotResult

	st, err := src.Listing(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch listing: %w", err)
	}
	if err := store.SaveListing(st); err != nil {
		return res, fmt.Errorf("save listing: %w", err)
	}
	res.ListingItems = st.Len()

	items := st.Items()
	posts := make([]Post, len(items))
	missing := make([]bool, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, it := range items {
		g.Go(func() error {
			p, err := src.Post(gctx, it.UID)
			if errors.Is(err, ErrNotFound) {
				missing[i] = true
				return nil
			}
			if err != nil {
				return fmt.Errorf("fetch post %q: %w", it.UID, err)
			}
			posts[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	for i, p := range posts {
		if missing[i] {
			res.Missing = append(res.Missing, items[i].UID)
			log.Warn().Str("uid", items[i].UID).Msg("listed post not found")
			continue
		}
		if err := store.SavePost(p); err != nil {
			return res, fmt.Errorf("save post %q: %w", p.UID, err)
		}
		res.Posts++
	}

	log.Info().Int("listing_items", res.ListingItems).Int("posts", res.Posts).Msg("snapshot written")
	return res, nil
}
