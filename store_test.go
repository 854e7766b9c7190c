package spacetraveling

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/eringen/spacetraveling/feed"
	"github.com/eringen/spacetraveling/richtext"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "snapshot.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func date(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func strPtr(s string) *string { return &s }

func TestNewStore(t *testing.T) {
	s := setupTestStore(t)
	if s.db == nil {
		t.Fatal("db should not be nil")
	}
}

func TestStorePragmasApplyToEveryConnection(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// Hold several connections at once so the pool cannot hand back the same one.
	for i := 0; i < 3; i++ {
		conn, err := s.db.Conn(ctx)
		if err != nil {
			t.Fatalf("conn %d: %v", i, err)
		}
		defer conn.Close()

		var timeout int
		if err := conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("conn %d busy_timeout: %v", i, err)
		}
		if timeout != 5000 {
			t.Errorf("conn %d busy_timeout = %d, want 5000", i, timeout)
		}
		var mode string
		if err := conn.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
			t.Fatalf("conn %d journal_mode: %v", i, err)
		}
		if mode != "wal" {
			t.Errorf("conn %d journal_mode = %q, want wal", i, mode)
		}
	}
}

func TestListingBeforeSnapshot(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.Listing(); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestSaveAndLoadListing(t *testing.T) {
	s := setupTestStore(t)

	items := []feed.Item{
		{UID: "como-utilizar-hooks", FirstPublicationDate: date("2021-03-15T19:25:28Z"), Title: "Como utilizar Hooks", Subtitle: "Pensando em sincronização", Author: "Joseph Oliveira"},
		{UID: "criando-um-app-cra-do-zero", Title: "Criando um app CRA do zero", Subtitle: "Tudo sobre como criar", Author: "Danilo Vieira"},
	}
	if err := s.SaveListing(feed.NewState(items, strPtr("https://repo.example/page2"))); err != nil {
		t.Fatalf("SaveListing failed: %v", err)
	}

	st, err := s.Listing()
	if err != nil {
		t.Fatalf("Listing failed: %v", err)
	}
	got := st.Items()
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0].UID != "como-utilizar-hooks" || got[1].UID != "criando-um-app-cra-do-zero" {
		t.Errorf("order not preserved: %q, %q", got[0].UID, got[1].UID)
	}
	if got[0].FirstPublicationDate == nil || !got[0].FirstPublicationDate.Equal(*items[0].FirstPublicationDate) {
		t.Errorf("date = %v, want %v", got[0].FirstPublicationDate, items[0].FirstPublicationDate)
	}
	if got[1].FirstPublicationDate != nil {
		t.Errorf("expected nil date, got %v", got[1].FirstPublicationDate)
	}
	if c, ok := st.NextCursor(); !ok || c != "https://repo.example/page2" {
		t.Errorf("cursor = %q, %v", c, ok)
	}
}

func TestSaveListingReplaces(t *testing.T) {
	s := setupTestStore(t)

	first := []feed.Item{{UID: "a"}, {UID: "b"}, {UID: "c"}}
	if err := s.SaveListing(feed.NewState(first, strPtr("next"))); err != nil {
		t.Fatalf("SaveListing failed: %v", err)
	}
	if err := s.SaveListing(feed.NewState([]feed.Item{{UID: "d"}}, nil)); err != nil {
		t.Fatalf("SaveListing failed: %v", err)
	}

	st, err := s.Listing()
	if err != nil {
		t.Fatalf("Listing failed: %v", err)
	}
	if st.Len() != 1 || st.Items()[0].UID != "d" {
		t.Errorf("expected only d, got %+v", st.Items())
	}
	if st.HasMore() {
		t.Error("expected no next cursor after replacing with an exhausted listing")
	}
}

func TestSaveAndGetPost(t *testing.T) {
	s := setupTestStore(t)

	post := Post{
		UID:                  "como-utilizar-hooks",
		FirstPublicationDate: date("2021-03-15T19:25:28Z"),
		Title:                "Como utilizar Hooks",
		Subtitle:             "Pensando em sincronização",
		Author:               "Joseph Oliveira",
		BannerURL:            "https://images.example/banner.png",
		Content: []PostSection{{
			Heading: "Proin et varius",
			Body:    richtext.Blocks{{Type: "paragraph", Text: "Nullam dolor sapien"}},
		}},
	}
	if err := s.SavePost(post); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	got, err := s.GetPost("como-utilizar-hooks")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Title != post.Title || got.Author != post.Author || got.BannerURL != post.BannerURL {
		t.Errorf("got %+v", got)
	}
	if len(got.Content) != 1 || got.Content[0].Heading != "Proin et varius" {
		t.Fatalf("content = %+v", got.Content)
	}
	if len(got.Content[0].Body) != 1 || got.Content[0].Body[0].Text != "Nullam dolor sapien" {
		t.Errorf("body = %+v", got.Content[0].Body)
	}

	post.Title = "Updated"
	if err := s.SavePost(post); err != nil {
		t.Fatalf("SavePost (update) failed: %v", err)
	}
	got, _ = s.GetPost("como-utilizar-hooks")
	if got.Title != "Updated" {
		t.Errorf("expected upsert, got title %q", got.Title)
	}
}

func TestGetPostNotFound(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.GetPost("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListPostsNewestFirst(t *testing.T) {
	s := setupTestStore(t)
	for _, p := range []Post{
		{UID: "old", FirstPublicationDate: date("2020-01-01T00:00:00Z")},
		{UID: "new", FirstPublicationDate: date("2022-01-01T00:00:00Z")},
		{UID: "mid", FirstPublicationDate: date("2021-01-01T00:00:00Z")},
	} {
		if err := s.SavePost(p); err != nil {
			t.Fatalf("SavePost failed: %v", err)
		}
	}

	items, err := s.ListPosts()
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	var uids []string
	for _, it := range items {
		uids = append(uids, it.UID)
	}
	if len(uids) != 3 || uids[0] != "new" || uids[1] != "mid" || uids[2] != "old" {
		t.Errorf("order = %v", uids)
	}
}
