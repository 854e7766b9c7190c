package spacetraveling

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/spacetraveling/feed"
)

// ErrNoSnapshot is returned when the store has never saved a listing.
var ErrNoSnapshot = errors.New("no listing snapshot")

// Store wraps a SQLite database holding the last content fetched from the
// CMS: the initial listing and the post-detail pages.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	// Pragmas in the DSN run on every pooled connection. WAL lets the build
	// command write while the server reads; busy_timeout makes writers wait
	// instead of failing with SQLITE_BUSY.
	db, err := sql.Open("sqlite", storeDSN(path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func storeDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return "file:" + filepath.ToSlash(path) + "?" + q.Encode()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS listing (
    position INTEGER PRIMARY KEY,
    uid TEXT NOT NULL,
    first_publication_date TEXT,
    title TEXT NOT NULL,
    subtitle TEXT NOT NULL,
    author TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS listing_meta (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    next_page TEXT,
    fetched_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS posts (
    uid TEXT PRIMARY KEY,
    first_publication_date TEXT,
    title TEXT NOT NULL,
    subtitle TEXT NOT NULL,
    author TEXT NOT NULL,
    banner_url TEXT NOT NULL,
    content TEXT NOT NULL,
    fetched_at TEXT NOT NULL
);
`)
	return err
}

// SaveListing replaces the listing snapshot with st.
func (s *Store) SaveListing(st feed.State) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM listing`); err != nil {
		return err
	}
	for i, it := range st.Items() {
		if _, err := tx.Exec(`INSERT INTO listing (position, uid, first_publication_date, title, subtitle, author) VALUES (?, ?, ?, ?, ?, ?)`,
			i, it.UID, formatDate(it.FirstPublicationDate), it.Title, it.Subtitle, it.Author); err != nil {
			return err
		}
	}
	var next sql.NullString
	if c, ok := st.NextCursor(); ok {
		next = sql.NullString{String: c, Valid: true}
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO listing_meta (id, next_page, fetched_at) VALUES (1, ?, ?)`,
		next, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return tx.Commit()
}

// Listing returns the listing snapshot in display order.
func (s *Store) Listing() (feed.State, error) {
	var next sql.NullString
	var fetchedAt string
	err := s.db.QueryRow(`SELECT next_page, fetched_at FROM listing_meta WHERE id = 1`).Scan(&next, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return feed.State{}, ErrNoSnapshot
	}
	if err != nil {
		return feed.State{}, err
	}

	rows, err := s.db.Query(`SELECT uid, first_publication_date, title, subtitle, author FROM listing ORDER BY position`)
	if err != nil {
		return feed.State{}, err
	}
	defer rows.Close()

	var items []feed.Item
	for rows.Next() {
		var it feed.Item
		var date sql.NullString
		if err := rows.Scan(&it.UID, &date, &it.Title, &it.Subtitle, &it.Author); err != nil {
			return feed.State{}, err
		}
		it.FirstPublicationDate = parseDate(date)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return feed.State{}, err
	}

	var cursor *string
	if next.Valid {
		cursor = &next.String
	}
	return feed.NewState(items, cursor), nil
}

// SavePost upserts a post-detail snapshot.
func (s *Store) SavePost(p Post) error {
	content, err := json.Marshal(p.Content)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO posts (uid, first_publication_date, title, subtitle, author, banner_url, content, fetched_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UID, formatDate(p.FirstPublicationDate), p.Title, p.Subtitle, p.Author, p.BannerURL, string(content), time.Now().UTC().Format(time.RFC3339))
	return err
}

// GetPost returns a post snapshot by uid, or ErrNotFound.
func (s *Store) GetPost(uid string) (Post, error) {
	p := Post{UID: uid}
	var date sql.NullString
	var content string
	err := s.db.QueryRow(`SELECT first_publication_date, title, subtitle, author, banner_url, content FROM posts WHERE uid = ?`, uid).
		Scan(&date, &p.Title, &p.Subtitle, &p.Author, &p.BannerURL, &content)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, err
	}
	p.FirstPublicationDate = parseDate(date)
	if err := json.Unmarshal([]byte(content), &p.Content); err != nil {
		return Post{}, fmt.Errorf("decode content of %q: %w", uid, err)
	}
	return p, nil
}

// ListPosts returns the listing fields of every saved post, newest first.
func (s *Store) ListPosts() ([]feed.Item, error) {
	rows, err := s.db.Query(`SELECT uid, first_publication_date, title, subtitle, author FROM posts ORDER BY first_publication_date DESC, uid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []feed.Item
	for rows.Next() {
		var it feed.Item
		var date sql.NullString
		if err := rows.Scan(&it.UID, &date, &it.Title, &it.Subtitle, &it.Author); err != nil {
			return nil, err
		}
		it.FirstPublicationDate = parseDate(date)
		items = append(items, it)
	}
	return items, rows.Err()
}

func formatDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseDate(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}
