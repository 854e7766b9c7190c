package spacetraveling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/eringen/spacetraveling/feed"
	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/richtext"
)

// ErrNotFound is returned when a requested post does not exist.
var ErrNotFound = errors.New("post not found")

// PostSource reads posts from the CMS. It runs the initial listing query
// and implements feed.PageFetcher for the following pages.
type PostSource struct {
	client   *prismic.Client
	docType  string
	pageSize int
}

// NewPostSource builds a PostSource from the Prismic section of cfg.
func NewPostSource(cfg PrismicConfig) (*PostSource, error) {
	client, err := prismic.NewClient(cfg.Endpoint,
		prismic.WithAccessToken(cfg.AccessToken),
		prismic.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	if err != nil {
		return nil, err
	}
	return &PostSource{client: client, docType: cfg.DocumentType, pageSize: cfg.PageSize}, nil
}

// postListData is the subset of a post document shown in the listing.
type postListData struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Author   string `json:"author"`
}

type postData struct {
	postListData
	Banner struct {
		URL string `json:"url"`
	} `json:"banner"`
	Content []struct {
		Heading string          `json:"heading"`
		Body    richtext.Blocks `json:"body"`
	} `json:"content"`
}

// Listing runs the initial query: all documents of the post type, one page
// of the configured size, no extra fields fetched.
func (s *PostSource) Listing(ctx context.Context) (feed.State, error) {
	resp, err := s.client.Query(ctx,
		[]prismic.Predicate{prismic.At("document.type", s.docType)},
		prismic.QueryOptions{PageSize: s.pageSize},
	)
	if err != nil {
		return feed.State{}, fmt.Errorf("query %s: %w", s.docType, err)
	}
	page, err := pageFromResponse(resp)
	if err != nil {
		return feed.State{}, err
	}
	return feed.NewState(page.Items, page.NextCursor), nil
}

// FetchPage follows a next_page cursor.
func (s *PostSource) FetchPage(ctx context.Context, cursor string) (feed.Page, error) {
	resp, err := s.client.Page(ctx, cursor)
	if err != nil {
		return feed.Page{}, err
	}
	return pageFromResponse(resp)
}

// Post fetches one post by uid.
func (s *PostSource) Post(ctx context.Context, uid string) (Post, error) {
	doc, err := s.client.GetByUID(ctx, s.docType, uid)
	if err != nil {
		if errors.Is(err, prismic.ErrNotFound) {
			return Post{}, ErrNotFound
		}
		return Post{}, fmt.Errorf("get %s %q: %w", s.docType, uid, err)
	}
	return postFromDocument(*doc)
}

func pageFromResponse(resp *prismic.Response) (feed.Page, error) {
	items := make([]feed.Item, 0, len(resp.Results))
	for _, doc := range resp.Results {
		it, err := itemFromDocument(doc)
		if err != nil {
			return feed.Page{}, err
		}
		items = append(items, it)
	}
	return feed.Page{Items: items, NextCursor: resp.NextPage}, nil
}

func itemFromDocument(doc prismic.Document) (feed.Item, error) {
	var data postListData
	if err := decodeData(doc, &data); err != nil {
		return feed.Item{}, err
	}
	return feed.Item{
		UID:                  doc.UID,
		FirstPublicationDate: publicationDate(doc.FirstPublicationDate),
		Title:                data.Title,
		Subtitle:             data.Subtitle,
		Author:               data.Author,
	}, nil
}

func postFromDocument(doc prismic.Document) (Post, error) {
	var data postData
	if err := decodeData(doc, &data); err != nil {
		return Post{}, err
	}
	p := Post{
		UID:                  doc.UID,
		FirstPublicationDate: publicationDate(doc.FirstPublicationDate),
		Title:                data.Title,
		Subtitle:             data.Subtitle,
		Author:               data.Author,
		BannerURL:            data.Banner.URL,
	}
	for _, c := range data.Content {
		p.Content = append(p.Content, PostSection{Heading: c.Heading, Body: c.Body})
	}
	return p, nil
}

func decodeData(doc prismic.Document, dst any) error {
	if len(doc.Data) == 0 {
		return fmt.Errorf("%w: document %q has no data", prismic.ErrMalformedResponse, doc.UID)
	}
	if err := json.Unmarshal(doc.Data, dst); err != nil {
		return fmt.Errorf("%w: document %q: %v", prismic.ErrMalformedResponse, doc.UID, err)
	}
	return nil
}

// publicationDate parses a nullable Prismic timestamp. Unparseable values
// are treated as absent.
func publicationDate(raw *string) *time.Time {
	if raw == nil || *raw == "" {
		return nil
	}
	t, err := prismic.ParseTime(*raw)
	if err != nil {
		return nil
	}
	return &t
}
