// Package prismic is a small client for the Prismic REST API v2.
//
// It covers what the site needs: resolving the master ref, running a
// predicate query, fetching a document by UID and following next_page
// links returned by a previous query.
package prismic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by GetByUID when no document matches.
	ErrNotFound = errors.New("prismic: document not found")

	// ErrMalformedResponse is returned when a body cannot be decoded into
	// the expected shape.
	ErrMalformedResponse = errors.New("prismic: malformed response")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("prismic: GET %s: status %d", e.URL, e.Code)
}

// Document is a single search result. Data is left raw so callers decode
// their own custom type fields.
type Document struct {
	ID                   string          `json:"id"`
	UID                  string          `json:"uid"`
	Type                 string          `json:"type"`
	FirstPublicationDate *string         `json:"first_publication_date"`
	LastPublicationDate  *string         `json:"last_publication_date"`
	Data                 json.RawMessage `json:"data"`
}

// Response is a page of search results.
type Response struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         *string    `json:"next_page"`
	PrevPage         *string    `json:"prev_page"`
	Results          []Document `json:"results"`
}

// Ref is a content release reference from the API descriptor.
type Ref struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}

type apiDescriptor struct {
	Refs []Ref `json:"refs"`
}

// Predicate is one query clause in Prismic's predicate syntax.
type Predicate string

// At matches documents whose path equals value.
func At(path, value string) Predicate {
	return Predicate(fmt.Sprintf("[at(%s, %s)]", path, strconv.Quote(value)))
}

// QueryOptions tune a search query. Zero values are omitted from the request.
type QueryOptions struct {
	PageSize  int
	Page      int
	Fetch     []string
	Orderings []string
}

// Client talks to one Prismic repository.
type Client struct {
	endpoint    *url.URL
	accessToken string
	http        *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAccessToken sets the token sent with every request.
func WithAccessToken(token string) ClientOption {
	return func(c *Client) {
		c.accessToken = token
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient returns a Client for the repository API endpoint, e.g.
// https://myrepo.cdn.prismic.io/api/v2.
func NewClient(endpoint string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("prismic: parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("prismic: endpoint %q must be an absolute URL", endpoint)
	}
	c := &Client{
		endpoint: u,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MasterRef returns the ref of the currently published content.
func (c *Client) MasterRef(ctx context.Context) (string, error) {
	u := *c.endpoint
	c.addToken(&u)

	var api apiDescriptor
	if err := c.getJSON(ctx, u.String(), &api); err != nil {
		return "", err
	}
	for _, r := range api.Refs {
		if r.IsMasterRef {
			return r.Ref, nil
		}
	}
	return "", fmt.Errorf("%w: no master ref", ErrMalformedResponse)
}

// Query runs a search against the master ref.
func (c *Client) Query(ctx context.Context, predicates []Predicate, opts QueryOptions) (*Response, error) {
	ref, err := c.MasterRef(ctx)
	if err != nil {
		return nil, err
	}

	u := *c.endpoint
	u.Path += "/documents/search"
	q := url.Values{}
	q.Set("ref", ref)
	if len(predicates) > 0 {
		var b strings.Builder
		b.WriteByte('[')
		for _, p := range predicates {
			b.WriteString(string(p))
		}
		b.WriteByte(']')
		q.Set("q", b.String())
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if len(opts.Fetch) > 0 {
		q.Set("fetch", strings.Join(opts.Fetch, ","))
	}
	if len(opts.Orderings) > 0 {
		q.Set("orderings", "["+strings.Join(opts.Orderings, ",")+"]")
	}
	if c.accessToken != "" {
		q.Set("access_token", c.accessToken)
	}
	u.RawQuery = q.Encode()

	return c.fetchResponse(ctx, u.String())
}

// GetByUID returns the document of docType with the given uid.
func (c *Client) GetByUID(ctx context.Context, docType, uid string) (*Document, error) {
	resp, err := c.Query(ctx, []Predicate{At("my."+docType+".uid", uid)}, QueryOptions{PageSize: 1})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, ErrNotFound
	}
	return &resp.Results[0], nil
}

// Page follows a next_page link. Relative links are resolved against the
// endpoint.
func (c *Client) Page(ctx context.Context, link string) (*Response, error) {
	ref, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("prismic: parse page link: %w", err)
	}
	return c.fetchResponse(ctx, c.endpoint.ResolveReference(ref).String())
}

func (c *Client) fetchResponse(ctx context.Context, rawURL string) (*Response, error) {
	var resp struct {
		Response
		Results *[]Document `json:"results"`
	}
	if err := c.getJSON(ctx, rawURL, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return nil, fmt.Errorf("%w: %s has no results", ErrMalformedResponse, rawURL)
	}
	out := resp.Response
	out.Results = *resp.Results
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("prismic: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("prismic: GET %s: %w", rawURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		io.Copy(io.Discard, res.Body)
		return &StatusError{Code: res.StatusCode, URL: rawURL}
	}

	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrMalformedResponse, rawURL, err)
	}
	return nil
}

func (c *Client) addToken(u *url.URL) {
	if c.accessToken == "" {
		return
	}
	q := u.Query()
	q.Set("access_token", c.accessToken)
	u.RawQuery = q.Encode()
}

// ParseTime parses Prismic timestamps such as 2021-03-25T19:25:28+0000.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02T15:04:05-0700", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
