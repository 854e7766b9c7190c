package views

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/spacetraveling"
	"github.com/eringen/spacetraveling/feed"
	"github.com/eringen/spacetraveling/richtext"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2021, 3, 15, 19, 25, 28, 0, time.UTC)
	if got := FormatDate(&d); got != "15 Mar 2021" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatDate(nil); got != "" {
		t.Errorf("FormatDate(nil) = %q", got)
	}
}

func TestReadingTime(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "1 min"},
		{1, "1 min"},
		{4, "4 min"},
	}
	for _, tt := range tests {
		if got := ReadingTime(tt.minutes); got != tt.want {
			t.Errorf("ReadingTime(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestPostURL(t *testing.T) {
	if got := PostURL("como-utilizar-hooks"); got != "/post/como-utilizar-hooks/" {
		t.Errorf("PostURL = %q", got)
	}
	if got := PostURL("a/b"); got != "/post/a%2Fb/" {
		t.Errorf("PostURL escapes segments, got %q", got)
	}
}

func TestFeedItemEscapes(t *testing.T) {
	out := render(t, FeedItem(feed.Item{
		UID:      "x",
		Title:    `<script>alert("x")</script>`,
		Subtitle: "Tom & Jerry",
		Author:   "Ana",
	}))
	if strings.Contains(out, "<script>") {
		t.Errorf("title not escaped: %s", out)
	}
	if !strings.Contains(out, "Tom &amp; Jerry") {
		t.Errorf("subtitle not escaped: %s", out)
	}
	if strings.Contains(out, "<time") {
		t.Errorf("no date should render without a time element: %s", out)
	}
}

func TestFeedItemDate(t *testing.T) {
	d := time.Date(2021, 3, 25, 19, 27, 35, 0, time.UTC)
	out := render(t, FeedItem(feed.Item{UID: "x", FirstPublicationDate: &d}))
	if !strings.Contains(out, `<time class="time" datetime="2021-03-25">25 Mar 2021</time>`) {
		t.Errorf("unexpected date markup: %s", out)
	}
}

func TestLoadMore(t *testing.T) {
	out := render(t, LoadMore(true, "tok&en"))
	if !strings.Contains(out, `action="/posts/more/"`) {
		t.Errorf("missing form: %s", out)
	}
	if !strings.Contains(out, `name="_csrf" value="tok&amp;en"`) {
		t.Errorf("csrf token not escaped: %s", out)
	}

	out = render(t, LoadMore(false, "token"))
	if out != `<div class="load-more" data-feed-control></div>` {
		t.Errorf("exhausted control = %s", out)
	}
}

func TestHomeShowsLoadError(t *testing.T) {
	cfg := spacetraveling.SiteConfig{Name: "spacetraveling"}
	listing := spacetraveling.Listing{Items: []feed.Item{{UID: "a", Title: "A"}}, HasMore: true, LoadFailed: true}
	out := render(t, Home(cfg, listing, spacetraveling.PageMeta{}, "token"))
	if !strings.Contains(out, "Could not load more posts") {
		t.Errorf("missing error message: %s", out)
	}
	if !strings.Contains(out, "data-feed-more") {
		t.Errorf("missing retry control: %s", out)
	}
	if !strings.Contains(out, "<title>spacetraveling</title>") {
		t.Errorf("title should default to the site name: %s", out)
	}
}

func TestPostPage(t *testing.T) {
	cfg := spacetraveling.SiteConfig{Name: "spacetraveling"}
	post := spacetraveling.Post{
		UID:       "p",
		Title:     "Como utilizar Hooks",
		Author:    "Joseph Oliveira",
		BannerURL: "javascript:alert(1)",
		Content: []spacetraveling.PostSection{{
			Heading: "Proin et varius",
			Body:    richtext.Blocks{{Type: "paragraph", Text: strings.Repeat("word ", 250)}},
		}},
	}
	out := render(t, PostPage(cfg, post, spacetraveling.PageMeta{Title: "Como utilizar Hooks | spacetraveling"}))
	if strings.Contains(out, "javascript:") {
		t.Errorf("unsafe banner URL rendered: %s", out)
	}
	if !strings.Contains(out, "<h2>Proin et varius</h2>") {
		t.Errorf("missing section heading")
	}
	if !strings.Contains(out, "2 min") {
		t.Errorf("expected 2 min reading time for 253 words")
	}
}
