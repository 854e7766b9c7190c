package spacetraveling

import (
	"time"

	"github.com/eringen/spacetraveling/feed"
	"github.com/eringen/spacetraveling/richtext"
)

// Post is a post-detail page as rendered by templates.
type Post struct {
	UID                  string
	FirstPublicationDate *time.Time
	Title                string
	Subtitle             string
	Author               string
	BannerURL            string
	Content              []PostSection
}

// PostSection is one heading with its rich-text body.
type PostSection struct {
	Heading string
	Body    richtext.Blocks
}

// Summary returns the listing item for p.
func (p Post) Summary() feed.Item {
	return feed.Item{
		UID:                  p.UID,
		FirstPublicationDate: p.FirstPublicationDate,
		Title:                p.Title,
		Subtitle:             p.Subtitle,
		Author:               p.Author,
	}
}

// ReadingMinutes estimates reading time at 200 words per minute, rounded up.
func (p Post) ReadingMinutes() int {
	words := 0
	for _, s := range p.Content {
		words += richtext.WordCount(s.Heading)
		words += richtext.WordCount(richtext.AsText(s.Body))
	}
	return (words + wordsPerMinute - 1) / wordsPerMinute
}

const wordsPerMinute = 200

// Listing is the data the home page is rendered from.
type Listing struct {
	Items      []feed.Item
	HasMore    bool
	LoadFailed bool
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	JSONLD      string
}
