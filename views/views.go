// Package views holds the templ components of the spacetraveling site.
package views

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/eringen/spacetraveling"
	"github.com/eringen/spacetraveling/feed"
	"github.com/eringen/spacetraveling/richtext"
)

// Funcs returns the ViewFuncs rendering the site described by cfg.
func Funcs(cfg spacetraveling.SiteConfig) spacetraveling.ViewFuncs {
	return spacetraveling.ViewFuncs{
		Home: func(l spacetraveling.Listing, meta spacetraveling.PageMeta, csrf string) templ.Component {
			return Home(cfg, l, meta, csrf)
		},
		FeedItems: FeedItems,
		LoadError: LoadError,
		Post: func(p spacetraveling.Post, meta spacetraveling.PageMeta) templ.Component {
			return PostPage(cfg, p, meta)
		},
		NotFound:    func() templ.Component { return NotFound(cfg) },
		ServerError: func() templ.Component { return ServerError(cfg) },
	}
}

// Layout wraps body in the document shell with head metadata and the header.
func Layout(cfg spacetraveling.SiteConfig, meta spacetraveling.PageMeta, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		title := meta.Title
		if title == "" {
			title = cfg.Name
		}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"/>`,
			`<meta name="viewport" content="width=device-width, initial-scale=1"/><title>`)
		h.text(title)
		h.raw(`</title>`)
		if meta.Description != "" {
			h.raw(`<meta name="description" content="`)
			h.text(meta.Description)
			h.raw(`"/>`)
		}
		if meta.URL != "" {
			h.raw(`<link rel="canonical" href="`)
			h.text(meta.URL)
			h.raw(`"/><meta property="og:url" content="`)
			h.text(meta.URL)
			h.raw(`"/>`)
		}
		h.raw(`<meta property="og:title" content="`)
		h.text(title)
		h.raw(`"/>`)
		if meta.OGType != "" {
			h.raw(`<meta property="og:type" content="`)
			h.text(meta.OGType)
			h.raw(`"/>`)
		}
		if meta.JSONLD != "" {
			// json.Marshal escapes <, > and &, so the block cannot close the script.
			h.raw(`<script type="application/ld+json">`, meta.JSONLD, `</script>`)
		}
		h.raw(`<link rel="icon" href="/favicon.svg" type="image/svg+xml"/>`,
			`<link rel="stylesheet" href="/public/styles.css"/>`,
			`<script src="/public/feed.js" defer></script></head><body>`)
		h.component(Header(cfg))
		h.component(body)
		h.raw(`</body></html>`)
		return h.err
	})
}

// Header renders the site logo linking home.
func Header(cfg spacetraveling.SiteConfig) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<header class="container header"><a class="logo" href="/">`,
			`<img src="/public/logo.svg" alt="`)
		h.text(cfg.Name)
		h.raw(`" width="239" height="27"/></a></header>`)
		return h.err
	})
}

// Home renders the post listing with its load-more control.
func Home(cfg spacetraveling.SiteConfig, l spacetraveling.Listing, meta spacetraveling.PageMeta, csrf string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<main class="container">`)
		h.component(FeedList(l.Items))
		if l.LoadFailed {
			h.component(LoadError(csrf))
		} else {
			h.component(LoadMore(l.HasMore, csrf))
		}
		h.raw(`</main>`)
		return h.err
	})
	return Layout(cfg, meta, body)
}

// FeedList renders items as the listing.
func FeedList(items []feed.Item) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<ul class="posts" data-feed-list>`)
		for _, it := range items {
			h.component(FeedItem(it))
		}
		h.raw(`</ul>`)
		return h.err
	})
}

// FeedItem renders one listing entry.
func FeedItem(it feed.Item) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<li class="post"><a href="`)
		h.text(PostURL(it.UID))
		h.raw(`"><h2 class="title">`)
		h.text(it.Title)
		h.raw(`</h2><p class="description">`)
		h.text(it.Subtitle)
		h.raw(`</p><div class="row">`)
		if it.FirstPublicationDate != nil {
			h.raw(`<time class="time" datetime="`, it.FirstPublicationDate.Format("2006-01-02"), `">`)
			h.text(FormatDate(it.FirstPublicationDate))
			h.raw(`</time>`)
		}
		h.raw(`<span class="author">`)
		h.text(it.Author)
		h.raw(`</span></div></a></li>`)
		return h.err
	})
}

// LoadMore renders the load-more control, or an empty placeholder when the
// listing has no further pages.
func LoadMore(hasMore bool, csrf string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<div class="load-more" data-feed-control>`)
		if hasMore {
			loadMoreForm(h, csrf)
		}
		h.raw(`</div>`)
		return h.err
	})
}

func loadMoreForm(h *htmlWriter, csrf string) {
	h.raw(`<form data-feed-more method="post" action="/posts/more/">`,
		`<input type="hidden" name="_csrf" value="`)
	h.text(csrf)
	h.raw(`"/><button type="submit" class="load-more-button">Load more posts</button></form>`)
}

// FeedItems is the response to an in-place load: the new entries and the
// control that replaces the current one.
func FeedItems(items []feed.Item, hasMore bool, csrf string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.component(FeedList(items))
		h.component(LoadMore(hasMore, csrf))
		return h.err
	})
}

// LoadError replaces the control after a failed load and offers a retry.
func LoadError(csrf string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<div class="load-more" data-feed-control>`,
			`<p class="load-error" role="alert">Could not load more posts. Please try again.</p>`)
		loadMoreForm(h, csrf)
		h.raw(`</div>`)
		return h.err
	})
}

// PostPage renders a post-detail page.
func PostPage(cfg spacetraveling.SiteConfig, p spacetraveling.Post, meta spacetraveling.PageMeta) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		if src := richtext.SafeURL(p.BannerURL); src != "" {
			h.raw(`<img class="banner" src="`, src, `" alt="" fetchpriority="high"/>`)
		}
		h.raw(`<main class="container"><article class="post-detail"><h1>`)
		h.text(p.Title)
		h.raw(`</h1><div class="row">`)
		if p.FirstPublicationDate != nil {
			h.raw(`<time class="time" datetime="`, p.FirstPublicationDate.Format("2006-01-02"), `">`)
			h.text(FormatDate(p.FirstPublicationDate))
			h.raw(`</time>`)
		}
		h.raw(`<span class="author">`)
		h.text(p.Author)
		h.raw(`</span><span class="reading-time">`)
		h.text(ReadingTime(p.ReadingMinutes()))
		h.raw(`</span></div>`)
		for _, s := range p.Content {
			h.raw(`<section>`)
			if s.Heading != "" {
				h.raw(`<h2>`)
				h.text(s.Heading)
				h.raw(`</h2>`)
			}
			h.raw(`<div class="content">`)
			h.component(richtext.RichText(s.Body))
			h.raw(`</div></section>`)
		}
		h.raw(`</article></main>`)
		return h.err
	})
	return Layout(cfg, meta, body)
}

// NotFound renders the 404 page.
func NotFound(cfg spacetraveling.SiteConfig) templ.Component {
	return message(cfg, "Page not found", "The page you are looking for does not exist.")
}

// ServerError renders the 500 page.
func ServerError(cfg spacetraveling.SiteConfig) templ.Component {
	return message(cfg, "Something went wrong", "Please try again in a moment.")
}

func message(cfg spacetraveling.SiteConfig, title, text string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<main class="container message"><h1>`)
		h.text(title)
		h.raw(`</h1><p>`)
		h.text(text)
		h.raw(`</p><a href="/">Back to posts</a></main>`)
		return h.err
	})
	return Layout(cfg, spacetraveling.PageMeta{Title: title + " | " + cfg.Name}, body)
}
