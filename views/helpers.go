package views

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/a-h/templ"
)

// DateLayout renders dates as "15 Mar 2021".
const DateLayout = "02 Jan 2006"

// FormatDate formats t with DateLayout, or returns "" for a nil date.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

// PostURL returns the site-relative URL of post uid.
func PostURL(uid string) string {
	return "/post/" + url.PathEscape(uid) + "/"
}

// ReadingTime formats a minute count for the post header.
func ReadingTime(minutes int) string {
	if minutes < 1 {
		minutes = 1
	}
	return strconv.Itoa(minutes) + " min"
}

// htmlWriter accumulates the first write error so components read linearly.
type htmlWriter struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newWriter(ctx context.Context, w io.Writer) *htmlWriter {
	return &htmlWriter{ctx: ctx, w: w}
}

// raw writes trusted markup.
func (h *htmlWriter) raw(parts ...string) {
	for _, p := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, p)
	}
}

// text writes s HTML-escaped.
func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) component(c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(h.ctx, h.w)
}
