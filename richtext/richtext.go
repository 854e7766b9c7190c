// Package richtext renders Prismic rich-text fields to HTML as a templ component.
package richtext

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// Block is one rich-text node: a paragraph, heading, list item or image.
type Block struct {
	Type       string      `json:"type"`
	Text       string      `json:"text"`
	Spans      []Span      `json:"spans"`
	URL        string      `json:"url"`
	Alt        string      `json:"alt"`
	Dimensions *Dimensions `json:"dimensions"`
}

// Dimensions of an image block.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Span marks up Text[Start:End], counted in characters.
type Span struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Type  string    `json:"type"`
	Data  *SpanData `json:"data"`
}

// SpanData carries the target of a hyperlink span.
type SpanData struct {
	URL    string `json:"url"`
	Target string `json:"target"`
}

// Blocks is a rich-text field.
type Blocks []Block

// RichText returns a templ.Component that renders blocks as HTML.
func RichText(blocks Blocks) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		Render(&buf, blocks)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// Render writes the HTML representation of blocks to buf.
func Render(buf *bytes.Buffer, blocks Blocks) {
	imageCount := 0
	list := ""
	flushList := func() {
		if list != "" {
			buf.WriteString("</" + list + ">")
			list = ""
		}
	}
	openList := func(tag string) {
		if list != tag {
			flushList()
			buf.WriteString("<" + tag + ">")
			list = tag
		}
	}

	for _, b := range blocks {
		switch b.Type {
		case "list-item":
			openList("ul")
			buf.WriteString("<li>" + FormatSpans(b.Text, b.Spans) + "</li>")
			continue
		case "o-list-item":
			openList("ol")
			buf.WriteString("<li>" + FormatSpans(b.Text, b.Spans) + "</li>")
			continue
		}
		flushList()

		switch b.Type {
		case "heading1", "heading2", "heading3", "heading4", "heading5", "heading6":
			tag := "h" + b.Type[len("heading"):]
			buf.WriteString("<" + tag + ">" + FormatSpans(b.Text, b.Spans) + "</" + tag + ">")
		case "preformatted":
			buf.WriteString("<pre class=\"code-block\"><code>")
			buf.WriteString(html.EscapeString(b.Text))
			buf.WriteString("</code></pre>")
		case "image":
			src := SafeURL(b.URL)
			if src == "" {
				continue
			}
			imageCount++
			loadAttr := `loading="lazy"`
			if imageCount == 1 {
				loadAttr = `fetchpriority="high"`
			}
			buf.WriteString(`<img ` + loadAttr + ` src="` + src + `" alt="` + html.EscapeString(b.Alt) + `"`)
			if b.Dimensions != nil && b.Dimensions.Width > 0 && b.Dimensions.Height > 0 {
				buf.WriteString(` width="` + strconv.Itoa(b.Dimensions.Width) + `" height="` + strconv.Itoa(b.Dimensions.Height) + `"`)
			}
			buf.WriteString(` decoding="async"/>`)
		default:
			buf.WriteString("<p>" + FormatSpans(b.Text, b.Spans) + "</p>")
		}
	}
	flushList()
}

// FormatSpans escapes text and applies strong, em and hyperlink spans.
// Overlapping spans are split at every boundary so the output nests.
func FormatSpans(text string, spans []Span) string {
	runes := []rune(text)
	if len(spans) == 0 {
		return html.EscapeString(text)
	}

	cuts := map[int]struct{}{0: {}, len(runes): {}}
	var valid []Span
	for _, s := range spans {
		if s.Start < 0 || s.End > len(runes) || s.Start >= s.End {
			continue
		}
		valid = append(valid, s)
		cuts[s.Start] = struct{}{}
		cuts[s.End] = struct{}{}
	}
	bounds := make([]int, 0, len(cuts))
	for c := range cuts {
		bounds = append(bounds, c)
	}
	sort.Ints(bounds)
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Start != valid[j].Start {
			return valid[i].Start < valid[j].Start
		}
		return valid[i].End > valid[j].End
	})

	var b strings.Builder
	for i := 0; i+1 < len(bounds); i++ {
		from, to := bounds[i], bounds[i+1]
		seg := html.EscapeString(string(runes[from:to]))
		var open, closing []string
		for _, s := range valid {
			if s.Start <= from && s.End >= to {
				o, c := spanTags(s)
				if o == "" {
					continue
				}
				open = append(open, o)
				closing = append([]string{c}, closing...)
			}
		}
		b.WriteString(strings.Join(open, ""))
		b.WriteString(seg)
		b.WriteString(strings.Join(closing, ""))
	}
	return b.String()
}

func spanTags(s Span) (string, string) {
	switch s.Type {
	case "strong":
		return "<strong>", "</strong>"
	case "em":
		return "<em>", "</em>"
	case "hyperlink":
		if s.Data == nil {
			return "", ""
		}
		href := SafeURL(s.Data.URL)
		if href == "" {
			return "", ""
		}
		attrs := `class="underline decoration-2 underline-offset-4"`
		if s.Data.Target == "_blank" {
			attrs += ` target="_blank" rel="noopener noreferrer"`
		}
		return `<a href="` + href + `" ` + attrs + `>`, "</a>"
	default:
		return "", ""
	}
}

// AsText joins the text of all blocks with spaces.
func AsText(blocks Blocks) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if t := strings.TrimSpace(b.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// WordCount counts whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// SafeURL validates and sanitizes a URL for use in HTML attributes.
func SafeURL(raw string) string {
	val := strings.TrimSpace(raw)
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
