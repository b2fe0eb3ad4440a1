package views

import (
	"context"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Message renders a bare HTML page with a title and one paragraph. Sites
// that do not supply their own error templates get these.
func Message(title, body string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`+
			html.EscapeString(title)+`</title></head><body><main><h1>`+
			html.EscapeString(title)+`</h1><p>`+html.EscapeString(body)+`</p><p><a href="/">Back home</a></p></main></body></html>`)
		return err
	})
}

// NotFound is the fallback 404 page.
func NotFound() templ.Component {
	return Message("Not found", "The page you were looking for does not exist.")
}

// ServerError is the fallback 5xx page.
func ServerError() templ.Component {
	return Message("Something went wrong", "Please try again in a moment.")
}

// Entry is one line of a Listing.
type Entry struct {
	Href  string
	Title string
	Meta  string
}

// Listing renders a titled list of links. It stands in for the home, tag and
// post pages when a site ships no templates of its own.
func Listing(title, intro string, entries []Entry) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`)
		b.WriteString(html.EscapeString(title))
		b.WriteString(`</title><link rel="alternate" type="application/rss+xml" href="/feed.xml"></head><body><main><h1>`)
		b.WriteString(html.EscapeString(title))
		b.WriteString(`</h1>`)
		if intro != "" {
			b.WriteString(`<p>` + html.EscapeString(intro) + `</p>`)
		}
		b.WriteString(`<ul class="` + ClassNames("entries", map[string]bool{"empty": len(entries) == 0}) + `">`)
		for _, e := range entries {
			b.WriteString(`<li><a href="` + html.EscapeString(e.Href) + `">` + html.EscapeString(e.Title) + `</a>`)
			if e.Meta != "" {
				b.WriteString(` <small>` + html.EscapeString(e.Meta) + `</small>`)
			}
			b.WriteString(`</li>`)
		}
		b.WriteString(`</ul></main></body></html>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
