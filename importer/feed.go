package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/eringen/blogsite"
)

const (
	feedTimeout   = 30 * time.Second
	feedUserAgent = "Mozilla/5.0 (compatible; blogsite-importer/1.0)"
)

type uaTransport struct {
	base http.RoundTripper
}

func (t *uaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", feedUserAgent)
	return t.base.RoundTrip(req)
}

// ImportFeed fetches an RSS or Atom feed and converts its items to posts.
func ImportFeed(ctx context.Context, feedURL string) ([]blogsite.BlogPost, error) {
	ctx, cancel := context.WithTimeout(ctx, feedTimeout)
	defer cancel()

	fp := gofeed.NewParser()
	fp.Client = &http.Client{
		Timeout:   feedTimeout,
		Transport: &uaTransport{base: http.DefaultTransport},
	}
	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feedURL, err)
	}
	return postsFromFeed(feed)
}

// ParseFeed converts an already downloaded feed.
func ParseFeed(r io.Reader) ([]blogsite.BlogPost, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return postsFromFeed(feed)
}

func postsFromFeed(feed *gofeed.Feed) ([]blogsite.BlogPost, error) {
	posts := make([]blogsite.BlogPost, 0, len(feed.Items))
	seen := make(map[string]bool, len(feed.Items))
	for _, item := range feed.Items {
		p, ok := postFromItem(item)
		if !ok || seen[p.Slug] {
			continue
		}
		seen[p.Slug] = true
		posts = append(posts, p)
	}
	return posts, nil
}

func postFromItem(item *gofeed.Item) (blogsite.BlogPost, bool) {
	slug := itemSlug(item)
	if slug == "" {
		return blogsite.BlogPost{}, false
	}
	published := itemTime(item.PublishedParsed, item.UpdatedParsed)
	if published.IsZero() {
		return blogsite.BlogPost{}, false
	}
	p := blogsite.BlogPost{
		Slug:      slug,
		Title:     strings.TrimSpace(item.Title),
		Date:      published.UTC().Format(dateLayout),
		Published: true,
	}
	if item.UpdatedParsed != nil {
		if u := item.UpdatedParsed.UTC().Format(dateLayout); u > p.Date {
			p.Updated = u
		}
	}
	for _, c := range item.Categories {
		for _, t := range strings.Split(c, ",") {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				p.Tags = append(p.Tags, t)
			}
		}
	}

	raw := item.Content
	if raw == "" {
		raw = item.Description
	}
	p.Content = strings.TrimSpace(raw)
	text, img := inspectHTML(raw)
	if d := strings.TrimSpace(item.Description); d != "" && d != raw {
		text, _ = inspectHTML(d)
	}
	p.Summary = truncate(text, 200)

	if item.Image != nil && item.Image.URL != "" {
		p.CoverImage = resolve(item.Link, item.Image.URL)
	} else if img != "" {
		p.CoverImage = resolve(item.Link, img)
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(strings.ToLower(enc.Type), "audio/") && enc.URL != "" {
			p.AudioURL = resolve(item.Link, enc.URL)
			break
		}
	}
	if p.Title == "" {
		p.Title = slug
	}
	return p, true
}

// inspectHTML returns the plain text of an HTML fragment and the src of its
// first image.
func inspectHTML(fragment string) (text, firstImage string) {
	if strings.TrimSpace(fragment) == "" {
		return "", ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " "), ""
	}
	doc.Find("script, style").Remove()
	firstImage, _ = doc.Find("img[src]").First().Attr("src")
	return strings.Join(strings.Fields(doc.Text()), " "), strings.TrimSpace(firstImage)
}

func itemSlug(item *gofeed.Item) string {
	if u, err := url.Parse(item.Link); err == nil && u.Path != "" {
		base := path.Base(strings.TrimSuffix(u.Path, "/"))
		if s := blogsite.Slugify(strings.TrimSuffix(base, path.Ext(base))); s != "" {
			return s
		}
	}
	return blogsite.Slugify(item.Title)
}

func itemTime(ts ...*time.Time) time.Time {
	for _, t := range ts {
		if t != nil && !t.IsZero() {
			return *t
		}
	}
	return time.Time{}
}

func resolve(base, ref string) string {
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return ref
	}
	return b.ResolveReference(r).String()
}
