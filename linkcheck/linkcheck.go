// Package linkcheck walks a published sitemap index and reports the
// locations that do not answer with a 2xx status.
package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	sitemapLocXPath = `//*[local-name()='sitemap']/*[local-name()='loc']`
	pageLocXPath    = `//*[local-name()='url']/*[local-name()='loc']`
)

// Result is one broken location.
type Result struct {
	URL    string
	Status int // 0 when no response was received
	Err    error
}

// Checker crawls sitemaps with colly.
type Checker struct {
	UserAgent   string
	Parallelism int
	Timeout     time.Duration
}

// New returns a Checker with conservative defaults.
func New() *Checker {
	return &Checker{
		UserAgent:   "blogsite-linkcheck/1.0",
		Parallelism: 4,
		Timeout:     15 * time.Second,
	}
}

// Check fetches sitemapURL, follows every child sitemap it lists and
// requests every page <loc>. Broken locations are returned sorted by URL.
// The error is non-nil only when the sitemap itself cannot be fetched.
func (ch *Checker) Check(ctx context.Context, sitemapURL string) ([]Result, error) {
	c := colly.NewCollector(
		colly.UserAgent(ch.UserAgent),
		colly.Async(true),
	)
	c.SetRequestTimeout(ch.Timeout)
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: max(ch.Parallelism, 1)}); err != nil {
		return nil, fmt.Errorf("linkcheck: %w", err)
	}

	var (
		mu      sync.Mutex
		broken  []Result
		rootErr error
	)
	record := func(r Result) {
		mu.Lock()
		broken = append(broken, r)
		if r.URL == sitemapURL {
			rootErr = r.Err
			if rootErr == nil {
				rootErr = fmt.Errorf("http status %d", r.Status)
			}
		}
		mu.Unlock()
	}

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnXML(sitemapLocXPath, func(e *colly.XMLElement) {
		visit(e.Request, strings.TrimSpace(e.Text), record)
	})
	c.OnXML(pageLocXPath, func(e *colly.XMLElement) {
		visit(e.Request, strings.TrimSpace(e.Text), record)
	})
	c.OnResponse(func(r *colly.Response) {
		if r.StatusCode < 200 || r.StatusCode >= 300 {
			record(Result{URL: r.Request.URL.String(), Status: r.StatusCode})
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		record(Result{URL: r.Request.URL.String(), Status: r.StatusCode, Err: err})
	})

	if err := c.Visit(sitemapURL); err != nil {
		return nil, fmt.Errorf("linkcheck: visit %s: %w", sitemapURL, err)
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return broken, err
	}
	if rootErr != nil {
		return broken, fmt.Errorf("linkcheck: fetch %s: %w", sitemapURL, rootErr)
	}
	sort.Slice(broken, func(i, j int) bool { return broken[i].URL < broken[j].URL })
	return broken, nil
}

func visit(from *colly.Request, loc string, record func(Result)) {
	if loc == "" {
		return
	}
	if err := from.Visit(loc); err != nil && !errors.Is(err, colly.ErrAlreadyVisited) {
		record(Result{URL: loc, Err: err})
	}
}

// Summary formats results for terminal output.
func Summary(results []Result) string {
	if len(results) == 0 {
		return "all locations OK"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d broken location(s):\n", len(results))
	for _, r := range results {
		status := http.StatusText(r.Status)
		if r.Status == 0 {
			status = "no response"
		}
		fmt.Fprintf(&b, "  %s  %d %s", r.URL, r.Status, status)
		if r.Err != nil {
			fmt.Fprintf(&b, " (%v)", r.Err)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
