package blogsite

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mmcdole/gofeed"

	"github.com/eringen/blogsite/shortener"
	"github.com/eringen/blogsite/sitemap"
)

const testBaseURL = "https://example.com"

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	dir := t.TempDir()
	cfg := SiteConfig{
		Name:          "Test Blog",
		URL:           testBaseURL,
		Description:   "Posts and episodes",
		Author:        "Tester",
		DatabasePath:  filepath.Join(dir, "blog.db"),
		StaticDir:     filepath.Join(dir, "public"),
		AdminPassword: "hunter2",
		SessionSecret: "0123456789abcdef0123456789abcdef",
		LogLevel:      "off",
	}
	a := New(cfg, ViewFuncs{}, opts...)
	if err := a.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func seedPosts(t *testing.T, a *App) {
	t.Helper()
	mustSave(t, a.Store,
		BlogPost{Slug: "hooks", Title: "Hooks", Date: "2023-01-01", Tags: []string{"react"}, Summary: "About hooks", Published: true},
		BlogPost{Slug: "suspense", Title: "Suspense", Date: "2023-06-01", Tags: []string{"react", "web"}, Published: true},
		BlogPost{Slug: "episode-1", Title: "Episode 1", Date: "2023-03-01", Summary: "First episode",
			AudioURL: "https://cdn.example.com/ep1.mp3", CoverImage: "/public/uploads/ep1.jpg", Published: true},
		BlogPost{Slug: "draft", Title: "Draft", Date: "2023-08-01", Tags: []string{"secret"}},
	)
	a.InvalidateContent(context.Background())
}

func get(a *App, target string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Host = "example.com"
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func TestSitemapRoutes(t *testing.T) {
	a := newTestApp(t)
	seedPosts(t, a)

	for _, k := range sitemap.Kinds() {
		rec := get(a, k.Path())
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d body %q", k.Path(), rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/xml; charset=utf-8" {
			t.Errorf("%s: Content-Type = %q", k.Path(), ct)
		}
		if !strings.HasPrefix(rec.Body.String(), "<?xml") {
			t.Errorf("%s: body does not start with an XML header", k.Path())
		}
	}

	body := get(a, "/sitemaps/tags.xml").Body.String()
	want := "<loc>https://example.com/tags/react/</loc>\n    <lastmod>2023-06-01</lastmod>"
	if !strings.Contains(body, want) {
		t.Errorf("tags sitemap missing react entry:\n%s", body)
	}
	if strings.Contains(body, "secret") {
		t.Errorf("draft tag leaked into tags sitemap:\n%s", body)
	}

	posts := get(a, "/sitemaps/posts.xml").Body.String()
	if !strings.Contains(posts, "https://example.com/blog/hooks/") || strings.Contains(posts, "/blog/draft/") {
		t.Errorf("posts sitemap:\n%s", posts)
	}

	audio := get(a, "/sitemaps/posts-audio.xml").Body.String()
	if !strings.Contains(audio, "https://cdn.example.com/ep1.mp3") || strings.Contains(audio, "/blog/hooks/") {
		t.Errorf("audio sitemap:\n%s", audio)
	}

	index := get(a, "/sitemap.xml").Body.String()
	for _, loc := range []string{"/sitemaps/posts.xml", "/sitemaps/posts-audio.xml", "/sitemaps/tags.xml"} {
		if !strings.Contains(index, "<loc>https://example.com"+loc+"</loc>") {
			t.Errorf("index missing %s:\n%s", loc, index)
		}
	}
}

func TestSitemapRegeneratesAfterContentChange(t *testing.T) {
	a := newTestApp(t)
	seedPosts(t, a)

	first := get(a, "/sitemaps/posts.xml").Body.String()
	if again := get(a, "/sitemaps/posts.xml").Body.String(); again != first {
		t.Fatalf("unchanged content produced different bytes")
	}

	mustSave(t, a.Store, BlogPost{Slug: "fresh", Title: "Fresh", Date: "2024-01-01", Published: true})
	a.InvalidateContent(context.Background())
	if body := get(a, "/sitemaps/posts.xml").Body.String(); !strings.Contains(body, "/blog/fresh/") {
		t.Errorf("new post missing after invalidation:\n%s", body)
	}
}

func TestTagsSitemapMatchesTagPageURL(t *testing.T) {
	a := newTestApp(t)
	mustSave(t, a.Store, BlogPost{Slug: "pipelines", Title: "Pipelines", Date: "2024-02-01", Tags: []string{"CI/CD"}, Published: true})
	a.InvalidateContent(context.Background())

	body := get(a, "/sitemaps/tags.xml").Body.String()
	want := "<loc>" + testBaseURL + TagURL("CI/CD") + "</loc>"
	if !strings.Contains(body, want) {
		t.Errorf("tags sitemap missing %s:\n%s", want, body)
	}
}

type brokenSitemapStore struct{}

func (brokenSitemapStore) Get(context.Context, sitemap.Kind) (sitemap.Document, error) {
	return sitemap.Document{}, sitemap.ErrNotFound
}

func (brokenSitemapStore) Put(context.Context, sitemap.Document) error {
	return errors.New("disk full")
}

func TestSitemapFailureBodies(t *testing.T) {
	a := newTestApp(t, WithSitemapStore(brokenSitemapStore{}))
	seedPosts(t, a)

	for _, k := range sitemap.Kinds() {
		rec := get(a, k.Path())
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s: status %d, want 500", k.Path(), rec.Code)
		}
		if rec.Body.String() != k.FailureMessage() {
			t.Errorf("%s: body %q, want %q", k.Path(), rec.Body.String(), k.FailureMessage())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
			t.Errorf("%s: Content-Type = %q", k.Path(), ct)
		}
	}
}

type countingDeleteStore struct {
	*sitemap.MemoryStore
	deletes int
}

func (s *countingDeleteStore) Delete(ctx context.Context, kind sitemap.Kind) error {
	s.deletes++
	return s.MemoryStore.Delete(ctx, kind)
}

func TestInvalidateContentNormalizesFreshness(t *testing.T) {
	tests := []struct {
		freshness   string
		wantDeletes bool
	}{
		{" Version ", false},
		{"VERSION", false},
		{"Exists", true},
	}
	for _, tt := range tests {
		t.Run(tt.freshness, func(t *testing.T) {
			store := &countingDeleteStore{MemoryStore: sitemap.NewMemoryStore()}
			a := New(SiteConfig{
				URL:          testBaseURL,
				DatabasePath: filepath.Join(t.TempDir(), "blog.db"),
				LogLevel:     "off",
				Sitemap:      SitemapConfig{Freshness: tt.freshness},
			}, ViewFuncs{}, WithSitemapStore(store))
			if err := a.Open(); err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			t.Cleanup(func() { a.Close() })

			a.InvalidateContent(context.Background())
			if got := store.deletes > 0; got != tt.wantDeletes {
				t.Errorf("freshness %q: deletes = %d, want deletes %v", tt.freshness, store.deletes, tt.wantDeletes)
			}
		})
	}
}

func TestRobots(t *testing.T) {
	a := newTestApp(t)
	rec := get(a, "/robots.txt")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	want := "User-agent: *\nAllow: /\nDisallow: /admin\n\nSitemap: https://example.com/sitemap.xml\nHost: example.com\n"
	if rec.Body.String() != want {
		t.Errorf("robots.txt = %q, want %q", rec.Body.String(), want)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRobotsTxtTrailingSlash(t *testing.T) {
	if got := RobotsTxt("https://blog.example.org/"); !strings.Contains(got, "Sitemap: https://blog.example.org/sitemap.xml\nHost: blog.example.org\n") {
		t.Errorf("RobotsTxt = %q", got)
	}
}

func newShortenApp(t *testing.T, upstream http.HandlerFunc) *App {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)
	client, err := shortener.New(shortener.Options{Endpoint: srv.URL + "/api-create.php"})
	if err != nil {
		t.Fatalf("shortener.New: %v", err)
	}
	return newTestApp(t, WithShortener(client))
}

func TestShortenRoute(t *testing.T) {
	var seen string
	a := newShortenApp(t, func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Query().Get("url")
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("https://tiny.example/x"))
	})
	const browser = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120 Safari/537.36"

	rec := get(a, "/api/shorten", "User-Agent", browser)
	if rec.Code != http.StatusBadRequest || rec.Body.String() != "missing url parameter" {
		t.Errorf("missing param: %d %q", rec.Code, rec.Body.String())
	}

	long := "https://example.com/blog/hooks/?a=1&b=2"
	rec = get(a, "/api/shorten?url="+url.QueryEscape(long), "User-Agent", browser)
	if rec.Code != http.StatusOK || rec.Body.String() != "https://tiny.example/x" {
		t.Errorf("relay: %d %q", rec.Code, rec.Body.String())
	}
	if seen != long {
		t.Errorf("upstream got url=%q, want %q", seen, long)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Content-Type = %q, want upstream's", ct)
	}

	rec = get(a, "/api/shorten?url="+url.QueryEscape(long), "User-Agent", "curl/8.4.0")
	if rec.Code != http.StatusForbidden {
		t.Errorf("bot: status %d, want 403", rec.Code)
	}
}

func TestShortenUpstreamFailure(t *testing.T) {
	a := newShortenApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	rec := get(a, "/api/shorten?url=https%3A%2F%2Fexample.com", "User-Agent", "Mozilla/5.0")
	if rec.Code != http.StatusInternalServerError || rec.Body.String() != "failed to shorten url" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestFeed(t *testing.T) {
	a := newTestApp(t)
	seedPosts(t, a)

	rec := get(a, "/feed.xml")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	feed, err := gofeed.NewParser().ParseString(rec.Body.String())
	if err != nil {
		t.Fatalf("feed does not parse: %v", err)
	}
	if feed.Title != "Test Blog" || len(feed.Items) != 3 {
		t.Fatalf("feed title %q with %d items", feed.Title, len(feed.Items))
	}
	var enclosures int
	for _, item := range feed.Items {
		for _, enc := range item.Enclosures {
			enclosures++
			if enc.URL != "https://cdn.example.com/ep1.mp3" || enc.Type != "audio/mpeg" {
				t.Errorf("enclosure = %+v", enc)
			}
		}
	}
	if enclosures != 1 {
		t.Errorf("want 1 enclosure, got %d", enclosures)
	}
}

func TestPages(t *testing.T) {
	a := newTestApp(t)
	seedPosts(t, a)

	if rec := get(a, "/"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Suspense") {
		t.Errorf("home: %d", rec.Code)
	}
	rec := get(a, "/tags/react/")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Hooks") || strings.Contains(rec.Body.String(), "Episode 1") {
		t.Errorf("tag page: %d %s", rec.Code, rec.Body.String())
	}
	if rec := get(a, "/blog/hooks/"); rec.Code != http.StatusOK {
		t.Errorf("post: %d", rec.Code)
	}
	if rec := get(a, "/blog/draft/"); rec.Code != http.StatusNotFound {
		t.Errorf("draft should 404, got %d", rec.Code)
	}
	if rec := get(a, "/blog"); rec.Code != http.StatusMovedPermanently || rec.Header().Get("Location") != "/" {
		t.Errorf("/blog redirect: %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if rec := get(a, "/no/such/page/"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown route: %d", rec.Code)
	}
}

func TestInitRequiresSecrets(t *testing.T) {
	a := New(SiteConfig{DatabasePath: filepath.Join(t.TempDir(), "x.db")}, ViewFuncs{})
	if err := a.Init(); err == nil {
		t.Fatal("Init without AdminPassword should fail")
	}
}
