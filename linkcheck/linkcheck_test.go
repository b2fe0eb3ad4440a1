package linkcheck

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	xmlHandler := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/xml; charset=utf-8")
			fmt.Fprint(w, strings.ReplaceAll(body, "{base}", srv.URL))
		}
	}
	mux.HandleFunc("/sitemap.xml", xmlHandler(`<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>{base}/sitemaps/posts.xml</loc></sitemap>
  <sitemap><loc>{base}/sitemaps/tags.xml</loc></sitemap>
</sitemapindex>`))
	mux.HandleFunc("/sitemaps/posts.xml", xmlHandler(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{base}/</loc></url>
  <url><loc>{base}/blog/ok/</loc></url>
  <url><loc>{base}/blog/missing/</loc></url>
</urlset>`))
	mux.HandleFunc("/sitemaps/tags.xml", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Failed to generate tags sitemap", http.StatusInternalServerError)
	})
	mux.HandleFunc("/blog/ok/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>ok</body></html>")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>home</body></html>")
	})
	return srv
}

func TestCheckReportsBrokenLocations(t *testing.T) {
	srv := newSite(t)
	results, err := New().Check(context.Background(), srv.URL+"/sitemap.xml")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("want 2 broken locations, got %+v", results)
	}
	if results[0].URL != srv.URL+"/blog/missing/" || results[0].Status != http.StatusNotFound {
		t.Errorf("results[0] = %+v", results[0])
	}
	if results[1].URL != srv.URL+"/sitemaps/tags.xml" || results[1].Status != http.StatusInternalServerError {
		t.Errorf("results[1] = %+v", results[1])
	}
	if s := Summary(results); !strings.Contains(s, "2 broken location(s)") || !strings.Contains(s, "404 Not Found") {
		t.Errorf("Summary = %q", s)
	}
}

func TestCheckRootFailure(t *testing.T) {
	srv := newSite(t)
	if _, err := New().Check(context.Background(), srv.URL+"/nope.xml"); err == nil {
		t.Fatal("expected an error when the sitemap itself is missing")
	}
}

func TestSummaryEmpty(t *testing.T) {
	if got := Summary(nil); got != "all locations OK" {
		t.Errorf("Summary(nil) = %q", got)
	}
}
