package blogsite

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

type adminClient struct {
	t       *testing.T
	a       *App
	cookies map[string]*http.Cookie
	csrf    string
}

func newAdminClient(t *testing.T, a *App) *adminClient {
	t.Helper()
	c := &adminClient{t: t, a: a, cookies: map[string]*http.Cookie{}}
	c.do(http.MethodGet, "/admin/", nil)
	if c.csrf == "" {
		t.Fatal("no CSRF cookie issued on GET /admin/")
	}
	return c
}

func (c *adminClient) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()
	var body *strings.Reader
	if form != nil {
		form.Set("_csrf", c.csrf)
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	req.Host = "example.com"
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.csrf != "" {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.a.Echo.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		c.cookies[ck.Name] = ck
		if ck.Name == "_csrf" {
			c.csrf = ck.Value
		}
	}
	return rec
}

func (c *adminClient) login(password string) *httptest.ResponseRecorder {
	return c.do(http.MethodPost, "/admin/login/", url.Values{"password": {password}})
}

func TestAdminLoginAndSave(t *testing.T) {
	a := newTestApp(t)
	seedPosts(t, a)
	client := newAdminClient(t, a)

	if rec := client.login("hunter2"); rec.Code != http.StatusSeeOther {
		t.Fatalf("login: status %d body %q", rec.Code, rec.Body.String())
	}

	// Warm the cache so the save has something to invalidate.
	if body := get(a, "/sitemaps/posts-audio.xml").Body.String(); strings.Contains(body, "episode-2") {
		t.Fatal("episode-2 present before save")
	}

	rec := client.do(http.MethodPost, "/admin/save/", url.Values{
		"title":       {"Episode 2"},
		"date":        {"2023-09-01"},
		"tags":        {"Podcast, react"},
		"summary":     {"Second episode"},
		"content":     {"Show notes"},
		"published":   {"on"},
		"audio_url":   {"https://cdn.example.com/ep2.mp3"},
		"cover_image": {"/public/uploads/ep2.jpg"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("save: status %d body %q", rec.Code, rec.Body.String())
	}

	post, err := a.Store.GetPost(t.Context(), "episode-2")
	if err != nil {
		t.Fatalf("saved post missing: %v", err)
	}
	if post.AudioURL != "https://cdn.example.com/ep2.mp3" || len(post.Tags) != 2 || post.Tags[0] != "podcast" {
		t.Errorf("saved post = %+v", post)
	}
	if post.Updated != "" {
		t.Errorf("new post should not carry an update date, got %q", post.Updated)
	}

	audio := get(a, "/sitemaps/posts-audio.xml").Body.String()
	if !strings.Contains(audio, "https://example.com/blog/episode-2/") || !strings.Contains(audio, "https://example.com/public/uploads/ep2.jpg") {
		t.Errorf("audio sitemap not refreshed after save:\n%s", audio)
	}
	tags := get(a, "/sitemaps/tags.xml").Body.String()
	if !strings.Contains(tags, "<loc>https://example.com/tags/react/</loc>\n    <lastmod>2023-09-01</lastmod>") {
		t.Errorf("tags sitemap not refreshed after save:\n%s", tags)
	}

	if rec := client.do(http.MethodDelete, "/admin/post/episode-2/", nil); rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}
	if audio := get(a, "/sitemaps/posts-audio.xml").Body.String(); strings.Contains(audio, "episode-2") {
		t.Errorf("deleted post still in audio sitemap:\n%s", audio)
	}
}

func TestAdminSaveRejectsBadDate(t *testing.T) {
	a := newTestApp(t)
	client := newAdminClient(t, a)
	client.login("hunter2")

	rec := client.do(http.MethodPost, "/admin/save/", url.Values{"title": {"X"}, "date": {"01/02/2024"}})
	if rec.Code != http.StatusSeeOther || !strings.Contains(rec.Header().Get("Location"), "Invalid+date") {
		t.Errorf("got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestAdminSaveRequiresSession(t *testing.T) {
	a := newTestApp(t)
	client := newAdminClient(t, a)
	rec := client.do(http.MethodPost, "/admin/save/", url.Values{"title": {"Sneaky"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status %d, want redirect", rec.Code)
	}
	if _, err := a.Store.GetPostAny(t.Context(), "sneaky"); err == nil {
		t.Error("unauthenticated save was persisted")
	}
}

func TestAdminLoginRateLimited(t *testing.T) {
	a := newTestApp(t)
	client := newAdminClient(t, a)
	for i := 0; i < 5; i++ {
		if rec := client.login("wrong"); rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: status %d", i, rec.Code)
		}
	}
	if rec := client.login("hunter2"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("sixth attempt: status %d, want 429", rec.Code)
	}
}
