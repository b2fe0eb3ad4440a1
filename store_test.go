package blogsite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "blog.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustSave(t *testing.T, s *Store, posts ...BlogPost) {
	t.Helper()
	for _, p := range posts {
		if err := s.SavePost(context.Background(), p); err != nil {
			t.Fatalf("SavePost(%s) failed: %v", p.Slug, err)
		}
	}
}

func TestSaveAndGetPost(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	post := BlogPost{
		Slug:       "test-post",
		Title:      "Test Post",
		Date:       "2024-01-15",
		Updated:    "2024-02-01",
		Tags:       []string{"Go", " testing "},
		Summary:    "A test post summary",
		Content:    "# Test Content\n\nThis is test content.",
		Published:  true,
		AudioURL:   " https://cdn.example.com/ep.mp3 ",
		CoverImage: "/public/uploads/cover.jpg",
	}
	mustSave(t, s, post)

	got, err := s.GetPost(ctx, "test-post")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Title != post.Title || got.Date != post.Date || got.Updated != post.Updated {
		t.Errorf("got %+v", got)
	}
	if got.Content != post.Content || got.Summary != post.Summary {
		t.Errorf("content/summary mismatch: %+v", got)
	}
	if got.Link != "/blog/test-post" {
		t.Errorf("Link = %q, want %q", got.Link, "/blog/test-post")
	}
	if !got.Published {
		t.Error("Published should be true")
	}
	if len(got.Tags) != 2 || got.Tags[0] != "go" || got.Tags[1] != "testing" {
		t.Errorf("Tags = %v, want [go testing]", got.Tags)
	}
	if got.AudioURL != "https://cdn.example.com/ep.mp3" {
		t.Errorf("AudioURL = %q", got.AudioURL)
	}
	if got.CoverImage != "/public/uploads/cover.jpg" {
		t.Errorf("CoverImage = %q", got.CoverImage)
	}
	if got.LastModified() != "2024-02-01" {
		t.Errorf("LastModified = %q", got.LastModified())
	}
}

func TestSavePostUpdate(t *testing.T) {
	s := setupTestStore(t)
	post := BlogPost{Slug: "update-test", Title: "Original", Date: "2024-01-01", Tags: []string{"original"}, Published: true}
	mustSave(t, s, post)

	post.Title = "Updated Title"
	post.Tags = []string{"updated", "modified"}
	mustSave(t, s, post)

	got, err := s.GetPost(context.Background(), "update-test")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Title != "Updated Title" {
		t.Errorf("Title = %q, want %q", got.Title, "Updated Title")
	}
	if len(got.Tags) != 2 || got.Tags[0] != "updated" {
		t.Errorf("Tags = %v", got.Tags)
	}
}

func TestGetPostNotFound(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.GetPost(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetPostUnpublished(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	mustSave(t, s, BlogPost{Slug: "draft", Title: "Draft", Date: "2024-01-01", Published: false})

	if _, err := s.GetPost(ctx, "draft"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPost should hide drafts, got %v", err)
	}
	got, err := s.GetPostAny(ctx, "draft")
	if err != nil {
		t.Fatalf("GetPostAny failed: %v", err)
	}
	if got.Published {
		t.Error("Published should be false")
	}
}

func TestListPostsOrderAndTagFilter(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	mustSave(t, s,
		BlogPost{Slug: "old", Title: "Old", Date: "2023-01-01", Tags: []string{"react"}, Published: true},
		BlogPost{Slug: "new", Title: "New", Date: "2023-06-01", Tags: []string{"React", "go"}, Published: true},
		BlogPost{Slug: "draft", Title: "Draft", Date: "2023-07-01", Tags: []string{"react"}},
		BlogPost{Slug: "reactive", Title: "Reactive", Date: "2023-03-01", Tags: []string{"reactive"}, Published: true},
	)

	all, err := s.ListPosts(ctx, "")
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(all) != 3 || all[0].Slug != "new" || all[2].Slug != "old" {
		t.Fatalf("unexpected order: %v", slugs(all))
	}

	react, err := s.ListPosts(ctx, "REACT")
	if err != nil {
		t.Fatalf("ListPosts(tag) failed: %v", err)
	}
	if len(react) != 2 || react[0].Slug != "new" || react[1].Slug != "old" {
		t.Errorf("tag filter = %v, want [new old]", slugs(react))
	}

	everything, err := s.ListAllPosts(ctx)
	if err != nil {
		t.Fatalf("ListAllPosts failed: %v", err)
	}
	if len(everything) != 4 || everything[0].Slug != "draft" {
		t.Errorf("ListAllPosts = %v", slugs(everything))
	}
}

func TestListTags(t *testing.T) {
	s := setupTestStore(t)
	mustSave(t, s,
		BlogPost{Slug: "a", Date: "2024-01-01", Tags: []string{"go", "web"}, Published: true},
		BlogPost{Slug: "b", Date: "2024-01-02", Tags: []string{"Go", "db"}, Published: true},
		BlogPost{Slug: "c", Date: "2024-01-03", Tags: []string{"secret"}},
	)
	tags, err := s.ListTags(context.Background())
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	want := []string{"db", "go", "web"}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tags[%d] = %q, want %q", i, tags[i], want[i])
		}
	}
}

func TestDeletePost(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	mustSave(t, s, BlogPost{Slug: "gone", Title: "Gone", Date: "2024-01-01", Published: true})

	if err := s.DeletePost(ctx, "gone"); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
	if _, err := s.GetPostAny(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("post should be gone, got %v", err)
	}
	if err := s.DeletePost(ctx, "never-existed"); err != nil {
		t.Errorf("deleting a missing post should not fail: %v", err)
	}
}

func TestImages(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	for i, name := range []string{"a.jpg", "b.jpg"} {
		img := Image{
			Filename:     name,
			OriginalName: name,
			Width:        800,
			Height:       600,
			Size:         1000 + i,
			UploadedAt:   time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		}
		if err := s.SaveImage(ctx, img); err != nil {
			t.Fatalf("SaveImage failed: %v", err)
		}
	}
	imgs, err := s.ListImages(ctx)
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	if len(imgs) != 2 || imgs[0].Filename != "b.jpg" {
		t.Fatalf("ListImages = %+v", imgs)
	}
	if ok, _ := s.ImageExists(ctx, "a.jpg"); !ok {
		t.Error("a.jpg should exist")
	}
	if err := s.DeleteImage(ctx, "a.jpg"); err != nil {
		t.Fatalf("DeleteImage failed: %v", err)
	}
	if ok, _ := s.ImageExists(ctx, "a.jpg"); ok {
		t.Error("a.jpg should be deleted")
	}
}

func TestMigrateIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blog.db")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	mustSave(t, s, BlogPost{Slug: "keep", Title: "Keep", Date: "2024-01-01", Published: true})
	s.Close()

	s, err = NewStore(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s.Close()
	if _, err := s.GetPost(context.Background(), "keep"); err != nil {
		t.Errorf("post lost across reopen: %v", err)
	}
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{",go,web,", []string{"go", "web"}},
		{"go", []string{"go"}},
		{",,", nil},
		{"", nil},
		{", a , b ,", []string{"a", "b"}},
	}
	for _, tt := range tests {
		got := ParseTags(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("ParseTags(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseTags(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestPostCache(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	mustSave(t, s, BlogPost{Slug: "one", Title: "One", Date: "2024-01-01", Tags: []string{"go"}, Published: true})

	c := NewPostCache(s, time.Hour)
	posts, err := c.ListPosts(ctx, "")
	if err != nil || len(posts) != 1 {
		t.Fatalf("ListPosts = %v, %v", slugs(posts), err)
	}

	mustSave(t, s, BlogPost{Slug: "two", Title: "Two", Date: "2024-01-02", Published: true})
	if posts, _ := c.ListPosts(ctx, ""); len(posts) != 1 {
		t.Errorf("cache should still hold one post, got %v", slugs(posts))
	}

	c.Invalidate()
	if posts, _ := c.ListPosts(ctx, ""); len(posts) != 2 {
		t.Errorf("after Invalidate want 2 posts, got %v", slugs(posts))
	}
	if tagged, _ := c.ListPosts(ctx, "GO"); len(tagged) != 1 || tagged[0].Slug != "one" {
		t.Errorf("tag filter = %v", slugs(tagged))
	}
	if _, err := c.GetPost(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPost(missing) = %v, want ErrNotFound", err)
	}
}

func TestPostCacheExpires(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewPostCache(s, time.Minute)
	c.now = func() time.Time { return now }

	if posts, _ := c.ListPosts(ctx, ""); len(posts) != 0 {
		t.Fatalf("expected empty store")
	}
	mustSave(t, s, BlogPost{Slug: "late", Date: "2024-01-01", Published: true})
	now = now.Add(2 * time.Minute)
	if posts, _ := c.ListPosts(ctx, ""); len(posts) != 1 {
		t.Errorf("expired cache should reload, got %v", slugs(posts))
	}
}

func TestPostCacheReloadSurvivesStarterCancel(t *testing.T) {
	s := setupTestStore(t)
	mustSave(t, s, BlogPost{Slug: "one", Title: "One", Date: "2024-01-01", Published: true})

	c := NewPostCache(s, time.Hour)
	started, release := make(chan struct{}), make(chan struct{})
	c.fetch = func(ctx context.Context) ([]BlogPost, []string, error) {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
		return c.fetchFromStore(ctx)
	}

	starterCtx, cancel := context.WithCancel(context.Background())
	starterErr := make(chan error, 1)
	go func() {
		_, err := c.ListPosts(starterCtx, "")
		starterErr <- err
	}()
	<-started

	type result struct {
		posts []BlogPost
		err   error
	}
	other := make(chan result, 1)
	go func() {
		posts, err := c.ListPosts(context.Background(), "")
		other <- result{posts, err}
	}()

	cancel()
	if err := <-starterErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller: want context.Canceled, got %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)

	r := <-other
	if r.err != nil || len(r.posts) != 1 {
		t.Fatalf("caller with a live context: %v, %v", slugs(r.posts), r.err)
	}
}

func slugs(posts []BlogPost) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Slug
	}
	return out
}
