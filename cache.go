package blogsite

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrNotFound is returned when a requested post does not exist.
var ErrNotFound = sql.ErrNoRows

// PostCache keeps the published posts and tag list in memory for ttl.
// Concurrent reloads after expiry collapse into one database read.
type PostCache struct {
	mu      sync.RWMutex
	posts   []BlogPost
	tags    []string
	fetched time.Time
	ttl     time.Duration
	store   *Store
	loads   singleflight.Group
	now     func() time.Time
	fetch   func(ctx context.Context) ([]BlogPost, []string, error)
}

// NewPostCache creates a PostCache backed by the given Store.
func NewPostCache(s *Store, ttl time.Duration) *PostCache {
	c := &PostCache{store: s, ttl: ttl, now: time.Now}
	c.fetch = c.fetchFromStore
	return c
}

// loadTimeout bounds one shared reload from the database.
const loadTimeout = 30 * time.Second

func (c *PostCache) valid() bool {
	return c.posts != nil && c.now().Sub(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.tags = nil
	c.mu.Unlock()
}

type snapshot struct {
	posts []BlogPost
	tags  []string
}

func (c *PostCache) snapshot(ctx context.Context) ([]BlogPost, []string, error) {
	c.mu.RLock()
	if c.valid() {
		posts, tags := c.posts, c.tags
		c.mu.RUnlock()
		return posts, tags, nil
	}
	c.mu.RUnlock()

	ch := c.loads.DoChan("posts", func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		posts, tags, err := c.fetch(lctx)
		if err != nil {
			return nil, err
		}
		if posts == nil {
			posts = []BlogPost{}
		}
		c.mu.Lock()
		c.posts, c.tags, c.fetched = posts, tags, c.now()
		c.mu.Unlock()
		return snapshot{posts: posts, tags: tags}, nil
	})
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, nil, r.Err
		}
		s := r.Val.(snapshot)
		return s.posts, s.tags, nil
	}
}

func (c *PostCache) fetchFromStore(ctx context.Context) ([]BlogPost, []string, error) {
	posts, err := c.store.ListPosts(ctx, "")
	if err != nil {
		return nil, nil, err
	}
	tags, err := c.store.ListTags(ctx)
	if err != nil {
		return nil, nil, err
	}
	return posts, tags, nil
}

// ListPosts returns published posts, optionally filtered by tag.
func (c *PostCache) ListPosts(ctx context.Context, tag string) ([]BlogPost, error) {
	posts, _, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if tag == "" {
		return posts, nil
	}
	want := normalizeTag(tag)
	var filtered []BlogPost
	for _, p := range posts {
		for _, t := range p.Tags {
			if normalizeTag(t) == want {
				filtered = append(filtered, p)
				break
			}
		}
	}
	return filtered, nil
}

// ListTags returns all unique tags from published posts.
func (c *PostCache) ListTags(ctx context.Context) ([]string, error) {
	_, tags, err := c.snapshot(ctx)
	return tags, err
}

// GetPost returns a single published post by slug.
func (c *PostCache) GetPost(ctx context.Context, slug string) (BlogPost, error) {
	posts, _, err := c.snapshot(ctx)
	if err != nil {
		return BlogPost{}, err
	}
	for _, p := range posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return BlogPost{}, ErrNotFound
}
