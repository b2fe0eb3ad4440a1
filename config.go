package blogsite

import (
	"strings"
	"time"

	"github.com/eringen/blogsite/sitemap"
	"github.com/eringen/blogsite/shortener"
)

// SiteConfig holds all configuration for a blogsite.
type SiteConfig struct {
	Name        string // Site name (default "Blog")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Author name for JSON-LD

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path (default "data/blog.db")
	StaticDir    string // User static assets (default "public")
	LogLevel     string // debug|info|warn|error (default "info")

	AdminPassword string // Required: admin login password
	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	PostCacheTTL time.Duration // Post cache TTL (default 5min)

	Sitemap   SitemapConfig
	Shortener ShortenerConfig
}

// SitemapConfig selects where generated sitemaps are kept and when they are
// considered stale.
type SitemapConfig struct {
	Store       string        // memory|file|sqlite|postgres (default "sqlite")
	Dir         string        // file store directory (default "data/sitemaps")
	PostgresDSN string        // postgres store connection string
	Freshness   string        // exists|ttl|version (default "version")
	TTL         time.Duration // ttl policy max age (default 1h)
	Thumbnail   string        // audio entry thumbnail fallback (default "/favicon.svg")
}

// ShortenerConfig points the /api/shorten proxy at a shortening service.
type ShortenerConfig struct {
	Endpoint string        // default shortener.DefaultEndpoint
	Timeout  time.Duration // default 10s
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	c.Sitemap.Store = strings.ToLower(strings.TrimSpace(c.Sitemap.Store))
	if c.Sitemap.Store == "" {
		c.Sitemap.Store = "sqlite"
	}
	if c.Sitemap.Dir == "" {
		c.Sitemap.Dir = "data/sitemaps"
	}
	c.Sitemap.Freshness = strings.ToLower(strings.TrimSpace(c.Sitemap.Freshness))
	if c.Sitemap.Freshness == "" {
		c.Sitemap.Freshness = "version"
	}
	if c.Sitemap.TTL == 0 {
		c.Sitemap.TTL = time.Hour
	}
	if c.Sitemap.Thumbnail == "" {
		c.Sitemap.Thumbnail = "/favicon.svg"
	}
	if c.Shortener.Endpoint == "" {
		c.Shortener.Endpoint = shortener.DefaultEndpoint
	}
	if c.Shortener.Timeout == 0 {
		c.Shortener.Timeout = 10 * time.Second
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the Echo instance before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.Config.StaticDir = dir
	}
}

// WithSitemapStore overrides the sitemap store selected by SitemapConfig.Store.
func WithSitemapStore(s sitemap.Store) Option {
	return func(a *App) {
		a.sitemapStore = s
	}
}

// WithShortener overrides the URL shortening client.
func WithShortener(c *shortener.Client) Option {
	return func(a *App) {
		a.shortener = c
	}
}
