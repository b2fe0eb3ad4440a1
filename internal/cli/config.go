package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/eringen/blogsite"
	"github.com/eringen/blogsite/shortener"
)

// loadConfig reads blogsite.yaml (or path, when given) and BLOGSITE_* env
// vars into a SiteConfig. A missing default config file is not an error.
func loadConfig(path string) (blogsite.SiteConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("blogsite")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("BLOGSITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("name", "Blog")
	v.SetDefault("url", "http://localhost:3000")
	v.SetDefault("description", "")
	v.SetDefault("author", "")
	v.SetDefault("addr", ":3000")
	v.SetDefault("database_path", "data/blog.db")
	v.SetDefault("static_dir", "public")
	v.SetDefault("admin_password", "")
	v.SetDefault("session_secret", "")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("post_cache_ttl", "5m")
	v.SetDefault("log.level", "info")
	v.SetDefault("sitemap.store", "sqlite")
	v.SetDefault("sitemap.dir", "data/sitemaps")
	v.SetDefault("sitemap.postgres_dsn", "")
	v.SetDefault("sitemap.freshness", "version")
	v.SetDefault("sitemap.ttl", "1h")
	v.SetDefault("sitemap.thumbnail", "/favicon.svg")
	v.SetDefault("shortener.endpoint", shortener.DefaultEndpoint)
	v.SetDefault("shortener.timeout", "10s")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return blogsite.SiteConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := blogsite.SiteConfig{
		Name:          v.GetString("name"),
		URL:           strings.TrimRight(v.GetString("url"), "/"),
		Description:   v.GetString("description"),
		Author:        v.GetString("author"),
		Addr:          v.GetString("addr"),
		DatabasePath:  v.GetString("database_path"),
		StaticDir:     v.GetString("static_dir"),
		LogLevel:      v.GetString("log.level"),
		AdminPassword: v.GetString("admin_password"),
		SessionSecret: v.GetString("session_secret"),
		CookieSecure:  v.GetBool("cookie_secure"),
		PostCacheTTL:  v.GetDuration("post_cache_ttl"),
		Sitemap: blogsite.SitemapConfig{
			Store:       v.GetString("sitemap.store"),
			Dir:         v.GetString("sitemap.dir"),
			PostgresDSN: v.GetString("sitemap.postgres_dsn"),
			Freshness:   v.GetString("sitemap.freshness"),
			TTL:         v.GetDuration("sitemap.ttl"),
			Thumbnail:   v.GetString("sitemap.thumbnail"),
		},
		Shortener: blogsite.ShortenerConfig{
			Endpoint: v.GetString("shortener.endpoint"),
			Timeout:  v.GetDuration("shortener.timeout"),
		},
	}
	if err := validate(cfg); err != nil {
		return blogsite.SiteConfig{}, err
	}
	return cfg, nil
}

func validate(cfg blogsite.SiteConfig) error {
	switch cfg.Sitemap.Store {
	case "memory", "file", "sqlite", "postgres":
	default:
		return fmt.Errorf("sitemap.store: unknown store %q", cfg.Sitemap.Store)
	}
	switch cfg.Sitemap.Freshness {
	case "exists", "ttl", "version":
	default:
		return fmt.Errorf("sitemap.freshness: unknown policy %q", cfg.Sitemap.Freshness)
	}
	if cfg.Sitemap.Freshness == "ttl" && cfg.Sitemap.TTL <= 0 {
		return errors.New("sitemap.ttl must be positive with the ttl policy")
	}
	if cfg.PostCacheTTL < 0 || cfg.Shortener.Timeout < 0 {
		return errors.New("durations must not be negative")
	}
	if cfg.Sitemap.Store == "postgres" && cfg.Sitemap.PostgresDSN == "" {
		return errors.New("sitemap.postgres_dsn is required with the postgres store")
	}
	return nil
}

// shutdownTimeout bounds graceful shutdown of the server.
const shutdownTimeout = 10 * time.Second
