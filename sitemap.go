package blogsite

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/blogsite/sitemap"
)

// contentSource feeds published posts from the PostCache to the sitemap
// generator.
type contentSource struct {
	cache *PostCache
}

func (s contentSource) Posts(ctx context.Context) ([]sitemap.PostSummary, error) {
	posts, err := s.cache.ListPosts(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]sitemap.PostSummary, 0, len(posts))
	for _, p := range posts {
		out = append(out, summarize(p))
	}
	return out, nil
}

func summarize(p BlogPost) sitemap.PostSummary {
	return sitemap.PostSummary{
		Slug:       p.Slug,
		Title:      p.Title,
		Summary:    p.Summary,
		Tags:       p.Tags,
		Published:  parseDate(p.Date),
		Updated:    parseDate(p.Updated),
		AudioURL:   p.AudioURL,
		CoverImage: p.CoverImage,
	}
}

// parseDate reads a stored YYYY-MM-DD date; anything else is the zero time.
func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

// openSitemapStore picks the document store named by the config.
func (a *App) openSitemapStore() (sitemap.Store, error) {
	switch a.Config.Sitemap.Store {
	case "memory":
		return sitemap.NewMemoryStore(), nil
	case "file":
		return sitemap.NewFileStore(a.Config.Sitemap.Dir)
	case "sqlite":
		return sitemap.NewSQLiteStore(a.Store.DB())
	case "postgres":
		if a.Config.Sitemap.PostgresDSN == "" {
			return nil, fmt.Errorf("sitemap store postgres: postgres_dsn is empty")
		}
		s, err := sitemap.OpenPostgresStore(a.Config.Sitemap.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown sitemap store %q", a.Config.Sitemap.Store)
	}
}

func (a *App) initSitemaps() error {
	if a.sitemapStore == nil {
		s, err := a.openSitemapStore()
		if err != nil {
			return err
		}
		a.sitemapStore = s
	}
	if c, ok := a.sitemapStore.(io.Closer); ok && !a.ownsCloser(c) {
		a.closers = append(a.closers, c)
	}

	gen := sitemap.NewGenerator(a.Config.URL, contentSource{cache: a.Cache},
		sitemap.WithDefaultThumbnail(a.Config.Sitemap.Thumbnail))
	fresh, err := sitemap.ParseFreshness(a.Config.Sitemap.Freshness, a.Config.Sitemap.TTL, gen.Version)
	if err != nil {
		return err
	}
	a.Sitemaps = sitemap.NewService(a.sitemapStore, gen,
		sitemap.WithFreshness(fresh),
		sitemap.WithLogger(a.Echo.Logger))
	return nil
}

func (a *App) ownsCloser(c io.Closer) bool {
	for _, have := range a.closers {
		if have == c {
			return true
		}
	}
	return false
}

// sitemapHandler serves one sitemap kind. Failures answer 500 with a fixed
// per-kind message; the cause is only logged.
func (a *App) sitemapHandler(kind sitemap.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := a.Sitemaps.ReadOrGenerate(c.Request().Context(), kind)
		if err != nil {
			c.Logger().Errorf("%s: %v", kind.FailureMessage(), err)
			return Text(c, http.StatusInternalServerError, kind.FailureMessage())
		}
		return XML(c, body)
	}
}
