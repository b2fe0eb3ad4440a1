// Package blogsite is a server-rendered blog built with Go, Echo, and templ.
// It serves pages, an RSS/podcast feed, robots.txt, a URL shortening proxy
// and a set of XML sitemaps that are generated on demand and cached in a
// pluggable store.
//
// Sites provide their own templ templates via the ViewFuncs struct; any view
// left nil falls back to a plain component from the views package.
package blogsite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/eringen/blogsite/shortener"
	"github.com/eringen/blogsite/sitemap"
)

// ViewFuncs holds user-provided templ components that the app calls when
// rendering pages.
type ViewFuncs struct {
	Home             func(posts []BlogPost, activeTag string, tags []string, siteURL string) templ.Component
	HomePartial      func(posts []BlogPost, activeTag string, tags []string, siteURL string) templ.Component
	BlogSection      func(posts []BlogPost, activeTag string, tags []string) templ.Component
	Post             func(post BlogPost, posts []BlogPost, siteURL string) templ.Component
	PostPartial      func(post BlogPost, posts []BlogPost, siteURL string) templ.Component
	AdminLogin       func(showError bool, csrfToken string) templ.Component
	AdminDashboard   func(posts []BlogPost, message string, csrfToken string) templ.Component
	AdminFormPartial func(post BlogPost, csrfToken string) templ.Component
	AdminImages      func(images []Image, csrfToken string) templ.Component
	NotFound         func() templ.Component
	ServerError      func() templ.Component
}

// App wires together the content store, caches, sitemap service, handlers
// and middleware.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Store    *Store
	Cache    *PostCache
	Sitemaps *sitemap.Service
	Views    ViewFuncs

	loginLimiter   *RateLimiter
	shortenLimiter *RateLimiter
	shortener      *shortener.Client
	sitemapStore   sitemap.Store
	closers        []io.Closer
	customRoutes   []func(*App)
	initialized    bool
}

// New creates an App with the given configuration and view functions.
// Call Init (or Start) before serving.
func New(cfg SiteConfig, v ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()
	e := echo.New()
	e.HideBanner = true
	a := &App{
		Config: cfg,
		Echo:   e,
		Views:  withDefaultViews(v),
	}
	for _, opt := range opts {
		opt(a)
	}
	e.Logger.SetLevel(parseLogLevel(a.Config.LogLevel))
	return a
}

// Init opens the database, builds the sitemap service and registers
// middleware and routes. It is idempotent.
func (a *App) Init() error {
	if a.initialized {
		return nil
	}
	if a.Config.AdminPassword == "" {
		return errors.New("blogsite: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return errors.New("blogsite: SessionSecret is required")
	}

	if err := a.Open(); err != nil {
		return err
	}

	if a.shortener == nil {
		client, err := shortener.New(shortener.Options{
			Endpoint: a.Config.Shortener.Endpoint,
			Timeout:  a.Config.Shortener.Timeout,
		})
		if err != nil {
			a.Close()
			return fmt.Errorf("blogsite: init shortener: %w", err)
		}
		a.shortener = client
	}

	a.loginLimiter = NewRateLimiter(5, time.Minute)
	a.shortenLimiter = NewRateLimiter(30, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.initialized = true
	return nil
}

// Open prepares the content store, post cache and sitemap service without
// touching the HTTP side. CLI commands that only generate sitemaps use it.
func (a *App) Open() error {
	if a.Store != nil {
		return nil
	}
	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("blogsite: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewPostCache(store, a.Config.PostCacheTTL)

	if err := a.initSitemaps(); err != nil {
		a.Close()
		return fmt.Errorf("blogsite: init sitemaps: %w", err)
	}
	return nil
}

// Start initializes the app and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	a.Echo.Logger.Infof("blogsite listening on %s (sitemaps: %s store, %s freshness)",
		a.Config.Addr, a.Config.Sitemap.Store, a.Config.Sitemap.Freshness)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	return errors.Join(err, a.Close())
}

// InvalidateContent drops cached posts and the sitemap copies that the
// freshness policy would not notice on its own.
func (a *App) InvalidateContent(ctx context.Context) {
	if a.Cache != nil {
		a.Cache.Invalidate()
	}
	if a.Sitemaps == nil || a.Config.Sitemap.Freshness == "version" {
		return
	}
	if err := a.Sitemaps.Invalidate(ctx); err != nil {
		a.Echo.Logger.Warnf("sitemap invalidate: %v", err)
	}
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.Config.StaticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	e.GET(sitemap.KindIndex.Path(), a.sitemapHandler(sitemap.KindIndex))
	for _, k := range []sitemap.Kind{sitemap.KindPosts, sitemap.KindPostsAudio, sitemap.KindTags} {
		e.GET(k.Path(), a.sitemapHandler(k))
	}
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/api/shorten", a.handleShorten)

	e.GET("/", a.handleHome)
	e.GET("/blog", handleBlogRedirect)
	e.GET("/blog/:slug/", a.handlePost)
	e.GET("/tags/:tag/", a.handleTag)

	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	e.GET("/admin/post/:slug/", a.handleAdminPost)
	e.POST("/admin/save/", a.handleAdminSave)
	e.DELETE("/admin/post/:slug/", a.handleAdminDelete)
	e.GET("/admin/images/", a.handleImageList)
	e.POST("/admin/images/upload/", a.handleImageUpload)
	e.DELETE("/admin/images/:filename/", a.handleImageDelete)
}

// Close releases the database and any store connections.
func (a *App) Close() error {
	var errs []error
	for _, l := range []*RateLimiter{a.loginLimiter, a.shortenLimiter} {
		if l != nil {
			l.Stop()
		}
	}
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
		a.Store = nil
	}
	return errors.Join(errs...)
}

func parseLogLevel(s string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}
