package blogsite

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/blogsite/views"
)

func (a *App) handleHome(c echo.Context) error {
	return a.renderIndex(c, c.QueryParam("tag"))
}

func (a *App) handleTag(c echo.Context) error {
	return a.renderIndex(c, c.Param("tag"))
}

func (a *App) renderIndex(c echo.Context, tag string) error {
	ctx := c.Request().Context()
	posts, err := a.Cache.ListPosts(ctx, tag)
	if err != nil {
		return err
	}
	tags, err := a.Cache.ListTags(ctx)
	if err != nil {
		return err
	}
	if isHTMX(c) {
		switch c.QueryParam("partial") {
		case "blog":
			return Render(c, a.Views.BlogSection(posts, tag, tags))
		case "home":
			return Render(c, a.Views.HomePartial(posts, tag, tags, a.Config.URL))
		}
	}
	return Render(c, a.Views.Home(posts, tag, tags, a.Config.URL))
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Cache.GetPost(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		}
		return err
	}
	posts, err := a.Cache.ListPosts(ctx, "")
	if err != nil {
		return err
	}
	if isHTMX(c) && c.QueryParam("partial") == "post" {
		return Render(c, a.Views.PostPartial(post, posts, a.Config.URL))
	}
	return Render(c, a.Views.Post(post, posts, a.Config.URL))
}

func handleBlogRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/")
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(filepath.Join(a.Config.StaticDir, "favicon.svg"))
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

// withDefaultViews fills every nil view with a plain component.
func withDefaultViews(v ViewFuncs) ViewFuncs {
	if v.NotFound == nil {
		v.NotFound = views.NotFound
	}
	if v.ServerError == nil {
		v.ServerError = views.ServerError
	}
	if v.Home == nil {
		v.Home = func(posts []BlogPost, activeTag string, _ []string, _ string) templ.Component {
			return postListing(posts, activeTag)
		}
	}
	if v.HomePartial == nil {
		v.HomePartial = v.Home
	}
	if v.BlogSection == nil {
		v.BlogSection = func(posts []BlogPost, activeTag string, _ []string) templ.Component {
			return postListing(posts, activeTag)
		}
	}
	if v.Post == nil {
		v.Post = func(post BlogPost, _ []BlogPost, _ string) templ.Component {
			return views.Message(post.Title, post.Summary)
		}
	}
	if v.PostPartial == nil {
		v.PostPartial = v.Post
	}
	if v.AdminLogin == nil {
		v.AdminLogin = func(showError bool, _ string) templ.Component {
			if showError {
				return views.Message("Admin", "Wrong password.")
			}
			return views.Message("Admin", "Log in to continue.")
		}
	}
	if v.AdminDashboard == nil {
		v.AdminDashboard = func(posts []BlogPost, message string, _ string) templ.Component {
			entries := make([]views.Entry, 0, len(posts))
			for _, p := range posts {
				entries = append(entries, views.Entry{Href: "/admin/post/" + PathEscape(p.Slug) + "/", Title: p.Title, Meta: p.Date})
			}
			return views.Listing("Admin", message, entries)
		}
	}
	if v.AdminFormPartial == nil {
		v.AdminFormPartial = func(post BlogPost, _ string) templ.Component {
			return views.Message(post.Title, post.Summary)
		}
	}
	return v
}

func postListing(posts []BlogPost, activeTag string) templ.Component {
	title := "Posts"
	if activeTag != "" {
		title = "Posts tagged " + activeTag
	}
	entries := make([]views.Entry, 0, len(posts))
	for _, p := range posts {
		entries = append(entries, views.Entry{
			Href:  "/blog/" + PathEscape(p.Slug) + "/",
			Title: p.Title,
			Meta:  views.FormatDate(p.Date),
		})
	}
	return views.Listing(title, "", entries)
}
