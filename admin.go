package blogsite

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminPost(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	post, err := a.Store.GetPostAny(c.Request().Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.NoContent(http.StatusNotFound)
		}
		return err
	}
	return Render(c, a.Views.AdminFormPartial(post, CsrfToken(c)))
}

// handleAdminLogin only counts failed attempts against the limiter.
func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	c.Logger().Warnf("failed admin login from %s", ip)
	return Render(c, a.Views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func adminMessage(msg string) string {
	return "/admin/?msg=" + url.QueryEscape(msg)
}

func (a *App) handleAdminSave(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	if err := c.Request().ParseForm(); err != nil {
		return err
	}
	title := strings.TrimSpace(c.FormValue("title"))
	slug := strings.TrimSpace(c.FormValue("slug"))
	if slug == "" {
		slug = Slugify(title)
	}
	if slug == "" {
		return c.Redirect(http.StatusSeeOther, adminMessage("Slug is required. Add a title or slug."))
	}
	today := time.Now().Format("2006-01-02")
	date := strings.TrimSpace(c.FormValue("date"))
	if date == "" {
		date = today
	}
	if parseDate(date).IsZero() {
		return c.Redirect(http.StatusSeeOther, adminMessage("Invalid date format. Use YYYY-MM-DD."))
	}
	audio := strings.TrimSpace(c.FormValue("audio_url"))
	if audio != "" {
		if u, err := url.Parse(audio); err != nil || (!u.IsAbs() && !strings.HasPrefix(audio, "/")) {
			return c.Redirect(http.StatusSeeOther, adminMessage("Audio URL must be absolute or start with /."))
		}
	}

	ctx := c.Request().Context()
	post := BlogPost{
		Slug:       slug,
		Title:      title,
		Date:       date,
		Tags:       FilterEmpty(strings.Split(c.FormValue("tags"), ",")),
		Summary:    c.FormValue("summary"),
		Content:    c.FormValue("content"),
		Published:  c.FormValue("published") != "",
		AudioURL:   audio,
		CoverImage: strings.TrimSpace(c.FormValue("cover_image")),
	}
	// Editing an existing post stamps the update date used for sitemap lastmod.
	if existing, err := a.Store.GetPostAny(ctx, slug); err == nil && existing.Date != "" {
		if existing.Date != date || existing.Content != post.Content || existing.Title != post.Title ||
			existing.AudioURL != post.AudioURL || existing.CoverImage != post.CoverImage {
			post.Updated = today
		} else {
			post.Updated = existing.Updated
		}
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if post.Updated != "" && post.Updated < post.Date {
		post.Updated = ""
	}
	if err := a.Store.SavePost(ctx, post); err != nil {
		return err
	}
	a.InvalidateContent(ctx)
	return a.renderAdminDashboard(c, "saved")
}

func (a *App) handleAdminDelete(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	ctx := c.Request().Context()
	if err := a.Store.DeletePost(ctx, c.Param("slug")); err != nil {
		return err
	}
	a.InvalidateContent(ctx)
	return a.renderAdminDashboard(c, "deleted")
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	posts, err := a.Store.ListAllPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminDashboard(posts, msg, CsrfToken(c)))
}
