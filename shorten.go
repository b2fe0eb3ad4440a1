package blogsite

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/blogsite/shortener"
)

// handleShorten proxies GET /api/shorten?url=... to the shortening service
// and relays its answer unchanged.
func (a *App) handleShorten(c echo.Context) error {
	long := strings.TrimSpace(c.QueryParam("url"))
	if long == "" {
		return Text(c, http.StatusBadRequest, "missing url parameter")
	}
	if IsBot(c) {
		return Text(c, http.StatusForbidden, "forbidden")
	}
	if !a.shortenLimiter.Allow(c.RealIP()) {
		return Text(c, http.StatusTooManyRequests, "too many requests")
	}
	resp, err := a.shortener.Shorten(c.Request().Context(), long)
	if err != nil {
		if errors.Is(err, shortener.ErrUpstream) {
			c.Logger().Warnf("shorten %q: %v", long, err)
		} else {
			c.Logger().Errorf("shorten %q: %v", long, err)
		}
		return Text(c, http.StatusInternalServerError, "failed to shorten url")
	}
	return c.Blob(resp.Status, resp.ContentType, resp.Body)
}
