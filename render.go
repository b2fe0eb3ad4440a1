package blogsite

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

const (
	mimeXML  = "application/xml; charset=utf-8"
	mimeText = "text/plain; charset=utf-8"
	mimeRSS  = "application/rss+xml; charset=utf-8"
)

// XML writes an already-encoded XML document.
func XML(c echo.Context, body []byte) error {
	return c.Blob(http.StatusOK, mimeXML, body)
}

// Text writes a plain-text body with an explicit lowercase charset.
func Text(c echo.Context, code int, body string) error {
	return c.Blob(code, mimeText, []byte(body))
}

func isHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}
