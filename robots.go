package blogsite

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

// RobotsTxt builds the robots.txt body for a site rooted at baseURL.
func RobotsTxt(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	host := base
	if u, err := url.Parse(base); err == nil && u.Host != "" {
		host = u.Host
	}
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /admin\n")
	b.WriteString("\n")
	b.WriteString("Sitemap: " + base + "/sitemap.xml\n")
	b.WriteString("Host: " + host + "\n")
	return b.String()
}

func (a *App) handleRobots(c echo.Context) error {
	return Text(c, http.StatusOK, RobotsTxt(a.Config.URL))
}
