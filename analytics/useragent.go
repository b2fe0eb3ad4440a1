// Package analytics classifies incoming traffic: bot detection, user agent
// parsing and referrer cleanup for the request log.
package analytics

import (
	"regexp"
	"strings"
)

// botPattern matches crawler, preview fetcher and monitor signatures.
var botPattern = regexp.MustCompile(`(?i)bot|crawler|spider|crawling|facebookexternalhit|slurp|uptimerobot|preview|insights`)

// disallowedClientPrefixes catch scripted traffic that carries no bot marker.
var disallowedClientPrefixes = []string{
	"curl/",
	"wget/",
	"python-requests/",
	"python-urllib/",
	"axios/",
	"node-fetch/",
	"go-http-client/",
	"java/",
	"okhttp/",
	"libwww-perl/",
	"httpclient/",
	"postmanruntime/",
	"insomnia/",
}

// IsLikelyBotUserAgent reports whether ua looks like a crawler or a bare
// HTTP client library rather than a browser.
func IsLikelyBotUserAgent(ua string) bool {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return false
	}
	if botPattern.MatchString(ua) {
		return true
	}
	lower := strings.ToLower(ua)
	for _, prefix := range disallowedClientPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// knownBots is checked in order; the first match names the bot.
var knownBots = []struct {
	pattern string
	name    string
}{
	{"googlebot", "Googlebot"},
	{"bingbot", "Bingbot"},
	{"yandex", "Yandex"},
	{"baidu", "Baidu"},
	{"duckduckbot", "DuckDuckBot"},
	{"facebookexternalhit", "Facebook"},
	{"twitterbot", "Twitterbot"},
	{"linkedinbot", "LinkedIn"},
	{"ahrefsbot", "Ahrefs"},
	{"semrushbot", "SEMrush"},
	{"mj12bot", "Majestic"},
	{"dotbot", "Moz"},
	{"slurp", "Yahoo Slurp"},
	{"uptimerobot", "UptimeRobot"},
	{"curl/", "curl"},
	{"wget/", "Wget"},
	{"python-requests/", "python-requests"},
	{"crawler", "Generic Crawler"},
	{"spider", "Generic Spider"},
}

// ExtractBotName names the bot behind ua, "Other Bot" for unnamed bots and
// "Unknown" when nothing matches.
func ExtractBotName(ua string) string {
	ua = strings.ToLower(ua)
	for _, b := range knownBots {
		if strings.Contains(ua, b.pattern) {
			return b.name
		}
	}
	if IsLikelyBotUserAgent(ua) {
		return "Other Bot"
	}
	return "Unknown"
}

// ParseUserAgent extracts browser, OS, and device from User-Agent string.
func ParseUserAgent(ua string) (browser, os, device string) {
	ua = strings.ToLower(ua)

	// Order matters: Edge and Opera UAs also contain "chrome".
	switch {
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr/"):
		browser = "Opera"
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	default:
		browser = "Other"
	}

	// Android UAs contain "linux".
	switch {
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "android"):
		os = "Android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		os = "iOS"
	case strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os"):
		os = "macOS"
	case strings.Contains(ua, "linux"):
		os = "Linux"
	default:
		os = "Other"
	}

	switch {
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		device = "Tablet"
	case strings.Contains(ua, "mobile"):
		device = "Mobile"
	default:
		device = "Desktop"
	}
	return
}

var referrerDomainRegex = regexp.MustCompile(`^https?://(?:www\.)?([^/:?#]+)`)

var searchEngines = []struct {
	marker string
	name   string
}{
	{"google.", "Google"},
	{"bing.", "Bing"},
	{"duckduckgo.", "DuckDuckGo"},
	{"yahoo.", "Yahoo"},
	{"github.", "GitHub"},
}

// CleanReferrer reduces a referrer URL to a display name or bare domain.
func CleanReferrer(ref string) string {
	if ref == "" {
		return "Direct"
	}
	lower := strings.ToLower(ref)
	for _, se := range searchEngines {
		if strings.Contains(lower, se.marker) {
			return se.name
		}
	}
	if m := referrerDomainRegex.FindStringSubmatch(ref); len(m) > 1 {
		return m[1]
	}
	return "Other"
}
