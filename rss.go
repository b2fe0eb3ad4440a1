package blogsite

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string      `xml:"title"`
	Link          string      `xml:"link"`
	Description   string      `xml:"description"`
	Self          rssAtomLink `xml:"atom:link"`
	LastBuildDate string      `xml:"lastBuildDate,omitempty"`
	Items         []rssItem   `xml:"item"`
}

type rssAtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string        `xml:"title"`
	Link        string        `xml:"link"`
	Description string        `xml:"description"`
	PubDate     string        `xml:"pubDate,omitempty"`
	GUID        string        `xml:"guid"`
	Categories  []string      `xml:"category"`
	Enclosure   *rssEnclosure `xml:"enclosure"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length string `xml:"length,attr"`
}

// RSS encodes posts as an RSS 2.0 feed. Posts with audio carry an
// enclosure so podcast clients pick them up.
func RSS(cfg SiteConfig, posts []BlogPost) ([]byte, error) {
	base := cfg.URL
	items := make([]rssItem, 0, len(posts))
	var newest string
	for _, p := range posts {
		pubDate := ""
		if t := parseDate(p.Date); !t.IsZero() {
			pubDate = t.Format(time.RFC1123Z)
		}
		if lm := p.LastModified(); lm > newest {
			newest = lm
		}
		postURL := BuildURL(base, "blog", p.Slug)
		item := rssItem{
			Title:       p.Title,
			Link:        postURL,
			Description: p.Summary,
			PubDate:     pubDate,
			GUID:        postURL,
			Categories:  p.Tags,
		}
		if p.HasAudio() {
			item.Enclosure = &rssEnclosure{URL: absoluteURL(base, p.AudioURL), Type: "audio/mpeg", Length: "0"}
		}
		items = append(items, item)
	}
	feed := rssXML{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: rssChannel{
			Title:       cfg.Name,
			Link:        BuildURL(base),
			Description: cfg.Description,
			Self:        rssAtomLink{Href: absoluteURL(base, "/feed.xml"), Rel: "self", Type: "application/rss+xml"},
			Items:       items,
		},
	}
	if t := parseDate(newest); !t.IsZero() {
		feed.Channel.LastBuildDate = t.Format(time.RFC1123Z)
	}
	out, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), "")
	if err != nil {
		return err
	}
	body, err := RSS(a.Config, posts)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, mimeRSS, body)
}
