package blogsite

// BlogPost is the core content type stored in SQLite and rendered by templates.
type BlogPost struct {
	Title      string
	Date       string // publish date, YYYY-MM-DD
	Updated    string // last edit, YYYY-MM-DD; empty if never edited
	Tags       []string
	Summary    string
	Link       string
	Slug       string
	Content    string
	Published  bool
	AudioURL   string // episode audio; posts with audio land in the audio sitemap and feed enclosures
	CoverImage string
}

// HasAudio reports whether the post carries an audio episode.
func (p BlogPost) HasAudio() bool {
	return p.AudioURL != ""
}

// LastModified is Updated when set, otherwise Date.
func (p BlogPost) LastModified() string {
	if p.Updated != "" {
		return p.Updated
	}
	return p.Date
}

// Image is an uploaded, re-encoded image kept under the static uploads dir.
type Image struct {
	Filename     string
	OriginalName string
	Width        int
	Height       int
	Size         int
	UploadedAt   string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
}
