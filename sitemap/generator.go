package sitemap

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	nsSitemap   = "http://www.sitemaps.org/schemas/sitemap/0.9"
	nsImage     = "http://www.google.com/schemas/sitemap-image/1.1"
	nsVideo     = "http://www.google.com/schemas/sitemap-video/1.1"
	maxVideoDoc = 2048
)

// PostSummary is the slice of a post the generator needs.
type PostSummary struct {
	Slug       string
	Title      string
	Summary    string
	Tags       []string
	Published  time.Time
	Updated    time.Time
	AudioURL   string
	CoverImage string
}

// LastMod is the updated date when the post was edited, otherwise its
// publish date.
func (p PostSummary) LastMod() time.Time {
	if !p.Updated.IsZero() {
		return p.Updated
	}
	return p.Published
}

// HasAudio reports whether the post carries an audio file.
func (p PostSummary) HasAudio() bool {
	return strings.TrimSpace(p.AudioURL) != ""
}

// Source supplies the published posts a sitemap is built from.
type Source interface {
	Posts(ctx context.Context) ([]PostSummary, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]PostSummary, error)

func (f SourceFunc) Posts(ctx context.Context) ([]PostSummary, error) { return f(ctx) }

// Builder produces a document for a kind.
type Builder interface {
	Build(ctx context.Context, kind Kind) (Document, error)
}

// Generator builds sitemap XML from a Source. The output depends only on the
// base URL and the posts, so the same snapshot always yields the same bytes.
type Generator struct {
	baseURL   string
	source    Source
	thumbnail string
	now       func() time.Time
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithDefaultThumbnail sets the thumbnail used for audio entries without a
// cover image. Relative paths are resolved against the base URL.
func WithDefaultThumbnail(u string) GeneratorOption {
	return func(g *Generator) { g.thumbnail = u }
}

// WithClock overrides the clock used to stamp GeneratedAt.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// NewGenerator returns a Generator for the site at baseURL.
func NewGenerator(baseURL string, src Source, opts ...GeneratorOption) *Generator {
	g := &Generator{
		baseURL:   strings.TrimRight(baseURL, "/"),
		source:    src,
		thumbnail: "/favicon.svg",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Version fingerprints the current content snapshot.
func (g *Generator) Version(ctx context.Context) (string, error) {
	posts, err := g.posts(ctx)
	if err != nil {
		return "", err
	}
	return g.fingerprint(posts), nil
}

// Build reads the source and renders the document for kind.
func (g *Generator) Build(ctx context.Context, kind Kind) (Document, error) {
	if !kind.Valid() {
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	posts, err := g.posts(ctx)
	if err != nil {
		return Document{}, err
	}
	var body []byte
	switch kind {
	case KindIndex:
		body, err = g.renderIndex(posts)
	case KindPosts:
		body, err = g.renderPosts(posts)
	case KindPostsAudio:
		body, err = g.renderPostsAudio(posts)
	case KindTags:
		body, err = g.renderTags(posts)
	}
	if err != nil {
		return Document{}, fmt.Errorf("render %s sitemap: %w", kind, err)
	}
	return Document{
		Kind:        kind,
		XML:         body,
		GeneratedAt: g.now().UTC(),
		Version:     g.fingerprint(posts),
	}, nil
}

// posts loads the source and orders it newest first, slug breaking ties.
func (g *Generator) posts(ctx context.Context) ([]PostSummary, error) {
	if g.source == nil {
		return nil, fmt.Errorf("sitemap: no content source")
	}
	posts, err := g.source.Posts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}
	for _, p := range posts {
		if strings.TrimSpace(p.Slug) == "" {
			return nil, fmt.Errorf("post %q has no slug", p.Title)
		}
	}
	sorted := make([]PostSummary, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].LastMod(), sorted[j].LastMod()
		if !a.Equal(b) {
			return a.After(b)
		}
		return sorted[i].Slug < sorted[j].Slug
	})
	return sorted, nil
}

func (g *Generator) fingerprint(posts []PostSummary) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n", g.baseURL)
	for _, p := range posts {
		fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s|%s|%s\n",
			p.Slug, p.Title, p.Summary, strings.Join(p.Tags, ","),
			formatDate(p.Published), formatDate(p.Updated), p.AudioURL, p.CoverImage)
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// url appends escaped path segments to the base URL with a trailing slash,
// the same shape the page routes use. A segment containing "/" stays one
// segment ("a/b" becomes "a%2Fb").
func (g *Generator) url(segments ...string) string {
	var b strings.Builder
	b.WriteString(g.baseURL)
	b.WriteByte('/')
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		b.WriteString(url.PathEscape(seg))
		b.WriteByte('/')
	}
	return b.String()
}

func (g *Generator) file(name string) string {
	return g.baseURL + "/" + strings.TrimLeft(name, "/")
}

func (g *Generator) absolute(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref
	}
	return g.file(ref)
}

type indexXML struct {
	XMLName  xml.Name        `xml:"sitemapindex"`
	XMLNS    string          `xml:"xmlns,attr"`
	Sitemaps []indexEntryXML `xml:"sitemap"`
}

type indexEntryXML struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type urlSetXML struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []urlXML `xml:"url"`
}

type urlXML struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type audioURLSetXML struct {
	XMLName    xml.Name      `xml:"urlset"`
	XMLNS      string        `xml:"xmlns,attr"`
	XMLNSImage string        `xml:"xmlns:image,attr"`
	XMLNSVideo string        `xml:"xmlns:video,attr"`
	URLs       []audioURLXML `xml:"url"`
}

type audioURLXML struct {
	Loc     string    `xml:"loc"`
	LastMod string    `xml:"lastmod,omitempty"`
	Image   *imageXML `xml:"image:image,omitempty"`
	Video   videoXML  `xml:"video:video"`
}

type imageXML struct {
	Loc string `xml:"image:loc"`
}

type videoXML struct {
	ThumbnailLoc    string `xml:"video:thumbnail_loc"`
	Title           string `xml:"video:title"`
	Description     string `xml:"video:description"`
	ContentLoc      string `xml:"video:content_loc"`
	PublicationDate string `xml:"video:publication_date,omitempty"`
}

func (g *Generator) renderIndex(posts []PostSummary) ([]byte, error) {
	audio := audioPosts(posts)
	entries := []indexEntryXML{
		{Loc: g.file(KindPosts.Path()), LastMod: formatDate(newest(posts))},
		{Loc: g.file(KindPostsAudio.Path()), LastMod: formatDate(newest(audio))},
		{Loc: g.file(KindTags.Path()), LastMod: formatDate(newest(taggedPosts(posts)))},
	}
	return encode(indexXML{XMLNS: nsSitemap, Sitemaps: entries})
}

func (g *Generator) renderPosts(posts []PostSummary) ([]byte, error) {
	urls := make([]urlXML, 0, len(posts)+1)
	urls = append(urls, urlXML{Loc: g.url(), LastMod: formatDate(newest(posts))})
	for _, p := range posts {
		urls = append(urls, urlXML{
			Loc:     g.url("blog", p.Slug),
			LastMod: formatDate(p.LastMod()),
		})
	}
	return encode(urlSetXML{XMLNS: nsSitemap, URLs: urls})
}

func (g *Generator) renderPostsAudio(posts []PostSummary) ([]byte, error) {
	audio := audioPosts(posts)
	urls := make([]audioURLXML, 0, len(audio))
	for _, p := range audio {
		thumb := g.absolute(g.thumbnail)
		if p.CoverImage != "" {
			thumb = g.absolute(p.CoverImage)
		}
		entry := audioURLXML{
			Loc:     g.url("blog", p.Slug),
			LastMod: formatDate(p.LastMod()),
			Video: videoXML{
				ThumbnailLoc:    thumb,
				Title:           p.Title,
				Description:     truncate(firstNonEmpty(p.Summary, p.Title), maxVideoDoc),
				ContentLoc:      g.absolute(p.AudioURL),
				PublicationDate: formatDate(p.Published),
			},
		}
		if p.CoverImage != "" {
			entry.Image = &imageXML{Loc: thumb}
		}
		urls = append(urls, entry)
	}
	return encode(audioURLSetXML{
		XMLNS:      nsSitemap,
		XMLNSImage: nsImage,
		XMLNSVideo: nsVideo,
		URLs:       urls,
	})
}

func (g *Generator) renderTags(posts []PostSummary) ([]byte, error) {
	lastMod := make(map[string]time.Time)
	for _, p := range posts {
		for _, t := range p.Tags {
			tag := strings.ToLower(strings.TrimSpace(t))
			if tag == "" {
				continue
			}
			if lm, ok := lastMod[tag]; !ok || p.LastMod().After(lm) {
				lastMod[tag] = p.LastMod()
			}
		}
	}
	tags := make([]string, 0, len(lastMod))
	for t := range lastMod {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	urls := make([]urlXML, 0, len(tags))
	for _, t := range tags {
		urls = append(urls, urlXML{
			Loc:     g.url("tags", t),
			LastMod: formatDate(lastMod[t]),
		})
	}
	return encode(urlSetXML{XMLNS: nsSitemap, URLs: urls})
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func audioPosts(posts []PostSummary) []PostSummary {
	var out []PostSummary
	for _, p := range posts {
		if p.HasAudio() {
			out = append(out, p)
		}
	}
	return out
}

func taggedPosts(posts []PostSummary) []PostSummary {
	var out []PostSummary
	for _, p := range posts {
		for _, t := range p.Tags {
			if strings.TrimSpace(t) != "" {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func newest(posts []PostSummary) time.Time {
	var latest time.Time
	for _, p := range posts {
		if lm := p.LastMod(); lm.After(latest) {
			latest = lm
		}
	}
	return latest
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
