package blogsite

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"
)

// Slugify converts a title to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// TagURL is the site-relative path of a tag page.
func TagURL(tag string) string {
	return "/tags/" + url.PathEscape(normalizeTag(tag)) + "/"
}

// absoluteURL resolves ref against base; absolute refs pass through.
func absoluteURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}

// FilterEmpty trims values and drops the empty ones.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// FilterRelatedPosts returns the posts sharing at least one tag with current,
// capped at max (no cap when max <= 0).
func FilterRelatedPosts(current BlogPost, posts []BlogPost, max int) []BlogPost {
	want := make(map[string]bool, len(current.Tags))
	for _, t := range current.Tags {
		if t = normalizeTag(t); t != "" {
			want[t] = true
		}
	}
	var related []BlogPost
	for _, p := range posts {
		if p.Slug == current.Slug {
			continue
		}
		for _, t := range p.Tags {
			if want[normalizeTag(t)] {
				related = append(related, p)
				break
			}
		}
		if max > 0 && len(related) == max {
			break
		}
	}
	return related
}

// JoinTags joins tags with ", ".
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// PathEscape escapes a string for use in a URL path.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

// PostMeta builds the OpenGraph metadata of a post page.
func PostMeta(post BlogPost, cfg SiteConfig) PageMeta {
	m := PageMeta{
		Title:       post.Title + " | " + cfg.Name,
		Description: post.Summary,
		URL:         BuildURL(cfg.URL, "blog", post.Slug),
		OGType:      "article",
	}
	if post.CoverImage != "" {
		m.Image = absoluteURL(cfg.URL, post.CoverImage)
	}
	return m
}

// WebsiteJsonLD returns a JSON-LD string for a WebSite schema.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "WebSite",
		"name":        cfg.Name,
		"url":         BuildURL(cfg.URL),
		"description": cfg.Description,
	}
	if cfg.Author != "" {
		data["author"] = person(cfg.Author)
	}
	return marshalJsonLD(data)
}

// BlogPostingJsonLD returns a JSON-LD string for a BlogPosting schema.
// Posts with audio also describe the episode as associated media.
func BlogPostingJsonLD(post BlogPost, cfg SiteConfig) string {
	postURL := BuildURL(cfg.URL, "blog", post.Slug)
	data := map[string]any{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      post.Title,
		"description":   post.Summary,
		"datePublished": post.Date,
		"dateModified":  post.LastModified(),
		"url":           postURL,
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if cfg.Author != "" {
		data["author"] = person(cfg.Author)
	}
	if cfg.Name != "" {
		data["publisher"] = map[string]string{"@type": "Organization", "name": cfg.Name}
	}
	if len(post.Tags) > 0 {
		data["keywords"] = JoinTags(post.Tags)
	}
	if post.CoverImage != "" {
		data["image"] = absoluteURL(cfg.URL, post.CoverImage)
	}
	if post.HasAudio() {
		data["associatedMedia"] = map[string]string{
			"@type":      "AudioObject",
			"contentUrl": absoluteURL(cfg.URL, post.AudioURL),
			"name":       post.Title,
		}
	}
	return marshalJsonLD(data)
}

func person(name string) map[string]string {
	return map[string]string{"@type": "Person", "name": name}
}

func marshalJsonLD(data map[string]any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
