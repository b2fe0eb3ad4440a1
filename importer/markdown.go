// Package importer loads posts into the blog from outside sources: Markdown
// files with YAML front matter and RSS/Atom feeds.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eringen/blogsite"
)

const dateLayout = "2006-01-02"

// ErrNoFrontMatter is returned for Markdown files that do not open with a
// "---" delimited YAML block.
var ErrNoFrontMatter = errors.New("importer: missing front matter")

type frontMatter struct {
	Title   string   `yaml:"title"`
	Slug    string   `yaml:"slug"`
	Date    string   `yaml:"date"`
	Updated string   `yaml:"updated"`
	Tags    []string `yaml:"tags"`
	Summary string   `yaml:"summary"`
	Audio   string   `yaml:"audio"`
	Cover   string   `yaml:"cover"`
	Draft   bool     `yaml:"draft"`
}

// ParseMarkdown reads one post. name is the file name; its base becomes the
// slug when the front matter has none.
func ParseMarkdown(name string, data []byte) (blogsite.BlogPost, error) {
	meta, body, err := splitFrontMatter(data)
	if err != nil {
		return blogsite.BlogPost{}, err
	}
	var fm frontMatter
	if err := yaml.Unmarshal(meta, &fm); err != nil {
		return blogsite.BlogPost{}, fmt.Errorf("front matter: %w", err)
	}

	slug := strings.TrimSpace(fm.Slug)
	if slug == "" {
		slug = blogsite.Slugify(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	}
	if slug == "" {
		return blogsite.BlogPost{}, fmt.Errorf("no slug for %s", name)
	}
	title := strings.TrimSpace(fm.Title)
	if title == "" {
		title = slug
	}
	if _, err := time.Parse(dateLayout, fm.Date); err != nil {
		return blogsite.BlogPost{}, fmt.Errorf("date %q: want YYYY-MM-DD", fm.Date)
	}
	if fm.Updated != "" {
		if _, err := time.Parse(dateLayout, fm.Updated); err != nil {
			return blogsite.BlogPost{}, fmt.Errorf("updated %q: want YYYY-MM-DD", fm.Updated)
		}
	}

	content := strings.TrimSpace(string(body))
	summary := strings.TrimSpace(fm.Summary)
	if summary == "" {
		summary = firstParagraph(content)
	}
	return blogsite.BlogPost{
		Slug:       slug,
		Title:      title,
		Date:       fm.Date,
		Updated:    fm.Updated,
		Tags:       blogsite.FilterEmpty(fm.Tags),
		Summary:    summary,
		Content:    content,
		Published:  !fm.Draft,
		AudioURL:   strings.TrimSpace(fm.Audio),
		CoverImage: strings.TrimSpace(fm.Cover),
	}, nil
}

func splitFrontMatter(data []byte) (meta, body []byte, err error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, []byte("---\n")) {
		return nil, nil, ErrNoFrontMatter
	}
	rest := data[4:]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return nil, nil, ErrNoFrontMatter
	}
	meta = rest[:end]
	body = rest[end+4:]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	return meta, body, nil
}

// firstParagraph picks the first prose block, skipping headings.
func firstParagraph(content string) string {
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" || strings.HasPrefix(block, "#") || strings.HasPrefix(block, "```") {
			continue
		}
		return truncate(strings.Join(strings.Fields(block), " "), 200)
	}
	return ""
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	cut := string(r[:max])
	if i := strings.LastIndexByte(cut, ' '); i > max/2 {
		cut = cut[:i]
	}
	return cut + "…"
}

// LoadDir parses every *.md file in dir, ordered by file name.
func LoadDir(dir string) ([]blogsite.BlogPost, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	posts := make([]blogsite.BlogPost, 0, len(names))
	seen := make(map[string]string, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		p, err := ParseMarkdown(name, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if prev, ok := seen[p.Slug]; ok {
			return nil, fmt.Errorf("%s: slug %q already used by %s", name, p.Slug, prev)
		}
		seen[p.Slug] = name
		posts = append(posts, p)
	}
	return posts, nil
}
