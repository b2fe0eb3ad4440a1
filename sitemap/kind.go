// Package sitemap builds, caches and serves the XML sitemap documents of the
// blog: a sitemap index and three child sitemaps (posts, posts with audio,
// tags). Documents are generated lazily on read and kept in a Store until the
// configured Freshness policy says they are stale.
package sitemap

import (
	"errors"
	"fmt"
)

// Kind identifies one of the sitemap document variants.
type Kind string

const (
	KindIndex      Kind = "index"
	KindPosts      Kind = "posts"
	KindPostsAudio Kind = "posts-audio"
	KindTags       Kind = "tags"
)

// ErrUnknownKind is returned when a kind outside the fixed set is requested.
var ErrUnknownKind = errors.New("sitemap: unknown kind")

// Kinds returns every sitemap kind, index first.
func Kinds() []Kind {
	return []Kind{KindIndex, KindPosts, KindPostsAudio, KindTags}
}

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindIndex, KindPosts, KindPostsAudio, KindTags:
		return true
	}
	return false
}

// Path returns the URL path the kind is served under.
func (k Kind) Path() string {
	if k == KindIndex {
		return "/sitemap.xml"
	}
	return "/sitemaps/" + string(k) + ".xml"
}

// FailureMessage is the static body returned when the kind cannot be produced.
func (k Kind) FailureMessage() string {
	switch k {
	case KindIndex:
		return "Failed to generate sitemap index"
	case KindPosts:
		return "Failed to generate posts sitemap"
	case KindPostsAudio:
		return "Failed to generate posts audio sitemap"
	case KindTags:
		return "Failed to generate tags sitemap"
	}
	return "Failed to generate sitemap"
}
