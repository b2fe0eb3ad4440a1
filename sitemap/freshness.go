package sitemap

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Freshness decides whether a stored document may be served as is.
type Freshness func(ctx context.Context, doc Document) bool

// VersionFunc reports the fingerprint of the current content.
type VersionFunc func(ctx context.Context) (string, error)

// Exists treats any stored document as fresh.
func Exists() Freshness {
	return func(context.Context, Document) bool { return true }
}

// MaxAge keeps documents fresh for ttl after generation.
func MaxAge(ttl time.Duration, now func() time.Time) Freshness {
	if now == nil {
		now = time.Now
	}
	return func(_ context.Context, doc Document) bool {
		return now().Sub(doc.GeneratedAt) < ttl
	}
}

// MatchesVersion keeps documents fresh while the content fingerprint they
// were built from is still current. A failing VersionFunc makes them stale.
func MatchesVersion(current VersionFunc) Freshness {
	return func(ctx context.Context, doc Document) bool {
		if doc.Version == "" {
			return false
		}
		v, err := current(ctx)
		if err != nil {
			return false
		}
		return v == doc.Version
	}
}

// All is fresh only when every policy is.
func All(policies ...Freshness) Freshness {
	return func(ctx context.Context, doc Document) bool {
		for _, p := range policies {
			if !p(ctx, doc) {
				return false
			}
		}
		return true
	}
}

// ParseFreshness maps a configured policy name to a Freshness.
// Recognized names: exists, ttl, version.
func ParseFreshness(name string, ttl time.Duration, version VersionFunc) (Freshness, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "exists":
		return Exists(), nil
	case "ttl":
		if ttl <= 0 {
			return nil, fmt.Errorf("sitemap: ttl freshness needs a positive ttl, got %s", ttl)
		}
		return MaxAge(ttl, time.Now), nil
	case "version", "":
		if version == nil {
			return nil, fmt.Errorf("sitemap: version freshness needs a version source")
		}
		return MatchesVersion(version), nil
	}
	return nil, fmt.Errorf("sitemap: unknown freshness policy %q", name)
}
