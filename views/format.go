package views

import (
	"strings"
	"time"
)

// DateLayout is the storage format of post dates.
const DateLayout = "2006-01-02"

// FormatDate renders a stored YYYY-MM-DD date as "Jan 2, 2006". Unparseable
// input is returned unchanged.
func FormatDate(date string) string {
	t, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return date
	}
	return t.Format("Jan 2, 2006")
}

// ISODate renders a stored date as RFC 3339 for <time datetime>.
func ISODate(date string) string {
	t, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ReadingMinutes estimates reading time at 220 words per minute, never less
// than one minute.
func ReadingMinutes(content string) int {
	words := len(strings.Fields(content))
	m := (words + 219) / 220
	if m < 1 {
		return 1
	}
	return m
}

// TagClass returns CSS classes for a tag pill, with active variant.
func TagClass(active bool) string {
	return ClassNames(
		"inline-flex items-center rounded border border-ink dark:border-white/30 px-2.5 py-1",
		"text-[11px] font-semibold uppercase tracking-[0.12em] hover:-translate-y-0.5 hover:shadow-sm transition",
		map[string]bool{
			"bg-stone-100 dark:bg-neutral-700":              !active,
			"bg-ink dark:bg-white text-white dark:text-ink": active,
		},
	)
}
