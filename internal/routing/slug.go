// internal/routing/slug.go
//
// Slug and path helpers.
//
// • Slugify(text)      ─ converts display text into a URL-safe slug.
// • Deslugify(slug)    ─ best-effort inverse used only as a display fallback.
// • BuildPath(parts…)  ─ joins path parts with exactly one “/” and a leading
//   slash.
//
// Rules (Slugify)
// ---------------
// 1. Lower-case and trim.
// 2. Collapse every run of whitespace to one “-”.
// 3. Drop anything that is not a word character or “-”.
// 4. Collapse consecutive “-” and trim them from both ends.
//
// Notes
// -----
// • Deslugify is lossy.  Never compare its output against stored names.
// • Oxford commas, two spaces after periods.

package routing

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	reSpace    = regexp.MustCompile(`\s+`)
	reNonWord  = regexp.MustCompile(`[^a-z0-9_-]+`)
	reDashes   = regexp.MustCompile(`-{2,}`)
	titleCaser = cases.Title(language.English)
)

// Slugify converts text → lower-kebab slug.  Empty input returns "".
func Slugify(text string) string {
	s := strings.TrimSpace(strings.ToLower(text))
	if s == "" {
		return ""
	}
	s = reSpace.ReplaceAllString(s, "-")
	s = reNonWord.ReplaceAllString(s, "")
	s = reDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Deslugify turns "bar-baz" into "Bar Baz".
func Deslugify(slug string) string {
	words := strings.Fields(strings.ReplaceAll(slug, "-", " "))
	if len(words) == 0 {
		return ""
	}
	return titleCaser.String(strings.Join(words, " "))
}

// BuildPath joins parts ensuring exactly one leading slash and no duplicate
// separators.  Empty parts are skipped; no parts yields "/".
func BuildPath(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			clean = append(clean, p)
		}
	}
	return "/" + strings.Join(clean, "/")
}
