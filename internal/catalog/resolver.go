// internal/catalog/resolver.go
//
// Resolve maps URL slug segments to a category.
//
// An exact FullPath match wins.  Otherwise the last segment is taken as the
// id and the name is derived from the URL (second-to-last segment, or the
// only segment), so a stale link still renders a plausible title.  Resolve
// never fails; an empty id is the not-found signal.

package catalog

import (
	"strings"

	"github.com/yanizio/bizdir/internal/metrics"
	"github.com/yanizio/bizdir/internal/routing"
)

// Resolution is the outcome of Resolve.  Matched is false for URL-derived
// fallbacks.
type Resolution struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Path    string `json:"path"`
	Matched bool   `json:"matched"`
}

// NotFound reports that no listing query should be made.
func (r Resolution) NotFound() bool { return r.ID == "" }

// Resolve looks segments up in entries.
func Resolve(entries []Entry, segments []string) Resolution {
	segs := cleanSegments(segments)
	path := strings.Join(segs, "/")

	for _, e := range entries {
		if e.FullPath == path && path != "" {
			metrics.CategoryResolveTotal.WithLabelValues("matched").Inc()
			return Resolution{ID: segs[len(segs)-1], Name: e.Name, Path: path, Matched: true}
		}
	}

	if len(segs) == 0 {
		metrics.CategoryResolveTotal.WithLabelValues("not_found").Inc()
		return Resolution{}
	}

	metrics.CategoryResolveTotal.WithLabelValues("fallback").Inc()
	return Resolution{
		ID:   segs[len(segs)-1],
		Name: fallbackName(segs),
		Path: path,
	}
}

// fallbackName titles the segment before the id, walking back past
// segments that deslugify to nothing.
func fallbackName(segs []string) string {
	end := len(segs) - 1
	if end == 0 {
		end = 1
	}
	for i := end - 1; i >= 0; i-- {
		if name := routing.Deslugify(segs[i]); name != "" {
			return name
		}
	}
	return "Category"
}

// cleanSegments drops empty segments left by doubled or trailing slashes.
func cleanSegments(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Split breaks a wildcard route value into segments.
func Split(rest string) []string {
	return cleanSegments(strings.Split(rest, "/"))
}
