// urlinfo.go
//
// URLInfo captures only the fields pages need:
//
//   - Host     – r.Host without the :port suffix.
//   - Path     – the raw URL path ("/category/doctors/cat5").
//   - Route    – Path stripped of leading/trailing "/".  Root becomes "".
//   - Segments – Route split on "/", empty for the root.
//   - QueryRaw, Query – unchanged from *url.URL.
//
// These keys are enough for handlers and widgets to derive canonical URLs,
// breadcrumbs, and return-to targets.
package page

import (
	"net/http"
	"net/url"
	"strings"
)

// URLInfo is stored in page.Context.
type URLInfo struct {
	Host     string
	Path     string
	Route    string
	Segments []string
	QueryRaw string
	Query    url.Values
}

// newURLInfo builds URLInfo from the incoming request.
func newURLInfo(r *http.Request) URLInfo {
	route := strings.Trim(r.URL.Path, "/")
	var segs []string
	if route != "" {
		segs = strings.Split(route, "/")
	}
	return URLInfo{
		Host:     stripPort(r.Host),
		Path:     r.URL.Path,
		Route:    route,
		Segments: segs,
		QueryRaw: r.URL.RawQuery,
		Query:    r.URL.Query(),
	}
}

// stripPort removes :port from the Host header when present.
func stripPort(h string) string {
	if i := strings.LastIndexByte(h, ':'); i != -1 && !strings.HasSuffix(h, "]") {
		return h[:i]
	}
	return h
}
