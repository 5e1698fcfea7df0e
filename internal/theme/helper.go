//
//  internal/theme/helper.go
//
//  Theme functions that expose page and RequestInfo fields with short,
//  ergonomic names.  These helpers prevent HTML authors from poking
//  through nested structs repeatedly.
//

package theme

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/yanizio/bizdir/internal/page"
	"github.com/yanizio/bizdir/internal/routing"
)

// FuncMap returns the theme function map.  asset resolves theme asset URLs.
func FuncMap(asset func(string) string) template.FuncMap {
	return template.FuncMap{
		"asset": asset,

		// Geo helpers
		"clientIP": func(c *page.Context) string {
			if c.Info == nil || c.Info.Geo.IP == nil {
				return ""
			}
			return c.Info.Geo.IP.String()
		},
		"country": func(c *page.Context) string {
			if c.Info == nil {
				return ""
			}
			return c.Info.Geo.CountryISO
		},
		"city": func(c *page.Context) string {
			if c.Info == nil {
				return ""
			}
			return c.Info.Geo.City
		},

		// UA helpers
		"browser": func(c *page.Context) string {
			if c.Info == nil {
				return ""
			}
			return c.Info.UA.Browser
		},
		"device": func(c *page.Context) string {
			if c.Info == nil {
				return ""
			}
			return c.Info.UA.Device
		},
		"isBot": func(c *page.Context) bool { return c.IsBot() },

		// Session helpers
		"loggedIn": func(c *page.Context) bool { return c.LoggedIn() },
		"userName": func(c *page.Context) string {
			if u := c.User(); u != nil {
				if u.Name != "" {
					return u.Name
				}
				return u.Mobile
			}
			return ""
		},

		// URL helpers
		"path":    func(parts ...string) string { return routing.BuildPath(parts...) },
		"slugify": routing.Slugify,

		// Formatting
		"stars":  stars,
		"rating": func(f float64) string { return fmt.Sprintf("%.1f", f) },
	}
}

// stars renders a 0–5 rating as filled and empty glyphs, rounded to the
// nearest whole star.
func stars(r float64) string {
	n := int(r + 0.5)
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}
