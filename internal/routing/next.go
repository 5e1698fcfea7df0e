package routing

import (
	"net/url"
	"strings"
)

// SafeNext returns target when it is a local absolute path, else "/".
// Redirect parameters (next, return_to) pass through here so a crafted
// link can never bounce a visitor off-site.
func SafeNext(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return target
}
