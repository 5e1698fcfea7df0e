// internal/routing/alias.go
//
// Alias-resolution cache and middleware (import-cycle safe).
//
// Context
// -------
// Visitors may type a short path such as `/doctors`.  When "doctors" is the
// slug of a top-level category, the request is served as if it asked for
// the canonical `/category/doctors/cat5`.  A lightweight interface,
// AliasSource, keeps this package independent of *catalog*, which itself
// imports routing for slugs.
//
// Workflow
// --------
//   1. cmd/web constructs AliasCache via routing.NewAliasCache(catalogSvc, ttl).
//   2. The router wires routing.Middleware(cache) early in the chain.
//   3. Middleware refreshes the map when older than ttl, then rewrites
//      r.URL.Path on a hit.  Misses fall through untouched.
//
// Notes
// -----
// • Only GET and HEAD requests for a single path segment are candidates.
// • Reserved first segments (routes the app owns) are never aliased, even if
//   a category happens to share the slug.
// • A failed refresh keeps the previous map and waits a full ttl before the
//   next attempt, so a down backend is not probed on every request.
// • Oxford commas, two spaces after periods.

package routing

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/bizdir/internal/logger"
)

// Reserved lists first path segments owned by application routes.
var Reserved = map[string]struct{}{
	"api": {}, "category": {}, "business": {}, "login": {}, "signup": {},
	"logout": {}, "healthz": {}, "metrics": {}, "themes": {}, "static": {},
}

// AliasSource yields slug → target path pairs.  *catalog.Service satisfies it.
type AliasSource interface {
	Aliases(ctx context.Context) (map[string]string, error)
}

// -----------------------------------------------------------------------------
// AliasCache
// -----------------------------------------------------------------------------

// AliasCache stores alias→target pairs plus TTL state.  Zero value is
// unusable; construct with NewAliasCache.
type AliasCache struct {
	src AliasSource
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	data     map[string]string
	loadedAt time.Time
	loading  bool
}

// NewAliasCache returns an empty cache that loads from src on first use.
func NewAliasCache(src AliasSource, ttl time.Duration) *AliasCache {
	return &AliasCache{src: src, ttl: ttl, now: time.Now, data: map[string]string{}}
}

// Load refreshes all aliases from the source.  On error the previous map
// stays in place.
func (c *AliasCache) Load(ctx context.Context) error {
	fresh, err := c.src.Aliases(ctx)

	c.mu.Lock()
	c.loadedAt = c.now()
	if err == nil {
		c.data = fresh
	}
	c.mu.Unlock()

	if err != nil {
		return err
	}
	logger.FromContext(ctx).Debug("alias cache load", zap.Int("count", len(fresh)))
	return nil
}

// Lookup returns the target for slug.
func (c *AliasCache) Lookup(slug string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	target, ok := c.data[slug]
	return target, ok
}

// claimRefresh reports whether the caller should reload.  Only one caller
// wins per expiry.
func (c *AliasCache) claimRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading || (!c.loadedAt.IsZero() && c.now().Sub(c.loadedAt) < c.ttl) {
		return false
	}
	c.loading = true
	return true
}

func (c *AliasCache) doneRefresh() {
	c.mu.Lock()
	c.loading = false
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------
// Middleware factory
// -----------------------------------------------------------------------------

// Middleware returns a Chi middleware that rewrites single-segment alias
// paths through cache.
func Middleware(cache *AliasCache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug, ok := candidate(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			if cache.claimRefresh() {
				if err := cache.Load(r.Context()); err != nil {
					logger.FromContext(r.Context()).Warn("alias cache reload failed", zap.Error(err))
				}
				cache.doneRefresh()
			}

			if target, hit := cache.Lookup(slug); hit {
				logger.FromContext(r.Context()).Debug("alias rewrite",
					zap.String("from", r.URL.Path),
					zap.String("to", target))
				r.URL.Path = target
				r.URL.RawPath = ""
				r.RequestURI = r.URL.RequestURI()
			}
			next.ServeHTTP(w, r)
		})
	}
}

// candidate extracts the slug from a GET/HEAD request for "/<slug>" or
// "/<slug>/".
func candidate(r *http.Request) (string, bool) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return "", false
	}
	seg := strings.Trim(r.URL.Path, "/")
	if seg == "" || strings.Contains(seg, "/") || strings.Contains(seg, ".") {
		return "", false
	}
	seg = strings.ToLower(seg)
	if _, reserved := Reserved[seg]; reserved {
		return "", false
	}
	return seg, true
}
