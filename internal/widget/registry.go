// internal/widget/registry.go
//
// Widget registry and lookup helpers.
//
// A **Widget** is a reusable view fragment rendered inside a page.  Each
// concrete widget lives with its component (`components/<comp>/widgets.go`)
// and is registered when the component initialises, because most widgets
// need the component's dependencies (catalog service, view engine).  Form
// widgets are registered by internal/form as definitions load.
//
// The key used for registration is `<component>/<widget>`, e.g.
// "directory/categories", and must be returned by the widget's `ID` method.
//
// Template authors embed a widget with:
//
//	{{ widget .Ctx "directory/categories" (dict "limit" 8) }}
//
// Params are optional.  The helper looks up the widget, invokes `Render`,
// and returns `template.HTML`.
package widget

import (
	"sort"
	"sync"

	"github.com/yanizio/bizdir/internal/page"
)

// Widget represents a view fragment that can be embedded inside any page
// template.  Render returns the generated HTML and a cache policy hint that
// mirrors view.CachePolicy; a widget injecting a CSRF token returns
// CacheSkip.
//
// Errors should be returned, not written to the response, so the calling
// helper can decide how to surface the failure.
//
// Render MUST be concurrency-safe; multiple goroutines may call it.
type Widget interface {
	ID() string
	Render(pc *page.Context, params map[string]any) (html string, policy int, err error)
}

var (
	mu       sync.RWMutex
	registry = map[string]Widget{}
)

// Register adds w.  A duplicate key overwrites the former entry.
func Register(w Widget) {
	mu.Lock()
	registry[w.ID()] = w
	mu.Unlock()
}

// Lookup returns the widget or nil.
func Lookup(key string) Widget {
	mu.RLock()
	defer mu.RUnlock()
	return registry[key]
}

// Keys returns every registered key, sorted.  Useful for tests and the
// startup log.
func Keys() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
