// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/web blank-imports the
// components it wants, then calls Boot, which for every component in name
// order:
//
//   1. calls Init(deps) when the component implements Initializer,
//   2. registers its embedded templates with the view engine
//      (TemplateProvider),
//   3. loads its embedded YAML forms (FormProvider), and
//   4. registers its routes on the shared router inside a chi Group, so
//      component paths share one tree and never collide on Mount("/").
//
// Components never reach for globals; everything they need arrives in Deps.

package component

import (
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/bizdir/internal/backend"
	"github.com/yanizio/bizdir/internal/business"
	"github.com/yanizio/bizdir/internal/catalog"
	"github.com/yanizio/bizdir/internal/config"
	"github.com/yanizio/bizdir/internal/form"
	"github.com/yanizio/bizdir/internal/listing"
	"github.com/yanizio/bizdir/internal/message"
	"github.com/yanizio/bizdir/internal/view"
)

// Deps is the shared wiring handed to every component at boot.
type Deps struct {
	Config   *config.Config
	Backend  *backend.Client
	Catalog  *catalog.Service
	Listings *listing.Fetcher
	Business *business.Resolver
	Bus      *message.Bus
	View     *view.Engine
}

// Initializer is optional.  If a Component implements it, Boot calls
// Init(deps) once before mounting routes.
type Initializer interface {
	Init(Deps) error
}

// TemplateProvider is optional.  The returned FS must hold a templates/
// directory; it is registered with the view engine under Name().
type TemplateProvider interface {
	Templates() fs.FS
}

// FormProvider is optional.  Every *.yaml under forms/ in the returned FS
// is registered with internal/form.
type FormProvider interface {
	Forms() fs.FS
}

// Component contract.
//
// Routes registers BOTH page and API endpoints with absolute paths, e.g:
//
//	func (c *Component) Routes(r chi.Router) {
//		r.Get("/login", c.getLogin)
//		r.Post("/api/reviews", c.postReview)
//	}
type Component interface {
	Name() string
	Routes(r chi.Router)
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Boot initialises every registered component and mounts it on r.
func Boot(r chi.Router, d Deps) error {
	for _, c := range All() {
		if err := Mount(r, c, d); err != nil {
			return err
		}
	}
	return nil
}

// Mount wires one component.  Exposed for tests that build a router
// without touching the global registry.
func Mount(r chi.Router, c Component, d Deps) error {
	if in, ok := c.(Initializer); ok {
		if err := in.Init(d); err != nil {
			return fmt.Errorf("component %s: init: %w", c.Name(), err)
		}
	}
	if tp, ok := c.(TemplateProvider); ok && d.View != nil {
		d.View.Register(c.Name(), tp.Templates())
	}
	if fp, ok := c.(FormProvider); ok {
		if err := form.RegisterFS(fp.Forms(), "forms"); err != nil {
			return fmt.Errorf("component %s: forms: %w", c.Name(), err)
		}
	}
	r.Group(c.Routes)
	return nil
}
