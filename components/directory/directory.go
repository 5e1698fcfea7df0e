// components/directory/directory.go
//
// Directory component: category index, category listings, business detail,
// and their JSON equivalents.
//
// Context
// -------
// Every page here is a read path.  The catalog, listing, and business
// packages already turn backend failures into empty or placeholder values,
// so handlers only branch on the two explicit not-found signals:
// Resolution.NotFound() and business.ErrNotFound.
//
// Routes
// ------
//   GET /                         category index
//   GET /category/*               listings for a resolved category path
//   GET /business/{id}[/*]        business detail (optional category context)
//   GET /api/categories           tree and flattened entries
//   GET /api/listings/*           resolved category plus listings
//   GET /api/business/{id}[/*]    business detail record
//
// Notes
// -----
// • Oxford commas, two spaces after periods.

package directory

import (
	"context"
	"embed"
	"errors"
	"io/fs"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/bizdir/internal/business"
	"github.com/yanizio/bizdir/internal/catalog"
	"github.com/yanizio/bizdir/internal/component"
	"github.com/yanizio/bizdir/internal/listing"
	"github.com/yanizio/bizdir/internal/view"
	"github.com/yanizio/bizdir/internal/widget"
)

//go:embed templates
var files embed.FS

// Compile-time assertions.
var (
	_ component.Component        = (*Component)(nil)
	_ component.Initializer      = (*Component)(nil)
	_ component.TemplateProvider = (*Component)(nil)
)

// Categories is the slice of *catalog.Service the directory needs.
type Categories interface {
	Tree(ctx context.Context) []catalog.Node
	Entries(ctx context.Context) []catalog.Entry
	Resolve(ctx context.Context, segments []string) catalog.Resolution
}

// Listings is satisfied by *listing.Fetcher.
type Listings interface {
	Fetch(ctx context.Context, ep listing.Endpoint, segment string) []listing.Listing
}

// Businesses is satisfied by *business.Resolver.
type Businesses interface {
	Resolve(ctx context.Context, q business.Query) (*business.Detail, error)
}

// Component holds the read-path services.  Zero value is unusable until
// Init runs.
type Component struct {
	catalog  Categories
	listings Listings
	business Businesses
	view     *view.Engine
}

// Name returns the canonical component key.
func (c *Component) Name() string { return "directory" }

// Templates exposes the embedded templates/ directory.
func (c *Component) Templates() fs.FS { return files }

// Init copies the services out of deps and registers widgets.
func (c *Component) Init(d component.Deps) error {
	if d.Catalog == nil || d.Listings == nil || d.Business == nil || d.View == nil {
		return errors.New("directory: catalog, listings, business, and view are required")
	}
	c.catalog, c.listings, c.business, c.view = d.Catalog, d.Listings, d.Business, d.View
	widget.Register(&categoriesWidget{c: c})
	return nil
}

// Routes registers page and API endpoints.
func (c *Component) Routes(r chi.Router) {
	r.Get("/", c.home)
	r.Get("/category/*", c.category)
	r.Get("/business/{id}", c.businessPage)
	r.Get("/business/{id}/*", c.businessPage)

	r.Get("/api/categories", c.apiCategories)
	r.Get("/api/listings/*", c.apiListings)
	r.Get("/api/business/{id}", c.apiBusiness)
	r.Get("/api/business/{id}/*", c.apiBusiness)
}

// Register component at program start.
func init() { component.Register(&Component{}) }
