package directory

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/bizdir/internal/business"
	"github.com/yanizio/bizdir/internal/catalog"
	"github.com/yanizio/bizdir/internal/listing"
	"github.com/yanizio/bizdir/internal/logger"
	"github.com/yanizio/bizdir/internal/page"
	"github.com/yanizio/bizdir/internal/routing"
	"github.com/yanizio/bizdir/internal/view"
)

// categoryLink is a home-page entry with its direct children.
type categoryLink struct {
	Name     string
	Href     string
	Children []categoryLink
}

type categoryData struct {
	Category catalog.Resolution
	Listings []listing.Listing
}

type businessData struct {
	Business   *business.Detail
	BackHref   string
	ReviewPost string
	Review     map[string]string
}

func (c *Component) home(w http.ResponseWriter, r *http.Request) {
	pc := page.New(w, r)
	pc.Head.SetTitle("All categories")
	pc.Head.Description("Browse local businesses by category.")

	links := categoryLinks(c.catalog.Entries(r.Context()), 0)
	c.render(pc, w, "home", links)
}

func (c *Component) category(w http.ResponseWriter, r *http.Request) {
	pc := page.New(w, r)
	res := c.catalog.Resolve(r.Context(), catalog.Split(chi.URLParam(r, "*")))
	if res.NotFound() {
		c.view.Error(pc, w, http.StatusNotFound, "Category not found.")
		return
	}

	list := c.listings.Fetch(r.Context(), listing.EndpointSearch, res.ID)
	pc.Head.SetTitle(res.Name)
	pc.Head.Description(fmt.Sprintf("%s near you: %d listed businesses.", res.Name, len(list)))
	c.render(pc, w, "category", categoryData{Category: res, Listings: list})
}

func (c *Component) businessPage(w http.ResponseWriter, r *http.Request) {
	pc := page.New(w, r)
	q := business.Query{ID: chi.URLParam(r, "id"), Segments: catalog.Split(chi.URLParam(r, "*"))}

	d, err := c.business.Resolve(r.Context(), q)
	if errors.Is(err, business.ErrNotFound) {
		c.view.Error(pc, w, http.StatusNotFound, "Business not found.")
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("business resolve failed", zap.Error(err))
		c.view.Error(pc, w, http.StatusInternalServerError, "")
		return
	}

	pc.Head.SetTitle(d.DisplayName)
	if d.Description != "" {
		pc.Head.Description(d.Description)
	}
	if err := pc.Head.JSONLDValue(localBusiness(d)); err != nil {
		logger.FromContext(r.Context()).Warn("json-ld encode failed", zap.Error(err))
	}

	back := "/"
	if len(q.Segments) > 0 {
		back = routing.BuildPath("category", q.Path())
	}
	c.render(pc, w, "business", businessData{
		Business:   d,
		BackHref:   back,
		ReviewPost: routing.BuildPath("business", q.ID, "review"),
		Review: map[string]string{
			"business_id": q.ID,
			"next":        r.URL.Path,
		},
	})
}

// render writes a full page, answering 500 when the template fails.
func (c *Component) render(pc *page.Context, w http.ResponseWriter, name string, data any) {
	if err := c.view.Render(pc, w, "directory", name, data, view.CacheDefault); err != nil {
		logger.FromContext(pc.Request.Context()).Error("render failed",
			zap.String("template", name), zap.Error(err))
		c.view.Error(pc, w, http.StatusInternalServerError, "")
	}
}

// categoryLinks groups flattened entries under their top-level category.
// Entries arrive in pre-order, so a second-level entry always follows its
// parent.  limit <= 0 keeps every top-level category.
func categoryLinks(entries []catalog.Entry, limit int) []categoryLink {
	var out []categoryLink
	for _, e := range entries {
		href := routing.BuildPath("category", e.FullPath)
		switch strings.Count(e.FullPath, "/") {
		case 1:
			if limit > 0 && len(out) == limit {
				return out
			}
			out = append(out, categoryLink{Name: e.Name, Href: href})
		case 3:
			if n := len(out); n > 0 && strings.HasPrefix(href, out[n-1].Href+"/") {
				out[n-1].Children = append(out[n-1].Children, categoryLink{Name: e.Name, Href: href})
			}
		}
	}
	return out
}

// localBusiness builds the schema.org description of d.
func localBusiness(d *business.Detail) map[string]any {
	ld := map[string]any{
		"@context": "https://schema.org",
		"@type":    "LocalBusiness",
		"name":     d.DisplayName,
	}
	if d.Description != "" {
		ld["description"] = d.Description
	}
	if d.Phone != "" {
		ld["telephone"] = d.Phone
	}
	if d.Email != "" {
		ld["email"] = d.Email
	}
	if d.Website != "" {
		ld["url"] = d.Website
	}
	if len(d.Images) > 0 {
		ld["image"] = d.Images
	}
	addr := d.Address
	if addr == "" {
		addr = d.Location
	}
	if addr != "" {
		ld["address"] = map[string]any{"@type": "PostalAddress", "streetAddress": addr}
	}
	if d.Latitude != 0 || d.Longitude != 0 {
		ld["geo"] = map[string]any{"@type": "GeoCoordinates", "latitude": d.Latitude, "longitude": d.Longitude}
	}
	if d.ReviewCount > 0 && d.Rating > 0 {
		ld["aggregateRating"] = map[string]any{
			"@type":       "AggregateRating",
			"ratingValue": d.Rating,
			"reviewCount": d.ReviewCount,
		}
	}
	return ld
}
