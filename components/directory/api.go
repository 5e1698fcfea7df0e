package directory

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/bizdir/internal/business"
	"github.com/yanizio/bizdir/internal/catalog"
	"github.com/yanizio/bizdir/internal/listing"
	"github.com/yanizio/bizdir/internal/logger"
)

// envelope mirrors the backend's {status, message, data} shape so browser
// code can treat both the same.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func (c *Component) apiCategories(w http.ResponseWriter, r *http.Request) {
	tree := c.catalog.Tree(r.Context())
	writeJSON(w, r, http.StatusOK, envelope{Status: "success", Data: map[string]any{
		"categories": tree,
		"entries":    catalog.Flatten(tree),
	}})
}

func (c *Component) apiListings(w http.ResponseWriter, r *http.Request) {
	res := c.catalog.Resolve(r.Context(), catalog.Split(chi.URLParam(r, "*")))
	if res.NotFound() {
		writeJSON(w, r, http.StatusNotFound, envelope{Status: "error", Message: "category not found"})
		return
	}
	list := c.listings.Fetch(r.Context(), listing.EndpointSearch, res.ID)
	writeJSON(w, r, http.StatusOK, envelope{Status: "success", Data: map[string]any{
		"category": res,
		"listings": list,
	}})
}

func (c *Component) apiBusiness(w http.ResponseWriter, r *http.Request) {
	q := business.Query{ID: chi.URLParam(r, "id"), Segments: catalog.Split(chi.URLParam(r, "*"))}
	d, err := c.business.Resolve(r.Context(), q)
	switch {
	case errors.Is(err, business.ErrNotFound):
		writeJSON(w, r, http.StatusNotFound, envelope{Status: "error", Message: "business not found"})
	case err != nil:
		logger.FromContext(r.Context()).Error("business resolve failed", zap.Error(err))
		writeJSON(w, r, http.StatusInternalServerError, envelope{Status: "error", Message: "internal error"})
	default:
		writeJSON(w, r, http.StatusOK, envelope{Status: "success", Data: d})
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(r.Context()).Warn("json encode failed", zap.Error(err))
	}
}
