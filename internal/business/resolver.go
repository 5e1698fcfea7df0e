// internal/business/resolver.go
//
// Business detail resolver.
//
// Context
// -------
// A detail URL looks like /business/{id}/{category path…}.  No single
// backend call reliably returns one business, so the resolver runs an
// ordered list of strategies and the first hit wins:
//
//  1. ListingsSearch  ─ search the category's for-web listing set by id.
//  2. DirectFetch     ─ GET get-business.php?id=.
//  3. StaticFallback  ─ fixed development records (optional).
//
// A strategy signals a miss with ErrNotFound.  Any other error is logged and
// treated as a miss so one broken strategy never blocks the next.
//
// Notes
// -----
// • bizdir_business_resolve_total{strategy} counts winners and not_found.
// • Oxford commas, two spaces after periods.

package business

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/bizdir/internal/listing"
	"github.com/yanizio/bizdir/internal/logger"
	"github.com/yanizio/bizdir/internal/metrics"
)

// ErrNotFound means no strategy produced a record.
var ErrNotFound = errors.New("business: not found")

// Detail is what the business page renders.
type Detail struct {
	listing.Record
	Source string `json:"source"`
}

// Query identifies the business and the category context it was linked
// from.  Segments may be empty for bare /business/{id} links.
type Query struct {
	ID       string
	Segments []string
}

// Path is the joined category path.
func (q Query) Path() string { return strings.Join(q.Segments, "/") }

// LastSegment is the category id segment, or "".
func (q Query) LastSegment() string {
	if len(q.Segments) == 0 {
		return ""
	}
	return q.Segments[len(q.Segments)-1]
}

// Strategy is one lookup attempt.
type Strategy interface {
	Name() string
	Lookup(ctx context.Context, q Query) (*Detail, error)
}

// Resolver tries its strategies in order.
type Resolver struct {
	strategies []Strategy
}

// NewResolver keeps the given order.
func NewResolver(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Resolve returns the first hit, or ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, q Query) (*Detail, error) {
	log := logger.FromContext(ctx)
	q.ID = strings.TrimSpace(q.ID)
	if q.ID == "" {
		metrics.BusinessResolveTotal.WithLabelValues("not_found").Inc()
		return nil, ErrNotFound
	}

	for _, s := range r.strategies {
		d, err := s.Lookup(ctx, q)
		switch {
		case err == nil && d != nil:
			d.Source = s.Name()
			metrics.BusinessResolveTotal.WithLabelValues(s.Name()).Inc()
			log.Debug("business resolved",
				zap.String("id", q.ID), zap.String("strategy", s.Name()))
			return d, nil
		case err != nil && !errors.Is(err, ErrNotFound):
			log.Warn("business strategy failed",
				zap.String("id", q.ID),
				zap.String("strategy", s.Name()),
				zap.Error(err))
		}
	}

	metrics.BusinessResolveTotal.WithLabelValues("not_found").Inc()
	return nil, ErrNotFound
}

// Chain builds the standard order.  withStatic appends StaticFallback.
func Chain(listings RecordSource, be ByID, img listing.Images, withStatic bool) *Resolver {
	s := []Strategy{
		ListingsSearch{Listings: listings},
		DirectFetch{Backend: be, Images: img},
	}
	if withStatic {
		s = append(s, StaticFallback{Fallback: img.Fallback})
	}
	return NewResolver(s...)
}
