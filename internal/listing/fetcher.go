// internal/listing/fetcher.go
//
// Listing fetcher.
//
// Context
// -------
// A category URL ends in a prefixed id segment (`cat5`, `sub12`, `child30`).
// The prefix picks the one form parameter the listings endpoint understands
// (`category`, `subcategoryId`, `childrenId`); the backend cannot combine
// filters, so exactly one is sent.
//
// Fetch never returns an error.  Transport failures, non-2xx answers, and
// unreadable bodies all become an empty slice, a WARN line, and a bump of
// bizdir_listing_fetch_empty_total{reason}.  Absence and outage look the
// same to the page.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.

package listing

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/bizdir/internal/backend"
	"github.com/yanizio/bizdir/internal/logger"
	"github.com/yanizio/bizdir/internal/metrics"
)

// Endpoint is a listings search path on the backend.
type Endpoint string

const (
	// EndpointSearch feeds category pages.
	EndpointSearch Endpoint = backend.PathListings
	// EndpointSearchForWeb feeds business detail lookups.
	EndpointSearchForWeb Endpoint = backend.PathListingsForWeb
)

// Param is the single filter sent to the listings endpoint.
type Param struct {
	Key   string
	Value string
}

// SelectParam chooses the filter for the last path segment.  A level prefix
// followed by a numeric id ("cat5", "sub12", "child30") selects that level's
// key with the bare id.  Anything else ("catering", "subway") is sent whole
// under `category`.
func SelectParam(segment string) Param {
	segment = strings.TrimSpace(segment)
	for _, lv := range levels {
		if id, ok := strings.CutPrefix(segment, lv.prefix); ok && isID(id) {
			return Param{Key: lv.key, Value: id}
		}
	}
	return Param{Key: "category", Value: segment}
}

var levels = []struct{ prefix, key string }{
	{"child", "childrenId"},
	{"sub", "subcategoryId"},
	{"cat", "category"},
}

func isID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Source is the slice of backend.Client the fetcher needs.
type Source interface {
	Listings(ctx context.Context, path, key, value string) ([]byte, error)
}

// Fetcher is safe for concurrent use.
type Fetcher struct {
	src Source
	img Images
}

// NewFetcher builds a Fetcher.
func NewFetcher(src Source, img Images) *Fetcher {
	return &Fetcher{src: src, img: img}
}

// Fetch returns the active, normalised listings for the category whose
// last path segment is segment.
func (f *Fetcher) Fetch(ctx context.Context, ep Endpoint, segment string) []Listing {
	recs := f.active(ctx, ep, segment)
	out := make([]Listing, 0, len(recs))
	for _, raw := range recs {
		out = append(out, Normalize(raw, f.img))
	}
	return out
}

// Records is Fetch with the detail-page fields kept.
func (f *Fetcher) Records(ctx context.Context, ep Endpoint, segment string) []Record {
	recs := f.active(ctx, ep, segment)
	out := make([]Record, 0, len(recs))
	for _, raw := range recs {
		out = append(out, NormalizeRecord(raw, f.img))
	}
	return out
}

func (f *Fetcher) active(ctx context.Context, ep Endpoint, segment string) []map[string]any {
	log := logger.FromContext(ctx)

	p := SelectParam(segment)
	if p.Value == "" {
		metrics.ListingFetchEmptyTotal.WithLabelValues("no_id").Inc()
		return nil
	}

	body, err := f.src.Listings(ctx, string(ep), p.Key, p.Value)
	if err != nil {
		reason := "transport"
		if backend.IsStatus(err) {
			reason = "status"
		}
		metrics.ListingFetchEmptyTotal.WithLabelValues(reason).Inc()
		log.Warn("listing fetch failed",
			zap.String("endpoint", string(ep)),
			zap.String(p.Key, p.Value),
			zap.Error(err))
		return nil
	}

	list, err := Unwrap(body)
	if err != nil {
		metrics.ListingFetchEmptyTotal.WithLabelValues("decode").Inc()
		log.Warn("listing body unreadable",
			zap.String("endpoint", string(ep)), zap.Error(err))
		return nil
	}

	recs := Active(list)
	if len(recs) == 0 {
		metrics.ListingFetchEmptyTotal.WithLabelValues("none_active").Inc()
	}
	return recs
}
