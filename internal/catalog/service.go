// internal/catalog/service.go
//
// Category tree service.
//
// Context
// -------
// Every page that names a category needs the tree: the home page lists
// top-level categories, the category page resolves its path, and the alias
// middleware maps short slugs.  Service fetches the tree through the
// backend client, collapses concurrent fetches into one call with
// singleflight, and optionally keeps the result for CacheTTL.
//
// Failure policy
// --------------
// A transport error, non-2xx status, or unrecognised body yields an empty
// tree and a WARN line.  Callers render an empty state; nothing propagates.
// When a cached tree exists, a failed refresh keeps serving it.
//
// Notes
// -----
// • CacheTTL == 0 fetches on every call.
// • Oxford commas, two spaces after periods.

package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/bizdir/internal/logger"
	"github.com/yanizio/bizdir/internal/metrics"
	"github.com/yanizio/bizdir/internal/routing"
)

// Source returns the raw category body.  *backend.Client satisfies it.
type Source interface {
	Categories(ctx context.Context) ([]byte, error)
}

// Service is safe for concurrent use.
type Service struct {
	src Source
	ttl time.Duration
	sfg singleflight.Group
	now func() time.Time

	mu      sync.RWMutex
	tree    []Node
	fetched time.Time
}

// NewService builds a Service.  ttl <= 0 disables caching.
func NewService(src Source, ttl time.Duration) *Service {
	return &Service{src: src, ttl: ttl, now: time.Now}
}

// Tree returns the top-level categories, possibly empty.
func (s *Service) Tree(ctx context.Context) []Node {
	if tree, ok := s.cached(); ok {
		metrics.CatalogFetchTotal.WithLabelValues("cached").Inc()
		return tree
	}

	// The shared fetch must outlive any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	v, _, _ := s.sfg.Do("tree", func() (any, error) {
		return s.fetch(shared), nil
	})
	return v.([]Node)
}

// Entries is Flatten(Tree(ctx)).
func (s *Service) Entries(ctx context.Context) []Entry {
	return Flatten(s.Tree(ctx))
}

// Resolve fetches the tree and resolves segments against it.
func (s *Service) Resolve(ctx context.Context, segments []string) Resolution {
	return Resolve(s.Entries(ctx), segments)
}

// ErrEmptyTree is returned by Aliases when no category is available, so the
// alias cache keeps its previous map instead of wiping it.
var ErrEmptyTree = errors.New("catalog: empty category tree")

// Aliases maps each top-level slug to its canonical category page, e.g.
// "doctors" → "/category/doctors/cat5".  Satisfies routing.AliasSource.
// The first category claiming a slug wins.
func (s *Service) Aliases(ctx context.Context) (map[string]string, error) {
	tree := s.Tree(ctx)
	if len(tree) == 0 {
		return nil, ErrEmptyTree
	}
	out := make(map[string]string, len(tree))
	for _, e := range Flatten(tree) {
		slug, rest, ok := strings.Cut(e.FullPath, "/")
		if !ok || strings.Contains(rest, "/") {
			continue // not top-level
		}
		if _, dup := out[slug]; !dup {
			out[slug] = routing.BuildPath("category", e.FullPath)
		}
	}
	return out, nil
}

// Invalidate drops the cached tree.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.tree, s.fetched = nil, time.Time{}
	s.mu.Unlock()
}

func (s *Service) cached() ([]Node, bool) {
	if s.ttl <= 0 {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tree != nil && s.now().Sub(s.fetched) < s.ttl {
		return s.tree, true
	}
	return nil, false
}

func (s *Service) fetch(ctx context.Context) []Node {
	log := logger.FromContext(ctx)

	body, err := s.src.Categories(ctx)
	if err == nil {
		var tree []Node
		tree, err = Decode(body)
		if err == nil {
			metrics.CatalogFetchTotal.WithLabelValues("fetched").Inc()
			if s.ttl > 0 {
				s.mu.Lock()
				s.tree, s.fetched = tree, s.now()
				s.mu.Unlock()
			}
			log.Debug("category tree fetched", zap.Int("nodes", Count(tree)))
			return tree
		}
	}

	metrics.CatalogFetchTotal.WithLabelValues("failed").Inc()
	log.Warn("category tree unavailable", zap.Error(err))

	// Stale beats empty.
	s.mu.RLock()
	stale := s.tree
	s.mu.RUnlock()
	if stale != nil {
		return stale
	}
	return []Node{}
}
