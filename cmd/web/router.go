package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	sessctx "github.com/yanizio/bizdir/internal/auth"
	"github.com/yanizio/bizdir/internal/component"
	"github.com/yanizio/bizdir/internal/config"
	"github.com/yanizio/bizdir/internal/middleware"
	"github.com/yanizio/bizdir/internal/page"
	"github.com/yanizio/bizdir/internal/requestinfo"
	"github.com/yanizio/bizdir/internal/routing"
	"github.com/yanizio/bizdir/internal/session"
	"github.com/yanizio/bizdir/internal/theme"
)

// newRouter assembles the middleware stack, infrastructure routes, and
// every registered component.
//
// Order matters: the request id must exist before the access log reads it,
// security headers must be set before any handler writes, and the alias
// rewrite runs last so chi routes the rewritten path.
func newRouter(cfg *config.Config, zl *zap.Logger, store session.Store, aliases *routing.AliasCache, th *theme.Theme, deps component.Deps) (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.AccessLog(zl))
	r.Use(middleware.Metrics)
	r.Use(middleware.Security(cfg.HTTP.ForceHTTPS))
	r.Use(middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS))
	r.Use(requestinfo.Enrich)
	r.Use(sessctx.Middleware(store))
	r.Use(routing.Middleware(aliases))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/themes/"+th.Name+"/assets/*", th.Assets())

	if err := component.Boot(r, deps); err != nil {
		return nil, err
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		deps.View.Error(page.New(w, req), w, http.StatusNotFound, "Page not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		deps.View.Error(page.New(w, req), w, http.StatusMethodNotAllowed, "")
	})
	return r, nil
}
