// internal/page/context.go
//
// Central per-request page context.
//
// Context
// -------
// Every HTML handler builds a *page.Context and passes it to the view
// engine, widgets, and templates.  It bundles:
//
//   - Request, Writer: the original pair.
//   - Head           : <head> builder seeded with site defaults.
//   - URL            : host, path, and query breakdown.
//   - Info           : parsed UA, geo, request id, and timestamp.
//   - Session        : the visitor's session (never nil).
//   - Notice, ShowLogin: one-shot flashes consumed while building.
//
// New pops the flashes and commits the session straight away, before any
// byte of the response is written.  Status defaults to 200; handlers set it
// before calling view.Render.
//
// Notes
// -----
// • Components must treat Info and URL as read-only.
// • Oxford commas, two spaces after periods.
package page

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/bizdir/internal/auth"
	"github.com/yanizio/bizdir/internal/config"
	"github.com/yanizio/bizdir/internal/head"
	"github.com/yanizio/bizdir/internal/logger"
	"github.com/yanizio/bizdir/internal/requestinfo"
	"github.com/yanizio/bizdir/internal/session"
)

// Context is passed to the view engine, widgets, and templates.
type Context struct {
	Request *http.Request
	Writer  http.ResponseWriter
	Head    *head.Builder
	URL     URLInfo
	Info    *requestinfo.RequestInfo
	Session *session.Session
	Status  int

	Notice    string
	ShowLogin bool
}

// New builds the context for one HTML response.
func New(w http.ResponseWriter, r *http.Request) *Context {
	s := auth.Session(r.Context())
	c := &Context{
		Request: r,
		Writer:  w,
		Head:    head.New(),
		URL:     newURLInfo(r),
		Info:    requestinfo.FromContext(r.Context()),
		Session: s,
		Status:  http.StatusOK,
	}

	c.Notice = s.PopFlash(session.FlashNotice)
	c.ShowLogin = s.PopFlash(session.FlashLogin) != ""
	if err := auth.Commit(w, r); err != nil {
		logger.FromContext(r.Context()).Warn("session commit failed", zap.Error(err))
	}

	c.Head.Meta(`<meta charset="utf-8">`)
	c.Head.Meta(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	if cfg := config.Get(); cfg != nil {
		c.Head.SetSiteName(cfg.Site.Name)
		if cfg.Site.BaseURL != "" {
			c.Head.Canonical(cfg.Site.BaseURL + r.URL.Path)
		}
	}
	return c
}

// Param returns a chi route parameter.
func (c *Context) Param(name string) string { return chi.URLParam(c.Request, name) }

// LoggedIn reports whether the visitor holds an auth token.
func (c *Context) LoggedIn() bool { return c.Session.LoggedIn() }

// User is the logged-in profile or nil.
func (c *Context) User() *session.User {
	if !c.LoggedIn() {
		return nil
	}
	return c.Session.User
}

// IsBot is false when request info is missing.
func (c *Context) IsBot() bool { return c.Info != nil && c.Info.UA.IsBot }
