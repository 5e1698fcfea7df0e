// internal/view/render.go
//
// Central view engine: template lookup, override chain, func-map injection,
// and an LRU of parsed *template.Template* sets.
//
// Public helpers
// --------------
//   - Render         – full page wrapped in the theme layout, buffered, then
//     written with pc.Status.
//   - RenderToString – bare fragment as template.HTML (widgets).
//
// Lookup precedence (first hit wins):
//  1. <theme layers>/components/<comp>/templates/<tpl>.html
//  2. component embedded FS: templates/<tpl>.html
//
// A set holds the theme layout, the theme's `_*.html` partials, the
// component's `_*.html` partials from the same source, and the requested
// file.  Page files define "content"; the layout calls it.
//
// Template data is always a View{Ctx, Head, Data}.  Funcs take the page
// context explicitly ({{ widget .Ctx "auth/account" nil }}), so parsed sets
// carry no request state and are safe to cache.
//
// Style
// -----
// • Oxford commas, two spaces after periods.

package view

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"sync"

	"go.uber.org/zap"

	"github.com/yanizio/bizdir/internal/cache"
	"github.com/yanizio/bizdir/internal/head"
	"github.com/yanizio/bizdir/internal/logger"
	"github.com/yanizio/bizdir/internal/page"
	"github.com/yanizio/bizdir/internal/theme"
	"github.com/yanizio/bizdir/internal/widget"
)

//
// cache definitions
//

// CachePolicy hints how the caller wants this template cached.
type CachePolicy int

const (
	CacheDefault CachePolicy = iota // keep the parsed set in the LRU
	CacheSkip                       // parse fresh, never store
)

//go:embed templates
var coreTemplates embed.FS

// ErrNotFound is returned when no layer holds the template.
var ErrNotFound = errors.New("view: template not found")

// View is the value every template executes against.
type View struct {
	Ctx  *page.Context
	Head *head.Builder
	Data any
}

// Engine renders component templates through the theme override chain.
type Engine struct {
	theme *theme.Theme
	funcs template.FuncMap
	lru   *cache.LRU[string, *template.Template]

	mu    sync.RWMutex
	comps map[string]fs.FS
}

// New builds an engine for th.  capacity bounds the parsed-set LRU.
func New(th *theme.Theme, capacity int) *Engine {
	e := &Engine{
		theme: th,
		lru:   cache.New[string, *template.Template](capacity),
		comps: make(map[string]fs.FS),
	}
	e.funcs = buildFuncMap(th)
	e.comps["core"] = coreTemplates
	return e
}

// Theme returns the active theme.
func (e *Engine) Theme() *theme.Theme { return e.theme }

// Register makes comp's templates available.  fsys must contain
// "templates/*.html" at its root, typically a component's embed.FS.
func (e *Engine) Register(comp string, fsys fs.FS) {
	e.mu.Lock()
	e.comps[comp] = fsys
	e.mu.Unlock()
	e.lru.Purge()
}

//
// public helpers
//

// Render executes comp/name inside the layout and writes the result with
// pc.Status.  Nothing is written when execution fails, so the caller can
// still answer 500.
func (e *Engine) Render(pc *page.Context, w http.ResponseWriter, comp, name string, data any, policy CachePolicy) error {
	t, err := e.load(comp, name, true, policy)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", View{Ctx: pc, Head: pc.Head, Data: data}); err != nil {
		return fmt.Errorf("view: execute %s/%s: %w", comp, name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if policy == CacheSkip {
		w.Header().Set("Cache-Control", "no-store")
	}
	status := pc.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

// RenderToString executes comp/name without the layout.
func (e *Engine) RenderToString(pc *page.Context, comp, name string, data any) (template.HTML, CachePolicy, error) {
	t, err := e.load(comp, name, false, CacheDefault)
	if err != nil {
		return "", CacheSkip, err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, execName(t, name), View{Ctx: pc, Head: headOf(pc), Data: data}); err != nil {
		return "", CacheSkip, fmt.Errorf("view: execute %s/%s: %w", comp, name, err)
	}
	return template.HTML(buf.String()), CacheDefault, nil
}

// Error renders the theme's error page for status, falling back to plain
// text when the page itself cannot be rendered.
func (e *Engine) Error(pc *page.Context, w http.ResponseWriter, status int, msg string) {
	pc.Status = status
	pc.Head.SetTitle(http.StatusText(status))
	data := map[string]any{"Status": status, "Message": msg}
	if err := e.Render(pc, w, "core", "error", data, CacheDefault); err != nil {
		logger.FromContext(pc.Request.Context()).Error("error page render failed", zap.Error(err))
		http.Error(w, http.StatusText(status), status)
	}
}

//
// internal: load
//

// load finds and (if necessary) parses the template set for comp/name.
func (e *Engine) load(comp, name string, withLayout bool, policy CachePolicy) (*template.Template, error) {
	key := fmt.Sprintf("%s::%s::%s::%t", e.theme.Name, comp, name, withLayout)
	if policy != CacheSkip {
		if t, ok := e.lru.Get(key); ok {
			return t, nil
		}
	}

	src, dir, ok := e.locate(comp, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, comp, name)
	}

	t := template.New(name).Funcs(e.funcs)
	if withLayout {
		if err := e.parseLayout(t); err != nil {
			return nil, err
		}
	}

	partials, err := theme.CollectHTML(src, dir, theme.IsPartial)
	if err != nil {
		return nil, err
	}
	files := append(partials, path.Join(dir, name+".html"))
	if _, err := t.ParseFS(src, files...); err != nil {
		return nil, fmt.Errorf("view: parse %s/%s: %w", comp, name, err)
	}

	if policy != CacheSkip {
		e.lru.Add(key, t)
	}
	return t, nil
}

// locate walks the override chain and returns the source FS and directory.
func (e *Engine) locate(comp, name string) (fs.FS, string, bool) {
	themeDir := path.Join("components", comp, "templates")
	if l, ok := e.theme.Layer(path.Join(themeDir, name+".html")); ok {
		return l, themeDir, true
	}

	e.mu.RLock()
	cfs, ok := e.comps[comp]
	e.mu.RUnlock()
	if ok {
		if _, err := fs.Stat(cfs, path.Join("templates", name+".html")); err == nil {
			return cfs, "templates", true
		}
	}
	return nil, "", false
}

// parseLayout adds the layout and theme-wide partials to t.
func (e *Engine) parseLayout(t *template.Template) error {
	l, ok := e.theme.Layer(theme.LayoutFile)
	if !ok {
		return fmt.Errorf("%w: theme %s has no %s", ErrNotFound, e.theme.Name, theme.LayoutFile)
	}
	files, err := theme.CollectHTML(e.theme, "templates", theme.IsPartial)
	if err != nil {
		return err
	}
	if _, err := t.ParseFS(l, theme.LayoutFile); err != nil {
		return fmt.Errorf("view: parse layout: %w", err)
	}
	if len(files) > 0 {
		if _, err := t.ParseFS(e.theme, files...); err != nil {
			return fmt.Errorf("view: parse theme partials: %w", err)
		}
	}
	return nil
}

//
// func-map builders
//

func buildFuncMap(th *theme.Theme) template.FuncMap {
	fm := template.FuncMap{
		"dict":   dict,
		"widget": widgetFunc,
	}
	for k, v := range theme.FuncMap(th.AssetFunc) {
		fm[k] = v
	}
	return fm
}

//
// helpers
//

// execName picks the template to execute: the file itself, or a root
// template of the same logical name defined inside it.
func execName(t *template.Template, name string) string {
	if tmpl := t.Lookup(name + ".html"); tmpl != nil {
		return name + ".html"
	}
	return name
}

func headOf(pc *page.Context) *head.Builder {
	if pc == nil {
		return nil
	}
	return pc.Head
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}

// widgetFunc renders a registered widget and returns safe HTML.  Errors are
// logged and hidden behind <!-- comments --> so visitors never see them.
func widgetFunc(pc *page.Context, key string, params map[string]any) template.HTML {
	w := widget.Lookup(key)
	if w == nil {
		return template.HTML("<!-- widget not found -->")
	}
	html, _, err := w.Render(pc, params)
	if err != nil {
		ctx := context.Background()
		if pc != nil && pc.Request != nil {
			ctx = pc.Request.Context()
		}
		logger.FromContext(ctx).Warn("widget render failed",
			zap.String("widget", key), zap.Error(err))
		return template.HTML("<!-- widget error -->")
	}
	return template.HTML(html)
}
