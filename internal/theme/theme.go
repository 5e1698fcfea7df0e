// Package theme describes one visual theme.  A Theme combines:
//
//   - Name      – the theme directory name (for example, "base").
//   - Layers    – file systems searched in order: the on-disk override
//     directory <root>/themes/<name> first, then the embedded base theme.
//   - AssetFunc – helper injected into templates so they can resolve
//     `{{ asset "css/site.css" }}` to a URL.
//
// The embedded base theme ships the layout and stylesheet, so a deployment
// without a themes/ directory still renders.  A theme override only needs
// the files it changes.
package theme

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
)

//go:embed base
var embedded embed.FS

// LayoutFile is the base layout every full page is wrapped in.
const LayoutFile = "templates/layout.html"

// Theme is safe for concurrent use once loaded.
type Theme struct {
	Name      string
	Layers    []fs.FS
	AssetFunc func(string) string
}

// Base returns the embedded base theme with no overrides.
func Base() *Theme {
	base, _ := fs.Sub(embedded, "base")
	return New("base", base)
}

// New builds a Theme from explicit layers, highest precedence first.
func New(name string, layers ...fs.FS) *Theme {
	prefix := "/themes/" + name + "/assets/"
	return &Theme{
		Name:      name,
		Layers:    layers,
		AssetFunc: func(p string) string { return prefix + path.Clean("/" + p)[1:] },
	}
}

// Load stacks <root>/themes/<name> over the embedded base.  A missing
// override directory is fine for "base" and an error for any other name.
func Load(root, name string) (*Theme, error) {
	base, err := fs.Sub(embedded, "base")
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(root, "themes", name)
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return New(name, os.DirFS(dir), base), nil
	case name == "base":
		return New(name, base), nil
	case err == nil:
		return nil, fmt.Errorf("theme %s: %s is not a directory", name, dir)
	default:
		return nil, fmt.Errorf("theme %s not found at %s: %w", name, dir, err)
	}
}

// Open implements fs.FS; the first layer holding name wins.
func (t *Theme) Open(name string) (fs.File, error) {
	for _, l := range t.Layers {
		f, err := l.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// Layer returns the first layer containing name.
func (t *Theme) Layer(name string) (fs.FS, bool) {
	for _, l := range t.Layers {
		if _, err := fs.Stat(l, name); err == nil {
			return l, true
		}
	}
	return nil, false
}

// Assets serves /themes/<name>/assets/*.  Mount it under that prefix.
func (t *Theme) Assets() http.Handler {
	sub, _ := fs.Sub(t, "assets")
	return http.StripPrefix("/themes/"+t.Name+"/assets/", http.FileServer(http.FS(sub)))
}
