// internal/form/widget.go
//
// Forms subsystem: widget adapter.
//
// Templates place a form with
//
//	{{ widget .Ctx "auth/login" (dict "prefill" .Data.Prefill "errors" .Data.Errors) }}
//
// Every registered FormDef is exposed under its own id.  The output carries
// a fresh CSRF token, so it is never cached.
//
//------------------------------------------------------------------------------

package form

import (
	"github.com/yanizio/bizdir/internal/page"
	"github.com/yanizio/bizdir/internal/view"
	"github.com/yanizio/bizdir/internal/widget"
)

var _ widget.Widget = (*formWidget)(nil)

type formWidget struct{ id string }

func (w *formWidget) ID() string { return w.id }

// Render accepts "prefill" (map[string]string) and "errors" ([]ErrorField).
func (w *formWidget) Render(_ *page.Context, params map[string]any) (string, int, error) {
	var opts RenderOptions
	opts.Prefill, _ = params["prefill"].(map[string]string)
	opts.Errors, _ = params["errors"].([]ErrorField)

	out, err := RenderForm(w.id, opts)
	if err != nil {
		return "", int(view.CacheSkip), err
	}
	return string(out), int(view.CacheSkip), nil
}

func registerWidget(id string) { widget.Register(&formWidget{id: id}) }
