package auth

import (
	"github.com/yanizio/bizdir/internal/page"
	"github.com/yanizio/bizdir/internal/view"
	"github.com/yanizio/bizdir/internal/widget"
)

var (
	_ widget.Widget = (*accountWidget)(nil)
	_ widget.Widget = (*loginModalWidget)(nil)
)

// accountWidget shows login/signup links, or the greeting and logout
// button.  The layout places it in the header.
type accountWidget struct{ view *view.Engine }

func (w *accountWidget) ID() string { return "auth/account" }

func (w *accountWidget) Render(pc *page.Context, _ map[string]any) (string, int, error) {
	data := map[string]any{
		"Next":    pc.URL.Path,
		"Prefill": map[string]string{"return_to": pc.URL.Path},
	}
	html, _, err := w.view.RenderToString(pc, "auth", "widget_account", data)
	return string(html), int(view.CacheSkip), err
}

// loginModalWidget renders the login dialog when the request consumed a
// login flash, e.g. after an anonymous review post.
type loginModalWidget struct{ view *view.Engine }

func (w *loginModalWidget) ID() string { return "auth/login-modal" }

func (w *loginModalWidget) Render(pc *page.Context, _ map[string]any) (string, int, error) {
	if !pc.ShowLogin || pc.LoggedIn() {
		return "", int(view.CacheDefault), nil
	}
	data := map[string]any{
		"Next":    pc.URL.Path,
		"Prefill": map[string]string{"next": pc.URL.Path},
	}
	html, _, err := w.view.RenderToString(pc, "auth", "widget_login_modal", data)
	return string(html), int(view.CacheSkip), err
}
