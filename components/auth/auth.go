// components/auth/auth.go
//
// Authentication component: login, signup, and logout.
//
// Context
// -------
// Credentials never stay in bizdir.  login.php and register.php answer
// with a token and a profile; the token and profile go into the session,
// which replaces the browser's authToken and userData keys.  Forms are
// declared in forms/*.yaml and rendered through the form widgets.
//
// Workflow
// --------
//   GET  /login, /signup   render the form (already logged in → next)
//   POST /login, /signup   validate, call the backend, start the session,
//                          publish the outcome, and redirect to next
//   POST /logout           validate the logout form (its event action
//                          publishes message.Logout), drop the session,
//                          and redirect back
//
// `next` and `return_to` only ever redirect to local paths.
//
// Notes
// -----
// • Failed logins re-render with 401, invalid input with 422, and an
//   unreachable backend with 503.
// • Oxford commas, two spaces after periods.
//
//------------------------------------------------------------------------------

package auth

import (
	"context"
	"embed"
	"errors"
	"io/fs"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/bizdir/internal/backend"
	"github.com/yanizio/bizdir/internal/component"
	"github.com/yanizio/bizdir/internal/message"
	"github.com/yanizio/bizdir/internal/view"
	"github.com/yanizio/bizdir/internal/widget"
)

//go:embed templates forms
var files embed.FS

// Compile-time assertions.
var (
	_ component.Component        = (*Component)(nil)
	_ component.Initializer      = (*Component)(nil)
	_ component.TemplateProvider = (*Component)(nil)
	_ component.FormProvider     = (*Component)(nil)
)

// Backend is the slice of *backend.Client this component calls.
type Backend interface {
	Login(ctx context.Context, mobile, password string) (*backend.AuthResult, error)
	Register(ctx context.Context, reg backend.Registration) (*backend.AuthResult, error)
}

// Component encapsulates the login flow.
type Component struct {
	backend Backend
	bus     *message.Bus
	view    *view.Engine
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "auth" }

// Templates exposes templates/.
func (c *Component) Templates() fs.FS { return files }

// Forms exposes forms/.
func (c *Component) Forms() fs.FS { return files }

// Init wires dependencies and registers the account and login-modal
// widgets.  Without d.Backend a backend set beforehand (tests) is used.
func (c *Component) Init(d component.Deps) error {
	if d.Backend != nil {
		c.backend = d.Backend
	}
	if c.backend == nil {
		return errors.New("auth: backend is required")
	}
	if d.View == nil {
		return errors.New("auth: view is required")
	}
	c.bus, c.view = d.Bus, d.View
	widget.Register(&accountWidget{view: c.view})
	widget.Register(&loginModalWidget{view: c.view})
	return nil
}

// Routes registers the auth pages.
func (c *Component) Routes(r chi.Router) {
	r.Get("/login", c.loginGET)
	r.Post("/login", c.loginPOST)
	r.Get("/signup", c.signupGET)
	r.Post("/signup", c.signupPOST)
	r.Post("/logout", c.logoutPOST)
}

// Register component at program start.
func init() { component.Register(&Component{}) }
