package auth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	sessctx "github.com/yanizio/bizdir/internal/auth"
	"github.com/yanizio/bizdir/internal/backend"
	"github.com/yanizio/bizdir/internal/form"
	"github.com/yanizio/bizdir/internal/logger"
	"github.com/yanizio/bizdir/internal/message"
	"github.com/yanizio/bizdir/internal/page"
	"github.com/yanizio/bizdir/internal/routing"
	"github.com/yanizio/bizdir/internal/session"
	"github.com/yanizio/bizdir/internal/view"
)

// formData is what login.html and signup.html render.
type formData struct {
	Prefill map[string]string
	Errors  []form.ErrorField
}

var (
	msgUnavailable = "We could not reach the server.  Please try again in a moment."
	msgBadLogin    = "Incorrect mobile number or password."
)

/*──────────────────────────── login ───────────────────────────────────────*/

func (c *Component) loginGET(w http.ResponseWriter, r *http.Request) {
	next := routing.SafeNext(r.URL.Query().Get("next"))
	if sessctx.Session(r.Context()).LoggedIn() {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	pc := page.New(w, r)
	pc.Head.SetTitle("Log in")
	c.render(pc, w, "login", formData{Prefill: map[string]string{"next": next}})
}

func (c *Component) loginPOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data, err := form.HandleSubmit("auth/login", r, form.ActionCtx{Bus: c.bus})
	if err != nil {
		c.reject(w, r, "login", err)
		return
	}
	mobile := form.String(data, "mobile")

	res, err := c.backend.Login(ctx, mobile, form.String(data, "password"))
	if err != nil {
		logger.FromContext(ctx).Warn("login backend failed", zap.Error(err))
		c.fail(w, r, "login", http.StatusServiceUnavailable, msgUnavailable)
		return
	}
	if !res.OK || res.Token == "" {
		c.publish(r, message.Event{Kind: message.LoginFailed, Subject: mobile})
		msg := res.Message
		if msg == "" {
			msg = msgBadLogin
		}
		c.fail(w, r, "login", http.StatusUnauthorized, msg)
		return
	}

	u := userFrom(res, mobile)
	c.startSession(w, r, res.Token, u)
	c.publish(r, message.Event{Kind: message.LoginSucceeded, UserID: u.ID, Subject: mobile})
	http.Redirect(w, r, routing.SafeNext(form.String(data, "next")), http.StatusSeeOther)
}

/*──────────────────────────── signup ──────────────────────────────────────*/

func (c *Component) signupGET(w http.ResponseWriter, r *http.Request) {
	next := routing.SafeNext(r.URL.Query().Get("next"))
	if sessctx.Session(r.Context()).LoggedIn() {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	pc := page.New(w, r)
	pc.Head.SetTitle("Sign up")
	c.render(pc, w, "signup", formData{Prefill: map[string]string{"next": next}})
}

func (c *Component) signupPOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data, err := form.HandleSubmit("auth/signup", r, form.ActionCtx{Bus: c.bus})
	if err != nil {
		c.reject(w, r, "signup", err)
		return
	}
	reg := backend.Registration{
		Name:     form.String(data, "name"),
		Mobile:   form.String(data, "mobile"),
		Email:    form.String(data, "email"),
		City:     form.String(data, "city"),
		Password: form.String(data, "password"),
	}

	res, err := c.backend.Register(ctx, reg)
	switch {
	case err != nil && isValidation(err):
		c.fail(w, r, "signup", http.StatusUnprocessableEntity, "Please check your details and try again.")
		return
	case err != nil:
		logger.FromContext(ctx).Warn("signup backend failed", zap.Error(err))
		c.fail(w, r, "signup", http.StatusServiceUnavailable, msgUnavailable)
		return
	case !res.OK:
		c.publish(r, message.Event{Kind: message.SignupFailed, Subject: reg.Mobile})
		msg := res.Message
		if msg == "" {
			msg = "Registration failed.  The mobile number may already be registered."
		}
		c.fail(w, r, "signup", http.StatusConflict, msg)
		return
	}

	c.publish(r, message.Event{Kind: message.SignupSucceeded, UserID: res.UserID, Subject: reg.Mobile})
	next := routing.SafeNext(form.String(data, "next"))
	if res.Token == "" {
		s := sessctx.Session(ctx)
		s.SetFlash(session.FlashNotice, "Account created.  Please log in.")
		commit(w, r)
		http.Redirect(w, r, "/login?next="+url.QueryEscape(next), http.StatusSeeOther)
		return
	}
	u := userFrom(res, reg.Mobile)
	if u.Name == "" {
		u.Name = reg.Name
	}
	if u.Email == "" {
		u.Email = reg.Email
	}
	if u.City == "" {
		u.City = reg.City
	}
	c.startSession(w, r, res.Token, u)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

/*──────────────────────────── logout ──────────────────────────────────────*/

func (c *Component) logoutPOST(w http.ResponseWriter, r *http.Request) {
	uid, _ := sessctx.UserID(r.Context())
	data, err := form.HandleSubmit("auth/logout", r, form.ActionCtx{Bus: c.bus, UserID: uid})
	if err != nil {
		pc := page.New(w, r)
		c.view.Error(pc, w, http.StatusBadRequest, "Your session form expired.  Please try again.")
		return
	}

	s := sessctx.Session(r.Context())
	s.Logout()
	s.SetFlash(session.FlashNotice, "You have been logged out.")
	commit(w, r)
	http.Redirect(w, r, routing.SafeNext(form.String(data, "return_to")), http.StatusSeeOther)
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// reject re-renders after form validation failed.  Non-validation errors
// (unparseable body) answer 400.
func (c *Component) reject(w http.ResponseWriter, r *http.Request, name string, err error) {
	if !form.IsValidationError(err) {
		pc := page.New(w, r)
		c.view.Error(pc, w, http.StatusBadRequest, "")
		return
	}
	c.rerender(w, r, name, http.StatusUnprocessableEntity, form.FieldErrors(err))
}

// fail re-renders with one form-level message.
func (c *Component) fail(w http.ResponseWriter, r *http.Request, name string, status int, msg string) {
	c.rerender(w, r, name, status, []form.ErrorField{{Message: msg}})
}

func (c *Component) rerender(w http.ResponseWriter, r *http.Request, name string, status int, errs []form.ErrorField) {
	pc := page.New(w, r)
	pc.Status = status
	if name == "signup" {
		pc.Head.SetTitle("Sign up")
	} else {
		pc.Head.SetTitle("Log in")
	}
	c.render(pc, w, name, formData{Prefill: prefill(r.PostForm), Errors: errs})
}

func (c *Component) render(pc *page.Context, w http.ResponseWriter, name string, data formData) {
	if err := c.view.Render(pc, w, "auth", name, data, view.CacheSkip); err != nil {
		logger.FromContext(pc.Request.Context()).Error("render failed",
			zap.String("template", name), zap.Error(err))
		c.view.Error(pc, w, http.StatusInternalServerError, "")
	}
}

func (c *Component) startSession(w http.ResponseWriter, r *http.Request, token string, u *session.User) {
	sessctx.Session(r.Context()).Login(token, u)
	commit(w, r)
}

func (c *Component) publish(r *http.Request, ev message.Event) {
	if c.bus != nil {
		c.bus.Publish(r.Context(), ev)
	}
}

func commit(w http.ResponseWriter, r *http.Request) {
	if err := sessctx.Commit(w, r); err != nil {
		logger.FromContext(r.Context()).Warn("session commit failed", zap.Error(err))
	}
}

// prefill echoes the posted values, never the password.
func prefill(v url.Values) map[string]string {
	out := make(map[string]string, len(v))
	for k := range v {
		switch k {
		case "password", "csrf_token", "render_ts":
			continue
		}
		out[k] = v.Get(k)
	}
	return out
}

// userFrom builds the session profile from the backend envelope.
func userFrom(res *backend.AuthResult, mobile string) *session.User {
	u := &session.User{ID: res.UserID, Mobile: mobile}
	if res.User == nil {
		return u
	}
	u.Name = pick(res.User, "name", "full_name", "fullName", "user_name")
	if m := pick(res.User, "mobile", "phone"); m != "" {
		u.Mobile = m
	}
	u.Email = pick(res.User, "email")
	u.City = pick(res.User, "city")
	return u
}

func pick(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// isValidation reports a payload rejected before it left bizdir.
func isValidation(err error) bool {
	var ve validator.ValidationErrors
	return errors.As(err, &ve)
}
