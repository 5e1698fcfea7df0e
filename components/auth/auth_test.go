package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"

	sessctx "github.com/yanizio/bizdir/internal/auth"
	"github.com/yanizio/bizdir/internal/backend"
	"github.com/yanizio/bizdir/internal/component"
	"github.com/yanizio/bizdir/internal/message"
	"github.com/yanizio/bizdir/internal/session"
	"github.com/yanizio/bizdir/internal/theme"
	"github.com/yanizio/bizdir/internal/view"
)

const secret = "0123456789abcdef0123456789abcdef"

type fakeBackend struct {
	login *backend.AuthResult
	reg   *backend.AuthResult
	err   error

	gotReg backend.Registration
}

func (f *fakeBackend) Login(context.Context, string, string) (*backend.AuthResult, error) {
	return f.login, f.err
}

func (f *fakeBackend) Register(_ context.Context, r backend.Registration) (*backend.AuthResult, error) {
	f.gotReg = r
	return f.reg, f.err
}

type harness struct {
	h      http.Handler
	store  *session.CookieStore
	be     *fakeBackend
	mu     sync.Mutex
	events []message.Event
}

func (hs *harness) kinds() []message.Kind {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	var out []message.Kind
	for _, e := range hs.events {
		out = append(out, e.Kind)
	}
	return out
}

func newHarness(t *testing.T, be *fakeBackend) *harness {
	t.Helper()
	hs := &harness{be: be, store: session.NewCookieStore(secret, session.CookieOptions{Name: "sid", MaxAge: time.Hour})}
	bus := message.NewBus()
	bus.Subscribe(func(_ context.Context, ev message.Event) {
		hs.mu.Lock()
		hs.events = append(hs.events, ev)
		hs.mu.Unlock()
	})

	r := chi.NewRouter()
	r.Use(sessctx.Middleware(hs.store))
	c := &Component{backend: be}
	if err := component.Mount(r, c, component.Deps{Bus: bus, View: view.New(theme.Base(), 16)}); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	hs.h = r
	return hs
}

func (hs *harness) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	hs.h.ServeHTTP(rr, req)
	return rr
}

// formValues fetches /login, keeps its CSRF token, and backdates render_ts.
func (hs *harness) formValues(t *testing.T) url.Values {
	t.Helper()
	rr := hs.do(httptest.NewRequest(http.MethodGet, "/login", nil))
	d, err := goquery.NewDocumentFromReader(rr.Body)
	if err != nil {
		t.Fatal(err)
	}
	tok, ok := d.Find(`input[name="csrf_token"]`).First().Attr("value")
	if !ok {
		t.Fatal("no csrf token on /login")
	}
	v := url.Values{}
	v.Set("csrf_token", tok)
	v.Set("render_ts", strconv.FormatInt(time.Now().Add(-10*time.Second).UnixMicro(), 10))
	return v
}

func post(path string, v url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (hs *harness) sessionFrom(t *testing.T, rr *httptest.ResponseRecorder) *session.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
	s, err := hs.store.Load(req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return s
}

func TestLoginPageRendersForm(t *testing.T) {
	hs := newHarness(t, &fakeBackend{})
	rr := hs.do(httptest.NewRequest(http.MethodGet, "/login?next=/business/121", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	d, _ := goquery.NewDocumentFromReader(rr.Body)
	if d.Find(`input[name="mobile"][type="tel"]`).Length() != 1 {
		t.Error("mobile field missing")
	}
	if v, _ := d.Find(`input[name="next"]`).Attr("value"); v != "/business/121" {
		t.Errorf("next = %q", v)
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Error("form page must not be cached")
	}
}

func TestLoginSuccessStartsSession(t *testing.T) {
	be := &fakeBackend{login: &backend.AuthResult{
		OK: true, Token: "tok-1", UserID: "42",
		User: map[string]any{"name": "Asha", "email": "asha@example.com"},
	}}
	hs := newHarness(t, be)

	v := hs.formValues(t)
	v.Set("mobile", "9876543210")
	v.Set("password", "secret1")
	v.Set("next", "/business/121")
	rr := hs.do(post("/login", v))

	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/business/121" {
		t.Fatalf("got %d → %q", rr.Code, rr.Header().Get("Location"))
	}
	s := hs.sessionFrom(t, rr)
	if !s.LoggedIn() || s.AuthToken != "tok-1" || s.User.Name != "Asha" || s.User.Mobile != "9876543210" {
		t.Fatalf("session = %+v user %+v", s, s.User)
	}
	if k := hs.kinds(); len(k) != 1 || k[0] != message.LoginSucceeded {
		t.Fatalf("events = %v", k)
	}
}

func TestLoginFailureRerenders(t *testing.T) {
	hs := newHarness(t, &fakeBackend{login: &backend.AuthResult{OK: false}})

	v := hs.formValues(t)
	v.Set("mobile", "9876543210")
	v.Set("password", "wrong-pass")
	rr := hs.do(post("/login", v))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}
	d, _ := goquery.NewDocumentFromReader(rr.Body)
	if got := d.Find(".form-errors li").Text(); got != msgBadLogin {
		t.Errorf("error = %q", got)
	}
	if v, _ := d.Find(`input[name="mobile"]`).Attr("value"); v != "9876543210" {
		t.Errorf("mobile not echoed: %q", v)
	}
	if _, has := d.Find(`input[name="password"]`).Attr("value"); has {
		t.Error("password echoed back")
	}
	if k := hs.kinds(); len(k) != 1 || k[0] != message.LoginFailed {
		t.Fatalf("events = %v", k)
	}
}

func TestLoginValidationAndBackendDown(t *testing.T) {
	hs := newHarness(t, &fakeBackend{err: errors.New("connection refused")})

	v := hs.formValues(t)
	v.Set("mobile", "12")
	if rr := hs.do(post("/login", v)); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid input status = %d", rr.Code)
	}

	v = hs.formValues(t)
	v.Set("mobile", "9876543210")
	v.Set("password", "secret1")
	if rr := hs.do(post("/login", v)); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("backend down status = %d", rr.Code)
	}
}

func TestSignupLogsIn(t *testing.T) {
	be := &fakeBackend{reg: &backend.AuthResult{OK: true, Token: "tok-9", UserID: "9"}}
	hs := newHarness(t, be)

	v := hs.formValues(t)
	v.Set("name", "Ravi Kumar")
	v.Set("mobile", "9123456780")
	v.Set("email", "ravi@example.com")
	v.Set("city", "Pune")
	v.Set("password", "secret1")
	rr := hs.do(post("/signup", v))

	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("got %d → %q", rr.Code, rr.Header().Get("Location"))
	}
	if be.gotReg.City != "Pune" || be.gotReg.Password != "secret1" {
		t.Errorf("registration = %+v", be.gotReg)
	}
	s := hs.sessionFrom(t, rr)
	if s.AuthToken != "tok-9" || s.User.Name != "Ravi Kumar" {
		t.Fatalf("session = %+v", s)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	hs := newHarness(t, &fakeBackend{login: &backend.AuthResult{OK: true, Token: "t", UserID: "42"}})

	v := hs.formValues(t)
	v.Set("mobile", "9876543210")
	v.Set("password", "secret1")
	login := hs.do(post("/login", v))

	v = hs.formValues(t)
	v.Set("return_to", "//evil.example/")
	rr := hs.do(post("/logout", v), login.Result().Cookies()...)

	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("got %d → %q", rr.Code, rr.Header().Get("Location"))
	}
	s := hs.sessionFrom(t, rr)
	if s.LoggedIn() || s.Flash[session.FlashNotice] == "" {
		t.Fatalf("session after logout = %+v", s)
	}
	hs.mu.Lock()
	last := hs.events[len(hs.events)-1]
	hs.mu.Unlock()
	if last.Kind != message.Logout || last.UserID != "42" {
		t.Fatalf("logout event = %+v", last)
	}
}

func TestLoginModalShownOnFlash(t *testing.T) {
	hs := newHarness(t, &fakeBackend{})

	s := session.New()
	s.SetFlash(session.FlashLogin, "1")
	seed := httptest.NewRecorder()
	if err := hs.store.Save(seed, httptest.NewRequest(http.MethodGet, "/", nil), s); err != nil {
		t.Fatal(err)
	}

	rr := hs.do(httptest.NewRequest(http.MethodGet, "/signup", nil), seed.Result().Cookies()...)
	d, _ := goquery.NewDocumentFromReader(rr.Body)
	if d.Find("dialog.login-modal").Length() != 1 {
		t.Fatal("login modal not rendered")
	}
	if v, _ := d.Find(`dialog input[name="next"]`).Attr("value"); v != "/signup" {
		t.Errorf("modal next = %q", v)
	}

	rr = hs.do(httptest.NewRequest(http.MethodGet, "/signup", nil))
	d, _ = goquery.NewDocumentFromReader(rr.Body)
	if d.Find("dialog.login-modal").Length() != 0 {
		t.Fatal("modal shown without flash")
	}
}
