package review

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	sessctx "github.com/yanizio/bizdir/internal/auth"
	"github.com/yanizio/bizdir/internal/backend"
	"github.com/yanizio/bizdir/internal/component"
	"github.com/yanizio/bizdir/internal/form"
	"github.com/yanizio/bizdir/internal/message"
	"github.com/yanizio/bizdir/internal/requestinfo"
	"github.com/yanizio/bizdir/internal/session"
)

type fakeBackend struct {
	relay *backend.Relay
	err   error
	got   []byte
}

func (f *fakeBackend) SubmitReview(_ context.Context, body []byte) (*backend.Relay, error) {
	f.got = body
	return f.relay, f.err
}

type harness struct {
	h     http.Handler
	store *session.CookieStore
	mu    sync.Mutex
	kinds []message.Kind
}

func newHarness(t *testing.T, be *fakeBackend) *harness {
	t.Helper()
	hs := &harness{store: session.NewCookieStore("0123456789abcdef0123456789abcdef",
		session.CookieOptions{Name: "sid", MaxAge: time.Hour})}
	bus := message.NewBus()
	bus.Subscribe(func(_ context.Context, ev message.Event) {
		hs.mu.Lock()
		hs.kinds = append(hs.kinds, ev.Kind)
		hs.mu.Unlock()
	})
	r := chi.NewRouter()
	r.Use(sessctx.Middleware(hs.store))
	if err := component.Mount(r, &Component{backend: be}, component.Deps{Bus: bus}); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	hs.h = r
	return hs
}

// loginCookie returns a session cookie for a logged-in user 42.
func (hs *harness) loginCookie(t *testing.T) *http.Cookie {
	t.Helper()
	s := session.New()
	s.Login("tok-42", &session.User{ID: "42", Name: "Asha"})
	rr := httptest.NewRecorder()
	if err := hs.store.Save(rr, httptest.NewRequest(http.MethodGet, "/", nil), s); err != nil {
		t.Fatal(err)
	}
	return rr.Result().Cookies()[0]
}

func (hs *harness) serve(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	hs.h.ServeHTTP(rr, req)
	return rr
}

func (hs *harness) session(t *testing.T, rr *httptest.ResponseRecorder) *session.Session {
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

func jsonPost(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/reviews", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestProxyRelaysVerbatim(t *testing.T) {
	be := &fakeBackend{relay: &backend.Relay{
		Status: http.StatusCreated, ContentType: "application/json",
		Body: []byte(`{"status":"success","id":9}`),
	}}
	hs := newHarness(t, be)

	rr := hs.serve(jsonPost(`{"business_id":121,"rating":5,"comment":"Great"}`), hs.loginCookie(t))

	if rr.Code != http.StatusCreated || rr.Body.String() != `{"status":"success","id":9}` {
		t.Fatalf("got %d %s", rr.Code, rr.Body.String())
	}
	var sent map[string]any
	if err := json.Unmarshal(be.got, &sent); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"business_id": float64(121), "rating": float64(5), "comment": "Great",
		"token": "tok-42", "user_id": "42"}
	if diff := cmp.Diff(want, sent); diff != "" {
		t.Errorf("upstream body (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]message.Kind{message.ReviewSubmitted}, hs.kinds); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestProxyUpstreamErrorRelayed(t *testing.T) {
	be := &fakeBackend{relay: &backend.Relay{Status: http.StatusBadRequest, Body: []byte(`{"status":"error","message":"duplicate"}`)}}
	hs := newHarness(t, be)

	rr := hs.serve(jsonPost(`{"business_id":"121"}`))
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "duplicate") {
		t.Fatalf("got %d %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("content type = %q", rr.Header().Get("Content-Type"))
	}
	if string(be.got) != `{"business_id":"121"}` {
		t.Errorf("anonymous body altered: %s", be.got)
	}
	if diff := cmp.Diff([]message.Kind{message.ReviewFailed}, hs.kinds); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestProxyUnusableUpstreamBody(t *testing.T) {
	tests := []struct {
		name       string
		relay      backend.Relay
		wantStatus int
		wantMsg    string
	}{
		{"empty 200", backend.Relay{Status: 200}, http.StatusBadGateway, "empty response from review service"},
		{"html 200", backend.Relay{Status: 200, Body: []byte("<b>Notice</b>")}, http.StatusBadGateway, "invalid response from review service"},
		{"empty 500", backend.Relay{Status: 500, Body: []byte("  ")}, http.StatusInternalServerError, "empty response from review service"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relay := tt.relay
			hs := newHarness(t, &fakeBackend{relay: &relay})
			rr := hs.serve(jsonPost(`{"business_id":"121"}`))

			var got envelope
			if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if rr.Code != tt.wantStatus || got != (envelope{Status: "error", Message: tt.wantMsg}) {
				t.Fatalf("got %d %+v", rr.Code, got)
			}
		})
	}
}

func TestProxyRejects(t *testing.T) {
	hs := newHarness(t, &fakeBackend{err: errors.New("dial tcp: refused")})

	if rr := hs.serve(jsonPost(`not json`)); rr.Code != http.StatusBadRequest {
		t.Errorf("non-JSON status = %d", rr.Code)
	}
	if rr := hs.serve(jsonPost(`[1,2]`)); rr.Code != http.StatusBadRequest {
		t.Errorf("array status = %d", rr.Code)
	}

	bot := jsonPost(`{"business_id":"121"}`)
	bot = bot.WithContext(requestinfo.WithInfo(bot.Context(), &requestinfo.RequestInfo{UA: requestinfo.UA{IsBot: true}}))
	if rr := hs.serve(bot); rr.Code != http.StatusForbidden {
		t.Errorf("bot status = %d", rr.Code)
	}

	if rr := hs.serve(jsonPost(`{"business_id":"121"}`)); rr.Code != http.StatusBadGateway {
		t.Errorf("transport failure status = %d", rr.Code)
	}
}

func reviewForm(rating, comment, next string) url.Values {
	tok, _ := form.GenerateToken()
	v := url.Values{}
	v.Set("csrf_token", tok)
	v.Set("render_ts", strconv.FormatInt(time.Now().Add(-10*time.Second).UnixMicro(), 10))
	v.Set("rating", rating)
	v.Set("comment", comment)
	v.Set("business_id", "121")
	v.Set("next", next)
	return v
}

func formPost(v url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/business/121/review", strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestFormAnonymousGetsLoginFlash(t *testing.T) {
	be := &fakeBackend{}
	hs := newHarness(t, be)

	rr := hs.serve(formPost(reviewForm("5", "Great", "/business/121/doctors/cat5")))

	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/business/121/doctors/cat5" {
		t.Fatalf("got %d → %q", rr.Code, rr.Header().Get("Location"))
	}
	if s := hs.session(t, rr); s.Flash[session.FlashLogin] == "" {
		t.Fatalf("login flash missing: %+v", s.Flash)
	}
	if be.got != nil {
		t.Error("anonymous review reached the backend")
	}
	if diff := cmp.Diff([]message.Kind{message.LoginRequired}, hs.kinds); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestFormSubmitsForLoggedInUser(t *testing.T) {
	be := &fakeBackend{relay: &backend.Relay{Status: 200, Body: []byte(`{"status":"success"}`)}}
	hs := newHarness(t, be)

	rr := hs.serve(formPost(reviewForm("4", "Friendly staff", "https://evil.example/")), hs.loginCookie(t))

	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/business/121" {
		t.Fatalf("got %d → %q", rr.Code, rr.Header().Get("Location"))
	}
	var sent Submission
	if err := json.Unmarshal(be.got, &sent); err != nil {
		t.Fatal(err)
	}
	want := Submission{BusinessID: "121", UserID: "42", Token: "tok-42", Rating: 4, Comment: "Friendly staff"}
	if diff := cmp.Diff(want, sent); diff != "" {
		t.Errorf("submission (-want +got):\n%s", diff)
	}
	s := hs.session(t, rr)
	if s.Flash[session.FlashNotice] != msgThanks || !s.LoggedIn() {
		t.Fatalf("session = %+v", s)
	}
	if diff := cmp.Diff([]message.Kind{message.ReviewSubmitted}, hs.kinds); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestFormBackendRejection(t *testing.T) {
	be := &fakeBackend{relay: &backend.Relay{Status: 200, Body: []byte(`{"status":"error","message":"Already reviewed."}`)}}
	hs := newHarness(t, be)

	rr := hs.serve(formPost(reviewForm("3", "Okay", "")), hs.loginCookie(t))

	if s := hs.session(t, rr); s.Flash[session.FlashNotice] != "Already reviewed." {
		t.Fatalf("notice = %q", s.Flash[session.FlashNotice])
	}
	if diff := cmp.Diff([]message.Kind{message.ReviewFailed}, hs.kinds); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestFormInvalidInput(t *testing.T) {
	be := &fakeBackend{}
	hs := newHarness(t, be)

	rr := hs.serve(formPost(reviewForm("9", "", "")), hs.loginCookie(t))

	if s := hs.session(t, rr); s.Flash[session.FlashNotice] != msgInvalid {
		t.Fatalf("notice = %q", s.Flash[session.FlashNotice])
	}
	if be.got != nil {
		t.Error("invalid review reached the backend")
	}
}

func TestAccepted(t *testing.T) {
	tests := []struct {
		status int
		body   string
		ok     bool
	}{
		{200, `{"status":"success"}`, true},
		{200, `{"success":true}`, true},
		{200, `{"success":false}`, false},
		{200, `{"status":"error"}`, false},
		{200, ``, false},
		{500, `{"status":"success"}`, false},
	}
	for _, tt := range tests {
		if ok, _ := accepted(tt.status, []byte(tt.body)); ok != tt.ok {
			t.Errorf("accepted(%d, %s) = %v", tt.status, tt.body, ok)
		}
	}
}
