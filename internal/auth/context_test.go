package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yanizio/bizdir/internal/session"
)

func TestSessionOutsideMiddleware(t *testing.T) {
	s := Session(context.Background())
	if s == nil || s.LoggedIn() {
		t.Fatalf("want anonymous session, got %+v", s)
	}
	if _, ok := UserID(context.Background()); ok {
		t.Error("UserID should be absent")
	}
}

func TestMiddlewareAndCommit(t *testing.T) {
	store := session.NewCookieStore("0123456789abcdef0123456789abcdef",
		session.CookieOptions{Name: "sid", MaxAge: time.Hour})

	login := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Session(r.Context()).Login("tok", &session.User{ID: "7"})
		if err := Commit(w, r); err != nil {
			t.Errorf("Commit: %v", err)
		}
	}))
	rec := httptest.NewRecorder()
	login.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %v", cookies)
	}

	var gotID string
	read := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = UserID(r.Context())
		if err := Commit(w, r); err != nil {
			t.Errorf("Commit: %v", err)
		}
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	read.ServeHTTP(rec, req)

	if gotID != "7" {
		t.Errorf("UserID = %q", gotID)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("clean session should not be re-saved")
	}
}
