// internal/auth/context.go
//
// Request-scoped session access.
//
// Context
// -------
// Middleware loads the visitor's session once per request and parks it in
// the context together with the store that produced it.  Handlers call
// Session(ctx) to read or mutate it and Commit before writing the response
// when they changed it.
//
// Usage
// -----
//
//	r.Use(auth.Middleware(store))
//
//	s := auth.Session(r.Context())
//	if !s.LoggedIn() { … }
//	s.SetFlash(session.FlashLogin, "1")
//	_ = auth.Commit(w, r)
//
// Notes
// -----
// • Session never returns nil; outside the middleware it is a throw-away
//   anonymous session.
// • Oxford commas, two spaces after periods.

package auth

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/bizdir/internal/logger"
	"github.com/yanizio/bizdir/internal/session"
)

// stateKey is unexported to avoid context-key collisions.
type stateKey struct{}

type state struct {
	sess  *session.Session
	store session.Store
}

// WithSession returns ctx carrying s and the store used to persist it.
func WithSession(ctx context.Context, s *session.Session, store session.Store) context.Context {
	return context.WithValue(ctx, stateKey{}, &state{sess: s, store: store})
}

// Session returns the request session.
func Session(ctx context.Context) *session.Session {
	if st, ok := ctx.Value(stateKey{}).(*state); ok && st.sess != nil {
		return st.sess
	}
	return session.New()
}

// UserID returns the logged-in user's id.
func UserID(ctx context.Context) (string, bool) {
	s := Session(ctx)
	if !s.LoggedIn() || s.User == nil || s.User.ID == "" {
		return "", false
	}
	return s.User.ID, true
}

// Commit saves the session if it changed.  Call before the first byte of
// the response is written.
func Commit(w http.ResponseWriter, r *http.Request) error {
	st, ok := r.Context().Value(stateKey{}).(*state)
	if !ok || st.store == nil || !st.sess.Dirty() {
		return nil
	}
	return st.store.Save(w, r, st.sess)
}

// Middleware loads the session for every request.  Store failures are
// logged and the request continues anonymously.
func Middleware(store session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := store.Load(r)
			if err != nil {
				if !errors.Is(err, session.ErrNoSession) {
					logger.FromContext(r.Context()).Warn("session load failed", zap.Error(err))
				}
				s = session.New()
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s, store)))
		})
	}
}
