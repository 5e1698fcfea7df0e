// internal/session/session.go
//
// Login session model and storage contract.
//
// Context
// -------
// A visitor's auth token, profile, and one-shot flash messages travel in a
// Session.  Handlers read it from the request context (see internal/auth)
// and never touch cookies directly.  Two Store implementations exist:
//
//   • CookieStore ─ HMAC-signed JSON in one cookie, no server state.
//   • RedisStore  ─ random id in the cookie, JSON payload in Redis.
//
// Flash values are consumed on read.  Any mutation marks the session dirty
// so the caller knows a Save is due before the response is written.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.

package session

import (
	"errors"
	"net/http"
)

// Flash keys.
const (
	FlashLogin  = "login"
	FlashNotice = "notice"
)

// ErrNoSession is returned by Store.Load when the request carries no valid
// session.  Callers start a fresh one.
var ErrNoSession = errors.New("session: none")

// User is the profile returned by the backend at login.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Mobile string `json:"mobile,omitempty"`
	Email  string `json:"email,omitempty"`
	City   string `json:"city,omitempty"`
}

// Session is the per-visitor state.
type Session struct {
	AuthToken string            `json:"token,omitempty"`
	User      *User             `json:"user,omitempty"`
	Flash     map[string]string `json:"flash,omitempty"`

	id    string // RedisStore key; unused by CookieStore
	dirty bool
}

// New returns an empty, clean session.
func New() *Session { return &Session{} }

// LoggedIn reports whether an auth token is present.
func (s *Session) LoggedIn() bool { return s != nil && s.AuthToken != "" }

// Login stores the token and profile and rotates the store id.
func (s *Session) Login(token string, u *User) {
	s.AuthToken, s.User = token, u
	s.id = ""
	s.dirty = true
}

// Logout drops the token and profile.  Pending flashes survive.
func (s *Session) Logout() {
	s.AuthToken, s.User = "", nil
	s.dirty = true
}

// SetFlash queues a one-shot message.
func (s *Session) SetFlash(key, val string) {
	if s.Flash == nil {
		s.Flash = make(map[string]string)
	}
	s.Flash[key] = val
	s.dirty = true
}

// PopFlash returns and removes a flash value.
func (s *Session) PopFlash(key string) string {
	v, ok := s.Flash[key]
	if !ok {
		return ""
	}
	delete(s.Flash, key)
	s.dirty = true
	return v
}

// Dirty reports unsaved changes.
func (s *Session) Dirty() bool { return s.dirty }

// MarkClean is called by stores after a successful save.
func (s *Session) MarkClean() { s.dirty = false }

// Empty reports whether there is nothing worth persisting.
func (s *Session) Empty() bool {
	return s.AuthToken == "" && s.User == nil && len(s.Flash) == 0
}

// Store persists sessions between requests.
type Store interface {
	Load(r *http.Request) (*Session, error)
	Save(w http.ResponseWriter, r *http.Request, s *Session) error
	Clear(w http.ResponseWriter, r *http.Request) error
}
