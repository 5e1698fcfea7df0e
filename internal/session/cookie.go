// internal/session/cookie.go
//
// Stateless cookie store.
//
// Cookie value format:
//
//	base64url(json{exp, session}) "." base64url(HMAC_SHA256(secret, payload))
//
// Load rejects a bad signature, a malformed payload, or an expired exp with
// ErrNoSession.  An empty session clears the cookie instead of writing it.

package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// CookieOptions are shared by both stores.
type CookieOptions struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

func (o CookieOptions) cookie(value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     o.Name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		c.MaxAge = int(maxAge.Seconds())
		c.Expires = time.Now().Add(maxAge)
	} else {
		c.MaxAge = -1
	}
	return c
}

// CookieStore signs the whole session into the cookie.
type CookieStore struct {
	opts   CookieOptions
	secret []byte
	now    func() time.Time
}

// NewCookieStore panics on an empty secret; config validation guarantees
// one of at least 32 bytes.
func NewCookieStore(secret string, opts CookieOptions) *CookieStore {
	if secret == "" {
		panic("session: empty cookie secret")
	}
	return &CookieStore{opts: opts, secret: []byte(secret), now: time.Now}
}

type cookiePayload struct {
	Exp     int64    `json:"exp"`
	Session *Session `json:"s"`
}

func (c *CookieStore) Load(r *http.Request) (*Session, error) {
	ck, err := r.Cookie(c.opts.Name)
	if err != nil || ck.Value == "" {
		return nil, ErrNoSession
	}

	payload, sig, ok := strings.Cut(ck.Value, ".")
	if !ok {
		return nil, ErrNoSession
	}
	gotSig, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(gotSig, c.sign(payload)) {
		return nil, ErrNoSession
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrNoSession
	}
	var p cookiePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Session == nil {
		return nil, ErrNoSession
	}
	if c.now().Unix() > p.Exp {
		return nil, ErrNoSession
	}
	return p.Session, nil
}

func (c *CookieStore) Save(w http.ResponseWriter, r *http.Request, s *Session) error {
	if s.Empty() {
		s.MarkClean()
		return c.Clear(w, r)
	}
	raw, err := json.Marshal(cookiePayload{
		Exp:     c.now().Add(c.opts.MaxAge).Unix(),
		Session: s,
	})
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	value := payload + "." + base64.RawURLEncoding.EncodeToString(c.sign(payload))

	http.SetCookie(w, c.opts.cookie(value, c.opts.MaxAge))
	s.MarkClean()
	return nil
}

func (c *CookieStore) Clear(w http.ResponseWriter, _ *http.Request) error {
	http.SetCookie(w, c.opts.cookie("", 0))
	return nil
}

func (c *CookieStore) sign(payload string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}
