// internal/session/redis.go
//
// Redis-backed store.
//
// The cookie carries only a random UUID.  The JSON payload lives under
// `<prefix><uuid>` with a TTL equal to the cookie max age, refreshed on
// every save.  A missing key (expired or cleared) is ErrNoSession; any
// other Redis error is returned so the middleware can log it and carry on
// with an anonymous session.

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "bizdir:session:"

// RedisStore keeps payloads in Redis.
type RedisStore struct {
	rdb    *redis.Client
	opts   CookieOptions
	prefix string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client, opts CookieOptions) *RedisStore {
	return &RedisStore{rdb: rdb, opts: opts, prefix: defaultKeyPrefix}
}

func (s *RedisStore) Load(r *http.Request) (*Session, error) {
	ck, err := r.Cookie(s.opts.Name)
	if err != nil || ck.Value == "" {
		return nil, ErrNoSession
	}
	if _, err := uuid.Parse(ck.Value); err != nil {
		return nil, ErrNoSession
	}

	raw, err := s.rdb.Get(r.Context(), s.prefix+ck.Value).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}

	sess := New()
	if err := json.Unmarshal(raw, sess); err != nil {
		return nil, ErrNoSession
	}
	sess.id = ck.Value
	return sess, nil
}

func (s *RedisStore) Save(w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess.Empty() {
		sess.MarkClean()
		return s.Clear(w, r)
	}
	if sess.id == "" {
		sess.id = uuid.NewString()
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := s.rdb.Set(r.Context(), s.prefix+sess.id, raw, s.opts.MaxAge).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	http.SetCookie(w, s.opts.cookie(sess.id, s.opts.MaxAge))
	sess.MarkClean()
	return nil
}

func (s *RedisStore) Clear(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, s.opts.cookie("", 0))
	ck, err := r.Cookie(s.opts.Name)
	if err != nil || ck.Value == "" {
		return nil
	}
	if err := s.rdb.Del(r.Context(), s.prefix+ck.Value).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}
