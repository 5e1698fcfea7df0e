// internal/form/csrf.go
//
// Forms subsystem: CSRF tokens.
//
// Tokens are stateless so any instance can verify a form another rendered:
//
//	base64url( nonce[16] | issued µs, big-endian [8] | HMAC-SHA256[32] )
//
// The key is derived from the session secret by SetSecret.  A process that
// never calls it signs with a random key, which is enough for tests but
// invalidates every open form on restart.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	nonceLen = 16
	stampLen = 8
	tokenLen = nonceLen + stampLen + sha256.Size

	tokenTTL  = 2 * time.Hour
	clockSkew = time.Minute
)

var (
	keyOnce sync.Once
	keyMu   sync.RWMutex
	key     []byte
)

// SetSecret derives the signing key from seed.  The derivation keeps CSRF
// signatures distinct from session cookie signatures made with the same seed.
func SetSecret(seed []byte) {
	m := hmac.New(sha256.New, seed)
	m.Write([]byte("bizdir/form/csrf"))
	keyMu.Lock()
	key = m.Sum(nil)
	keyMu.Unlock()
}

func signingKey() []byte {
	keyMu.RLock()
	k := key
	keyMu.RUnlock()
	if k != nil {
		return k
	}
	keyOnce.Do(func() {
		r := make([]byte, 32)
		_, _ = rand.Read(r)
		keyMu.Lock()
		if key == nil {
			key = r
			zap.L().Warn("form: csrf secret not set, signing with a random key")
		}
		keyMu.Unlock()
	})
	keyMu.RLock()
	defer keyMu.RUnlock()
	return key
}

func sign(k, nonce, stamp []byte) []byte {
	m := hmac.New(sha256.New, k)
	m.Write(nonce)
	m.Write(stamp)
	return m.Sum(nil)
}

// GenerateToken issues a token for one form render.
func GenerateToken() (string, error) {
	buf := make([]byte, nonceLen+stampLen, tokenLen)
	if _, err := rand.Read(buf[:nonceLen]); err != nil {
		return "", err
	}
	binary.BigEndian.PutUint64(buf[nonceLen:], uint64(time.Now().UnixMicro()))
	buf = append(buf, sign(signingKey(), buf[:nonceLen], buf[nonceLen:])...)
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// VerifyToken reports whether tok was issued by this key within tokenTTL.
func VerifyToken(tok string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenLen {
		return false
	}
	nonce, stamp, sig := raw[:nonceLen], raw[nonceLen:nonceLen+stampLen], raw[nonceLen+stampLen:]

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(stamp)))
	if age := time.Since(issued); age > tokenTTL || age < -clockSkew {
		return false
	}
	return hmac.Equal(sig, sign(signingKey(), nonce, stamp))
}
