// internal/requestinfo/middleware.go
//
// Enrich attaches a *RequestInfo to every request.
//
// It runs after chi's RequestID and RealIP and before the session loader,
// so the review proxy can refuse bots and templates can read browser, device,
// and country without parsing headers again.  GeoIP is consulted only when
// OpenGeo was given a database.
//
//------------------------------------------------------------------------------

package requestinfo

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/bizdir/internal/logger"
)

// Enrich is chi-compatible middleware.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &RequestInfo{
			RequestID: middleware.GetReqID(r.Context()),
			UA:        ParseUA(r.UserAgent(), r.Header.Get("Accept-Language")),
			Geo:       lookupGeo(clientIP(r)),
			URL:       r.URL,
			Timestamp: time.Now().UTC(),
		}

		if l := logger.FromContext(r.Context()); l.Core().Enabled(zap.DebugLevel) {
			l.Debug("request info",
				zap.Stringer("ip", info.Geo.IP),
				zap.String("country", info.Geo.CountryISO),
				zap.String("browser", info.UA.Browser),
				zap.String("device", info.UA.Device),
				zap.Bool("bot", info.UA.IsBot))
		}

		next.ServeHTTP(w, r.WithContext(WithInfo(r.Context(), info)))
	})
}

// clientIP prefers the first parseable X-Forwarded-For hop, then X-Real-Ip,
// then RemoteAddr.  Behind chi's RealIP the first two are already folded
// into RemoteAddr; the headers still matter when Enrich runs alone.
func clientIP(r *http.Request) net.IP {
	for _, hop := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := net.ParseIP(strings.TrimSpace(hop)); ip != nil {
			return ip
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-Ip"))); ip != nil {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}
