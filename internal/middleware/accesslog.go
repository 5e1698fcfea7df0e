// internal/middleware/accesslog.go
//
// Access log and request metrics.
//
// AccessLog derives a request-scoped zap logger carrying the chi request
// id, stores it in the context (logger.WithContext) so every deeper layer
// logs with the same id, and writes one INFO line per request once the
// handler returns.  Metrics counts the response by method and status class.
//
// Both wrap the writer with chi's WrapResponseWriter so status and size are
// observable after the fact.  /healthz is logged at DEBUG to keep probes
// out of the daily file.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yanizio/bizdir/internal/logger"
	"github.com/yanizio/bizdir/internal/metrics"
)

// AccessLog returns the access-log wrapper writing through base.
func AccessLog(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			l := base.With(zap.String("request_id", middleware.GetReqID(r.Context())))
			r = r.WithContext(logger.WithContext(r.Context(), l))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			lvl := zapcore.InfoLevel
			if r.URL.Path == "/healthz" {
				lvl = zapcore.DebugLevel
			}
			if ce := l.Check(lvl, "request"); ce != nil {
				ce.Write(
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", statusOf(ww)),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("elapsed", time.Since(start)),
					zap.String("remote", r.RemoteAddr),
				)
			}
		})
	}
}

// Metrics counts served requests in metrics.HTTPRequestsTotal.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		class := strconv.Itoa(statusOf(ww)/100) + "xx"
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, class).Inc()
	})
}

// statusOf treats "never wrote a header" as 200, which is what net/http
// sends.
func statusOf(ww middleware.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}
