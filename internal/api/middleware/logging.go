package middleware

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// requestLog is filled in by inner middleware (tenant binding happens after
// the access log wraps the request).
type requestLog struct {
	tenantID string
	userID   string
}

const requestLogKey = contextKey("request_log")

func annotate(ctx context.Context, tenantID, userID string) {
	if rl, ok := ctx.Value(requestLogKey).(*requestLog); ok {
		rl.tenantID = tenantID
		rl.userID = userID
	}
}

// Logging returns middleware that writes one structured access log line per
// request. 5xx responses log at error level, 4xx at warn.
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rl := &requestLog{}
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), requestLogKey, rl)))

			level := zapcore.InfoLevel
			switch {
			case rw.statusCode >= 500:
				level = zapcore.ErrorLevel
			case rw.statusCode >= 400:
				level = zapcore.WarnLevel
			}

			logger.Log(level, "http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", rw.statusCode),
				zap.Int64("bytes", rw.written),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", RequestIDFromContext(r.Context())),
				zap.String("tenant_id", rl.tenantID),
				zap.String("user_id", rl.userID),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
			)
		})
	}
}
