package shield

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/Valian/extractous-go/kit"
)

// TraceID tags every request with a random ID, exposed three ways: the
// X-Trace-ID response header, the request context under kit.TraceIDKey, and
// a request-scoped slog logger under LoggerKey.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := newTraceID()
		w.Header().Set("X-Trace-ID", traceID)

		log := slog.Default().With(
			"trace_id", traceID,
			"method", r.Method,
			"path", r.URL.Path,
		)
		log.Info("request", "remote_addr", r.RemoteAddr)

		ctx := kit.WithTraceID(r.Context(), traceID)
		ctx = context.WithValue(ctx, LoggerKey, log)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// newTraceID returns 16 hex characters of crypto randomness.
func newTraceID() string {
	var b [8]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// GetLogger returns the request-scoped logger, or slog.Default() outside a
// TraceID-wrapped request.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
