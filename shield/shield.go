// Package shield provides reusable HTTP middleware for the extraction
// service: security headers, per-endpoint rate limiting, body limits, and
// request tracing.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultAPIStack(db, maxBody) {
//		r.Use(mw)
//	}
package shield

import (
	"database/sql"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultAPIStack returns the standard middleware stack for the extraction
// API: SecurityHeaders -> MaxBody -> TraceID -> RateLimiter. The rate
// limiter reads its rules from the rate_limits table in db; pass nil to run
// without one. Health checks bypass rate limiting.
func DefaultAPIStack(db *sql.DB, maxBody int64) []func(http.Handler) http.Handler {
	stack := []func(http.Handler) http.Handler{
		SecurityHeaders(DefaultHeaders()),
		MaxBody(maxBody),
		TraceID,
	}
	if db != nil {
		rl := NewRateLimiter(db, "/health")
		stack = append(stack, rl.Middleware)
	}
	return stack
}
