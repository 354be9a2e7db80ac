// Package middleware provides HTTP middleware for the control API.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/taskforge/taskforge/internal/api/shared"
	"github.com/taskforge/taskforge/internal/platform/logger"
)

// Trace adds a trace ID to the request context and a trace-stamped
// logger alongside it, so handlers and stores log with the same
// correlation ID the client sees in error responses.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.SetTraceID(r.Context())
		traceID := shared.GetTraceID(ctx)

		log := logger.FromContext(ctx).With(slog.String("trace_id", traceID))
		ctx = logger.WithLogger(ctx, log)

		log.Debug("request started",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
