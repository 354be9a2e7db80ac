package logger

import (
	"context"
	"log/slog"
)

// loggerKey is the context key for the request/task scoped logger.
type loggerKey struct{}

// WithLogger returns a context carrying the given logger. Handlers and
// the task execution wrapper use it to attach correlation attributes
// (request IDs, task IDs) that downstream code picks up transparently.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger carried by the context, or the default
// logger when the context has none.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
