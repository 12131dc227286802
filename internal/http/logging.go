package http

import (
	"context"
	"log/slog"

	"github.com/advicly/calendar-sync/internal/logging"
)

// defaultLogger resolves the base logger handed to a handler constructor.
func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger scopes a request's logger to one handler operation. The
// request-scoped logger attached by the middleware wins; without one, the
// handler's own base logger is used.
func handlerLogger(ctx context.Context, base *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := base
	if scoped, ok := logging.Lookup(ctx); ok {
		logger = scoped
	}

	pairs := []any{"handler", handlerName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}
