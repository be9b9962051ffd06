package http

import (
	"context"
	"log/slog"
)

// handlerLogger resolves the request scoped logger, falling back to the
// handler's own, and tags it with the handler and operation names.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string) *slog.Logger {
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = fallback
	}
	if logger == nil {
		logger = slog.Default()
	}
	if operation == "" {
		return logger.With("handler", handlerName)
	}
	return logger.With("handler", handlerName, "operation", operation)
}
