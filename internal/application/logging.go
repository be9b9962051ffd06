package application

import (
	"context"
	"log/slog"

	"github.com/example/tutoring-agency/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// serviceLogger resolves the request scoped logger, falling back to the
// service's own, and tags it with the service and operation names.
func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("service", serviceName, "operation", operation)
}
