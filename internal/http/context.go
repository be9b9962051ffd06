package http

import (
	"context"
	"log/slog"

	"github.com/example/tutoring-agency/internal/logging"
)

type contextKey string

const (
	sessionIDContextKey contextKey = "session_id"
	tutorIDContextKey   contextKey = "tutor_id"
)

// ContextWithSessionID injects the session identifier resolved from the request path.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, sessionID)
}

// SessionIDFromContext extracts a session identifier previously associated with the context.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDContextKey).(string)
	return id, ok
}

// ContextWithTutorID injects the tutor identifier resolved from the request path.
func ContextWithTutorID(ctx context.Context, tutorID string) context.Context {
	return context.WithValue(ctx, tutorIDContextKey, tutorID)
}

// TutorIDFromContext extracts a tutor identifier previously associated with the context.
func TutorIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(tutorIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches a request scoped logger to the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext retrieves the request scoped logger, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
