// Package logging builds the service's structured logger and carries
// request-scoped attributes through context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

type contextKey string

const requestIDKey contextKey = "requestID"

// New returns a JSON logger writing to w at the given level, tagged with the
// service name and environment.
func New(w io.Writer, env, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(handler).With("service", "taskmanager", "environment", env)
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID stores the request id in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// FromContext returns base annotated with the request id found in ctx.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if id := RequestID(ctx); id != "" {
		return base.With("request_id", id)
	}
	return base
}

// AuthAttempt records the outcome of a credential check. The password is never passed here.
func AuthAttempt(ctx context.Context, log *slog.Logger, email string, success bool, reason string) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	attrs := []any{"email", email, "success", success}
	if reason != "" {
		attrs = append(attrs, "reason", reason)
	}
	log.Log(ctx, level, "authentication attempt", attrs...)
}

// TaskOperation records a completed task operation. A zero taskID marks an
// operation on a listing and is left out of the record.
func TaskOperation(ctx context.Context, log *slog.Logger, operation string, userID, taskID int64, attrs ...any) {
	args := []any{"operation", operation, "user_id", userID}
	if taskID != 0 {
		args = append(args, "task_id", taskID)
	}
	log.InfoContext(ctx, "task operation", append(args, attrs...)...)
}
