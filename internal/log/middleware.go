package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

const LoggerContextKey ContextKey = "logger"

// Middleware stores logger in the request context, tagged with the request
// id produced by extractRequestID when it returns one.
func Middleware(logger *Logger, extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger
			if extractRequestID != nil {
				if id := extractRequestID(r); id != "" {
					l = l.With(FieldRequestID, id)
				}
			}
			next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), l)))
		})
	}
}

func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the context, falling back to slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// LogError logs an error with its taxonomy class and operation.
func LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	level := slog.LevelError
	switch fields.WithError(err).WithOperation(operation)[FieldErrorType] {
	case "validation_error", "not_found_error":
		level = slog.LevelWarn
	}
	FromContext(ctx).LogFields(ctx, level, msg, fields)
}
