package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"finspect/internal/core"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// Middleware creates HTTP middleware that adds a logger to the request
// context. extractRequestID, when set, tags the logger with the request id.
func Middleware(logger *Logger, extractRequestID func(context.Context) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger
			if extractRequestID != nil {
				if id := extractRequestID(r.Context()); id != "" {
					l = l.With(FieldRequestID, id)
				}
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), l)))
		})
	}
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPRequest logs the start of a request at debug level.
func (sl *StructuredLogger) LogHTTPRequest(ctx context.Context, r *http.Request, requestID, clientIP string) {
	fields := NewFields().
		WithRequestID(requestID).
		WithClientIP(clientIP).
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent())
	sl.logger.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPResponse logs a finished request. 4xx responses are warnings and
// 5xx responses errors.
func (sl *StructuredLogger) LogHTTPResponse(ctx context.Context, r *http.Request, requestID, clientIP string, status int, duration time.Duration) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	fields := NewFields().
		WithRequestID(requestID).
		WithClientIP(clientIP).
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()).
		WithHTTPResponse(status, duration.Milliseconds())
	sl.logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogCategoryMutation logs a confirmed category change.
func (sl *StructuredLogger) LogCategoryMutation(ctx context.Context, op string, c core.Category, actorID string) {
	fields := NewFields().
		WithOperation(op).
		WithCategory(c).
		WithActor(actorID)
	sl.logger.WithComponent(ComponentCategories).InfoContext(ctx, "Category "+op+" confirmed", fields.ToSlice()...)
}

// LogError logs an error with structured context. Client side kinds are
// logged at warn level.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, kind string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithError(err).WithErrorKind(kind).WithOperation(operation)

	level := slog.LevelError
	switch kind {
	case "validation", "not_found", "conflict", "authentication", "authorization":
		level = slog.LevelWarn
	}
	sl.logger.Log(ctx, level, msg, fields.ToSlice()...)
}
