// Package logger provides structured logging using Go 1.21's log/slog.
// Loggers are JSON handlers with service-level context, constructed once in
// main and injected into components; nothing mutates a process-wide logger.
// Trace IDs tie a signal evaluation to its order attempts and booking.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// Init creates a structured logger for the given service.
// The logger outputs JSON to stdout with the service name embedded.
func Init(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler).With(
		slog.String("service", service),
	)
}

// ParseLevel maps a config string ("debug", "info", "warn", "error") to a
// slog level. Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// WithTraceID stores a trace ID in the context for downstream propagation.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID extracts the trace ID from context. Returns "" if not set.
func TraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// NewTraceID creates a trace ID from an instrument code and timestamp.
// Format: "{code}-{unixNano}".
func NewTraceID(code string, ts time.Time) string {
	return fmt.Sprintf("%s-%d", code, ts.UnixNano())
}

// Trace returns slog attributes including the trace ID from context.
// Usage: log.Info("msg", logger.Trace(ctx)...)
func Trace(ctx context.Context) []any {
	tid := TraceID(ctx)
	if tid == "" {
		return nil
	}
	return []any{slog.String("trace_id", tid)}
}
