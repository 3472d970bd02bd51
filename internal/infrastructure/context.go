package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type ctxKey int

const (
	traceIDKey ctxKey = iota
	exportIDKey
)

// WithTraceID tags ctx with the request's trace ID. The HTTP middleware
// sets it from the request ID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

// EnsureTraceID returns ctx unchanged when it already carries a trace ID,
// otherwise a copy with a new random one.
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, uuid.NewString())
}

// WithExportID tags ctx with the export being processed so every log line
// of that export carries export_id.
func WithExportID(ctx context.Context, exportID string) context.Context {
	return context.WithValue(ctx, exportIDKey, exportID)
}

func GetExportID(ctx context.Context) string {
	id, _ := ctx.Value(exportIDKey).(string)
	return id
}

func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String("component", component))
}

// WithError returns logger unchanged for a nil error
func WithError(logger *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return logger
	}
	return logger.With(slog.String("error", err.Error()))
}
