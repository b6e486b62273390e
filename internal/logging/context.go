package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one invocation of the separation workflow.
	FieldRunID = "run_id"
	// FieldBatch is the 1-based batch number within a run.
	FieldBatch = "batch"
	// FieldModel is the separator model checkpoint name.
	FieldModel = "model"
	// FieldFile is the input file name (the processed-set identity).
	FieldFile = "file"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the operator's next step.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type ctxKey int

const (
	runIDKey ctxKey = iota
	batchKey
)

// WithRunID attaches a run identifier to ctx.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run identifier stored on ctx.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok && id != ""
}

// WithBatch attaches the 1-based batch number to ctx.
func WithBatch(ctx context.Context, batch int) context.Context {
	return context.WithValue(ctx, batchKey, batch)
}

// BatchFromContext returns the batch number stored on ctx.
func BatchFromContext(ctx context.Context) (int, bool) {
	if ctx == nil {
		return 0, false
	}
	batch, ok := ctx.Value(batchKey).(int)
	return batch, ok
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	fields := make([]slog.Attr, 0, 2)
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if batch, ok := BatchFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldBatch, batch))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
