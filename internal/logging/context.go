package logging

import (
	"context"
	"log/slog"

	"nerassemble/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldFile is the standardized key for the input chunk file name.
	FieldFile = "file"
	// FieldStage is the standardized key for pipeline stage names.
	FieldStage = "stage"
	// FieldRunID is the standardized key for batch run identifiers.
	FieldRunID = "run_id"
	// FieldEventType tags log lines that mark a lifecycle event.
	FieldEventType = "event_type"
	// FieldErrorKind carries services.Kind for failures.
	FieldErrorKind = "error_kind"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, rid))
	}
	if name, ok := services.FileFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldFile, name))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
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
