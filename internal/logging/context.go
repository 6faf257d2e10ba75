package logging

import (
	"context"
	"log/slog"
)

// Standardized structured logging keys.
const (
	// FieldComponent names the subsystem emitting the line.
	FieldComponent = "component"
	// FieldRunID identifies a pipeline run.
	FieldRunID = "run_id"
	// FieldStage names the pipeline stage in progress.
	FieldStage = "stage"
	// FieldDataset names the dataset directory being processed.
	FieldDataset = "dataset"
	// FieldTraceID identifies a single trace within a dataset.
	FieldTraceID = "trace_id"
	// FieldDetectorKey is the integer detector identity of a trace.
	FieldDetectorKey = "detector_key"
	// FieldSnapshot names a stored pipeline snapshot.
	FieldSnapshot = "snapshot"
)

type contextKey int

const (
	runIDContextKey contextKey = iota
	stageContextKey
	datasetContextKey
)

// WithRunID stores the pipeline run id on the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDContextKey, runID)
}

// RunIDFromContext extracts the run id, if set.
func RunIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDContextKey).(string)
	return id, ok && id != ""
}

// WithStage stores the active stage name on the context.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageContextKey, stage)
}

// StageFromContext extracts the stage name, if set.
func StageFromContext(ctx context.Context) (string, bool) {
	stage, ok := ctx.Value(stageContextKey).(string)
	return stage, ok && stage != ""
}

// WithDataset stores the dataset name on the context.
func WithDataset(ctx context.Context, dataset string) context.Context {
	return context.WithValue(ctx, datasetContextKey, dataset)
}

// DatasetFromContext extracts the dataset name, if set.
func DatasetFromContext(ctx context.Context) (string, bool) {
	dataset, ok := ctx.Value(datasetContextKey).(string)
	return dataset, ok && dataset != ""
}

// ContextFields extracts standardized slog attributes from the provided
// context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if stage, ok := StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if dataset, ok := DatasetFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldDataset, dataset))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived
// from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
