package services

import "context"

type contextKey int

const (
	runIDKey contextKey = iota
	stageKey
	recordKey
)

// WithRunID tags ctx with the run identifier assigned when a command starts.
func WithRunID(ctx context.Context, id string) context.Context {
	return withValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run identifier, if one was attached.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return valueOf(ctx, runIDKey)
}

// WithStage tags ctx with the pipeline stage doing the work, such as
// "scrape_details" or "enrich".
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name, if one was attached.
func StageFromContext(ctx context.Context) (string, bool) {
	return valueOf(ctx, stageKey)
}

// WithRecord tags ctx with the detail or specification being processed.
func WithRecord(ctx context.Context, id string) context.Context {
	return withValue(ctx, recordKey, id)
}

// RecordFromContext returns the record identifier, if one was attached.
func RecordFromContext(ctx context.Context) (string, bool) {
	return valueOf(ctx, recordKey)
}

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func valueOf(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}
