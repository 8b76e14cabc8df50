package logging

import (
	"context"
	"log/slog"

	"aecvision/internal/services"
)

var contextFields = []struct {
	key    string
	lookup func(context.Context) (string, bool)
}{
	{FieldRunID, services.RunIDFromContext},
	{FieldStage, services.StageFromContext},
	{FieldRecord, services.RecordFromContext},
}

// ContextFields returns the run, stage and record attributes carried by ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	for _, field := range contextFields {
		if value, ok := field.lookup(ctx); ok {
			fields = append(fields, slog.String(field.key, value))
		}
	}
	return fields
}

// WithContext binds the fields carried by ctx to logger.
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
