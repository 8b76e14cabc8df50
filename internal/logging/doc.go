// Package logging assembles structured slog loggers and formatting helpers used
// across aecvision.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with the run identifier, stage and record. WarnWithContext and
// ErrorWithContext enforce the event/hint/impact fields every warning should
// carry, and LogDecision marks policy choices such as skipped enrichment. The package also provides a no-op logger for tests and wiring code
// that cannot fail.
package logging
