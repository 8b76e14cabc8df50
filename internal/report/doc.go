// Package report aggregates per-run counters and issues into a Summary and
// presents it as terminal tables, JSON or a Prometheus textfile.
package report
