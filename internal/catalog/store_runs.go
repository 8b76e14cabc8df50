package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run is one recorded command invocation.
type Run struct {
	ID          string
	Command     string
	StartedAt   time.Time
	FinishedAt  time.Time
	Outcome     string
	SummaryJSON string
}

// RecordRun stores a finished run.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (run_id, command, started_at, finished_at, outcome, summary_json) VALUES (?, ?, ?, ?, ?, ?)",
		run.ID,
		run.Command,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Outcome,
		nullableString(run.SummaryJSON),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// LastRun returns the most recent run of command, or nil when none exists.
func (s *Store) LastRun(ctx context.Context, command string) (*Run, error) {
	var (
		run        Run
		startedRaw string
		finished   string
		summary    sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT run_id, command, started_at, finished_at, outcome, summary_json FROM runs WHERE command = ? ORDER BY finished_at DESC LIMIT 1",
		command,
	).Scan(&run.ID, &run.Command, &startedRaw, &finished, &run.Outcome, &summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}
	run.StartedAt = parseTime(startedRaw)
	run.FinishedAt = parseTime(finished)
	run.SummaryJSON = summary.String
	return &run, nil
}

func parseTime(raw string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}
