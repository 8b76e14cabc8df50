package catalog

import (
	"context"
	"fmt"

	"aecvision/internal/records"
)

// ReplaceDetails swaps the stored detail rows for details, preserving order.
func (s *Store) ReplaceDetails(ctx context.Context, details []records.Detail) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin details tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM details"); err != nil {
		return fmt.Errorf("clear details: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO details (position, file_name, number, title, link) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare detail insert: %w", err)
	}
	defer stmt.Close()
	for i, d := range details {
		if _, err := stmt.ExecContext(ctx, i, d.FileName, d.Number, d.Title, d.Link); err != nil {
			return fmt.Errorf("insert detail %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit details: %w", err)
	}
	return nil
}

// ReplaceSpecs swaps the stored specification rows for specs, preserving order.
func (s *Store) ReplaceSpecs(ctx context.Context, specs []records.Specification) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin specs tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM specs"); err != nil {
		return fmt.Errorf("clear specs: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO specs (position, number, title, body, link) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare spec insert: %w", err)
	}
	defer stmt.Close()
	for i, sp := range specs {
		if _, err := stmt.ExecContext(ctx, i, sp.Number, sp.Title, sp.Body, sp.Link); err != nil {
			return fmt.Errorf("insert spec %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit specs: %w", err)
	}
	return nil
}

// Details returns the stored details in scrape order.
func (s *Store) Details(ctx context.Context) ([]records.Detail, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT file_name, number, title, link FROM details ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query details: %w", err)
	}
	defer rows.Close()

	var out []records.Detail
	for rows.Next() {
		var d records.Detail
		if err := rows.Scan(&d.FileName, &d.Number, &d.Title, &d.Link); err != nil {
			return nil, fmt.Errorf("scan detail: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate details: %w", err)
	}
	return out, nil
}

// Specs returns the stored specifications in scrape order.
func (s *Store) Specs(ctx context.Context) ([]records.Specification, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT number, title, body, link FROM specs ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query specs: %w", err)
	}
	defer rows.Close()

	var out []records.Specification
	for rows.Next() {
		var sp records.Specification
		if err := rows.Scan(&sp.Number, &sp.Title, &sp.Body, &sp.Link); err != nil {
			return nil, fmt.Errorf("scan spec: %w", err)
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate specs: %w", err)
	}
	return out, nil
}

// Counts summarizes catalog contents.
type Counts struct {
	Details  int
	Specs    int
	Captions int
	Runs     int
}

// Counts returns row counts for every catalog table.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	queries := []struct {
		table string
		dest  *int
	}{
		{"details", &c.Details},
		{"specs", &c.Specs},
		{"captions", &c.Captions},
		{"runs", &c.Runs},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM "+q.table).Scan(q.dest); err != nil {
			return Counts{}, fmt.Errorf("count %s: %w", q.table, err)
		}
	}
	return c, nil
}
