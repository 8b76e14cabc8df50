package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CaptionKey identifies a cached caption. A caption is only reused for the
// same image, prompt, and model.
type CaptionKey struct {
	ImageURL string
	Prompt   string
	Model    string
}

// LookupCaption returns the cached caption for key.
func (s *Store) LookupCaption(ctx context.Context, key CaptionKey) (string, bool, error) {
	var caption string
	err := s.db.QueryRowContext(ctx,
		"SELECT caption FROM captions WHERE image_url = ? AND prompt = ? AND model = ?",
		key.ImageURL, key.Prompt, key.Model,
	).Scan(&caption)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup caption: %w", err)
	}
	return caption, true, nil
}

// SaveCaption stores or replaces the caption for key.
func (s *Store) SaveCaption(ctx context.Context, key CaptionKey, caption, requestID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO captions (image_url, prompt, model, caption, request_id, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(image_url, prompt, model) DO UPDATE SET
            caption = excluded.caption,
            request_id = excluded.request_id,
            created_at = excluded.created_at`,
		key.ImageURL, key.Prompt, key.Model, caption, nullableString(requestID),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save caption: %w", err)
	}
	return nil
}

// ClearCaptions removes every cached caption and returns the number removed.
func (s *Store) ClearCaptions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM captions")
	if err != nil {
		return 0, fmt.Errorf("clear captions: %w", err)
	}
	return res.RowsAffected()
}
