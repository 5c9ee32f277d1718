package progress

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"medialib/internal/listing"
	"medialib/pkg/models"
)

// Execer is satisfied by *sql.DB and *sql.Tx so history can be written in the
// same transaction as the library change.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Record appends one history row.
func Record(ctx context.Context, ex Execer, entry models.ProgressHistory) error {
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO progress_history (user_id, media_id, progress, note, at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.UserID, entry.MediaID, entry.Progress, entry.Note, entry.At)
	if err != nil {
		return fmt.Errorf("insert progress history: %w", err)
	}
	return nil
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Add(ctx context.Context, entry models.ProgressHistory) error {
	return Record(ctx, r.DB, entry)
}

// List returns one entry's history, newest first.
func (r *Repo) List(ctx context.Context, userID string, mediaID int64, page listing.Page) ([]models.ProgressHistory, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM progress_history
		WHERE user_id = ? AND media_id = ?
	`, userID, mediaID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count progress history: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, media_id, progress, note, at
		FROM progress_history
		WHERE user_id = ? AND media_id = ?
		ORDER BY at DESC, id DESC
		LIMIT ? OFFSET ?
	`, userID, mediaID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list progress history: %w", err)
	}
	defer rows.Close()

	out := make([]models.ProgressHistory, 0, page.Size)
	for rows.Next() {
		var entry models.ProgressHistory
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.MediaID, &entry.Progress, &entry.Note, &entry.At); err != nil {
			return nil, 0, fmt.Errorf("scan progress history: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows progress history: %w", err)
	}

	return out, total, nil
}
