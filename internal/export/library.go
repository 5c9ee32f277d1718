package export

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

var LibraryHeader = []string{"user_id", "username", "media_id", "title", "status", "score", "progress", "notes", "updated_at"}

// WriteLibrary writes library entries for userID, or for every user when
// userID is empty, and returns the number of rows written.
func WriteLibrary(ctx context.Context, db *sql.DB, userID string, w io.Writer) (int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT um.user_id, u.username, um.media_id, m.title, um.status, um.score,
			um.progress, um.notes, um.updated_at
		FROM user_media um
		JOIN users u ON u.id = um.user_id
		JOIN media m ON m.id = um.media_id
		WHERE ? = '' OR um.user_id = ?
		ORDER BY u.username, m.title COLLATE NOCASE, um.media_id
	`, userID, userID)
	if err != nil {
		return 0, fmt.Errorf("query library: %w", err)
	}
	defer rows.Close()

	cw := csv.NewWriter(w)
	if err := cw.Write(LibraryHeader); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	n := 0
	for rows.Next() {
		var (
			uid, username, title, status, notes string
			mediaID                             int64
			score                               sql.NullInt64
			progress                            int
			updatedAt                           time.Time
		)
		if err := rows.Scan(&uid, &username, &mediaID, &title, &status, &score, &progress, &notes, &updatedAt); err != nil {
			return n, fmt.Errorf("scan entry: %w", err)
		}
		scoreStr := ""
		if score.Valid {
			scoreStr = strconv.FormatInt(score.Int64, 10)
		}
		if err := cw.Write([]string{
			uid, username, strconv.FormatInt(mediaID, 10), title, status, scoreStr,
			strconv.Itoa(progress), notes, updatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return n, fmt.Errorf("write row: %w", err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("rows err: %w", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, fmt.Errorf("flush csv: %w", err)
	}
	return n, nil
}
