package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"medialib/internal/listing"
	"medialib/internal/progress"
	"medialib/pkg/models"
	"medialib/pkg/search"
)

var ErrMediaNotFound = errors.New("media not found")

const (
	tagExists = `SELECT 1 FROM media_tags mt JOIN tags t ON t.id = mt.tag_id ` +
		`WHERE mt.media_id = m.id AND LOWER(t.name) = ?`

	listColumns = `um.user_id, um.media_id, um.status, um.score, um.progress, um.notes, um.created_at, um.updated_at, ` +
		`m.id, m.title, m.type, m.status, m.release_year, m.description, m.cover_url, m.created_at, m.updated_at`

	fromEntries = "user_media um"
	joinMedia   = "JOIN media m ON m.id = um.media_id"
)

var Fields = listing.Fields{
	search.KeyTitle:      {Column: "m.title", Like: true},
	search.KeyType:       {Column: "m.type"},
	search.KeyStatus:     {Column: "m.status"},
	search.KeyYear:       {Column: "m.release_year"},
	search.KeyTag:        {Exists: tagExists},
	search.KeyUserStatus: {Column: "um.status", Normalize: filterStatus},
	search.KeyUserScore:  {Column: "um.score"},
}

var Sort = listing.SortSpec{
	Columns: map[string]string{
		"title":        "m.title",
		"release_year": "m.release_year",
		"updated_at":   "um.updated_at",
		"user_score":   "um.score",
	},
	Default:  "updated_at",
	Tiebreak: "m.id",
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Input is what a user may set on an entry. Status must already be normalized.
type Input struct {
	Status   string
	Score    *int
	Progress int
	Notes    string
}

type ListResult struct {
	Items   []models.LibraryEntry
	Total   int
	Page    listing.Page
	Order   listing.Order
	Applied []search.Key
}

// List returns the user's entries filtered by the search parameters in v.
func (r *Repo) List(ctx context.Context, userID string, v url.Values) (*ListResult, error) {
	q := listing.New(fromEntries, joinMedia).Where("um.user_id = ?", userID)
	applied := listing.Apply(q, v, Fields)
	page := listing.ParsePage(v)
	order := Sort.Resolve(v.Get(search.ParamSort), v.Get(search.ParamOrder))

	countSQL, countArgs := q.CountSQL()
	var total int
	if err := r.DB.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count library: %w", err)
	}

	listSQL, listArgs := q.SelectSQL(listColumns, order, page)
	rows, err := r.DB.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("list library: %w", err)
	}
	defer rows.Close()

	out := make([]models.LibraryEntry, 0, page.Size)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan library row: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}

	return &ListResult{Items: out, Total: total, Page: page, Order: order, Applied: applied}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.LibraryEntry, error) {
	var (
		e     models.LibraryEntry
		m     models.Media
		score sql.NullInt64
		year  sql.NullInt64
	)
	if err := s.Scan(&e.UserID, &e.MediaID, &e.Status, &score, &e.Progress, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
		&m.ID, &m.Title, &m.Type, &m.Status, &year, &m.Description, &m.CoverURL, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if score.Valid {
		v := int(score.Int64)
		e.Score = &v
	}
	if year.Valid {
		y := int(year.Int64)
		m.ReleaseYear = &y
	}
	m.Tags = []string{}
	e.Media = &m
	return &e, nil
}

// Get returns nil, nil when the media is not on the user's list.
func (r *Repo) Get(ctx context.Context, userID string, mediaID int64) (*models.LibraryEntry, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+listColumns+`
		FROM `+fromEntries+` `+joinMedia+`
		WHERE um.user_id = ? AND um.media_id = ?
	`, userID, mediaID)

	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get library entry: %w", err)
	}
	return e, nil
}

// Upsert adds or updates an entry. A history row is written whenever the
// progress value changes, including the first time the entry is saved.
func (r *Repo) Upsert(ctx context.Context, userID string, mediaID int64, in Input) (*models.LibraryEntry, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upsert library: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var found int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM media WHERE id = ?`, mediaID).Scan(&found); err != nil {
		return nil, fmt.Errorf("check media: %w", err)
	}
	if found == 0 {
		return nil, ErrMediaNotFound
	}

	var prev sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT progress FROM user_media WHERE user_id = ? AND media_id = ?`,
		userID, mediaID).Scan(&prev)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read library progress: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_media (user_id, media_id, status, score, progress, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, media_id) DO UPDATE SET
			status = excluded.status,
			score = excluded.score,
			progress = excluded.progress,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`, userID, mediaID, in.Status, in.Score, in.Progress, in.Notes, now, now); err != nil {
		return nil, fmt.Errorf("upsert library entry: %w", err)
	}

	if !prev.Valid || int(prev.Int64) != in.Progress {
		if err := progress.Record(ctx, tx, models.ProgressHistory{
			UserID:   userID,
			MediaID:  mediaID,
			Progress: in.Progress,
			At:       now,
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert library: %w", err)
	}
	return r.Get(ctx, userID, mediaID)
}

// Delete reports whether an entry was removed.
func (r *Repo) Delete(ctx context.Context, userID string, mediaID int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM user_media
		WHERE user_id = ? AND media_id = ?
	`, userID, mediaID)
	if err != nil {
		return false, fmt.Errorf("delete library entry: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
