package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"medialib/internal/listing"
	"medialib/pkg/models"
	"medialib/pkg/search"
)

var ErrNotFound = errors.New("media not found")

const (
	tagExists = `SELECT 1 FROM media_tags mt JOIN tags t ON t.id = mt.tag_id ` +
		`WHERE mt.media_id = m.id AND LOWER(t.name) = ?`

	// rounded average of library scores, NULL when nobody rated it
	scoreExpr = `(SELECT ROUND(AVG(us.score)) FROM user_media us WHERE us.media_id = m.id AND us.score IS NOT NULL)`
	avgExpr   = `(SELECT AVG(us.score) FROM user_media us WHERE us.media_id = m.id AND us.score IS NOT NULL)`

	listColumns = `m.id, m.title, m.type, m.status, m.release_year, m.description, m.cover_url, ` +
		avgExpr + `, m.created_at, m.updated_at`
)

// Fields maps the search keys the catalog listing understands.
var Fields = listing.Fields{
	search.KeyTitle:  {Column: "m.title", Like: true},
	search.KeyType:   {Column: "m.type"},
	search.KeyStatus: {Column: "m.status"},
	search.KeyYear:   {Column: "m.release_year"},
	search.KeyTag:    {Exists: tagExists},
	search.KeyScore:  {Column: scoreExpr},
}

var Sort = listing.SortSpec{
	Columns: map[string]string{
		"title":        "m.title",
		"release_year": "m.release_year",
		"created_at":   "m.created_at",
	},
	Default:  "created_at",
	Tiebreak: "m.id",
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Input is the writable part of a media entry.
type Input struct {
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Status      string   `json:"status"`
	ReleaseYear *int     `json:"release_year"`
	Description string   `json:"description"`
	CoverURL    string   `json:"cover_url"`
	Tags        []string `json:"tags"`
}

type ListResult struct {
	Items   []models.Media
	Total   int
	Page    listing.Page
	Order   listing.Order
	Applied []search.Key
}

func (r *Repo) List(ctx context.Context, v url.Values) (*ListResult, error) {
	q := listing.New("media m")
	applied := listing.Apply(q, v, Fields)
	page := listing.ParsePage(v)
	order := Sort.Resolve(v.Get(search.ParamSort), v.Get(search.ParamOrder))

	countSQL, countArgs := q.CountSQL()
	var total int
	if err := r.DB.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count media: %w", err)
	}

	listSQL, listArgs := q.SelectSQL(listColumns, order, page)
	rows, err := r.DB.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	items, err := scanMediaRows(rows)
	if err != nil {
		return nil, err
	}

	if err := r.loadTags(ctx, items); err != nil {
		return nil, err
	}

	return &ListResult{Items: items, Total: total, Page: page, Order: order, Applied: applied}, nil
}

func scanMediaRows(rows *sql.Rows) ([]models.Media, error) {
	defer rows.Close()

	out := make([]models.Media, 0)
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMedia(s scanner) (*models.Media, error) {
	var (
		m     models.Media
		year  sql.NullInt64
		score sql.NullFloat64
	)
	if err := s.Scan(&m.ID, &m.Title, &m.Type, &m.Status, &year, &m.Description, &m.CoverURL,
		&score, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if year.Valid {
		y := int(year.Int64)
		m.ReleaseYear = &y
	}
	if score.Valid {
		s := score.Float64
		m.Score = &s
	}
	m.Tags = []string{}
	return &m, nil
}

// loadTags fills Tags for items with one query.
func (r *Repo) loadTags(ctx context.Context, items []models.Media) error {
	if len(items) == 0 {
		return nil
	}
	idx := make(map[int64]int, len(items))
	args := make([]any, len(items))
	for i, m := range items {
		idx[m.ID] = i
		args[i] = m.ID
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT mt.media_id, t.name
		FROM media_tags mt
		JOIN tags t ON t.id = mt.tag_id
		WHERE mt.media_id IN (`+strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")+`)
		ORDER BY t.name
	`, args...)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		if i, ok := idx[id]; ok {
			items[i].Tags = append(items[i].Tags, name)
		}
	}
	return rows.Err()
}

// GetByID returns nil, nil when the entry does not exist.
func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Media, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+listColumns+` FROM media m WHERE m.id = ?`, id)
	m, err := scanMedia(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get media: %w", err)
	}

	items := []models.Media{*m}
	if err := r.loadTags(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (r *Repo) Create(ctx context.Context, in Input) (*models.Media, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create media: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO media (title, type, status, release_year, description, cover_url)
		VALUES (?, ?, ?, ?, ?, ?)
	`, in.Title, in.Type, in.Status, in.ReleaseYear, in.Description, in.CoverURL)
	if err != nil {
		return nil, fmt.Errorf("insert media: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("media id: %w", err)
	}

	if err := setTags(ctx, tx, id, in.Tags); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create media: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *Repo) Update(ctx context.Context, id int64, in Input) (*models.Media, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update media: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE media
		SET title = ?, type = ?, status = ?, release_year = ?, description = ?, cover_url = ?,
			updated_at = ?
		WHERE id = ?
	`, in.Title, in.Type, in.Status, in.ReleaseYear, in.Description, in.CoverURL, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("update media: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	if in.Tags != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM media_tags WHERE media_id = ?`, id); err != nil {
			return nil, fmt.Errorf("clear tags: %w", err)
		}
		if err := setTags(ctx, tx, id, in.Tags); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update media: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func setTags(ctx context.Context, tx *sql.Tx, mediaID int64, tags []string) error {
	for _, name := range tags {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO media_tags (media_id, tag_id)
			SELECT ?, id FROM tags WHERE name = ?
		`, mediaID, name); err != nil {
			return fmt.Errorf("link tag: %w", err)
		}
	}
	return nil
}
