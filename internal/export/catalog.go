package export

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"medialib/internal/media"
	"medialib/pkg/models"
)

// TagSeparator joins tags inside the single tags column.
const TagSeparator = "|"

var CatalogHeader = []string{"id", "title", "type", "status", "release_year", "tags", "description", "cover_url"}

// CatalogStore is what ImportCatalog writes through; *media.Repo satisfies it.
type CatalogStore interface {
	Create(ctx context.Context, in media.Input) (*models.Media, error)
	Update(ctx context.Context, id int64, in media.Input) (*models.Media, error)
}

type ImportStats struct {
	Created int
	Updated int
	Skipped int
}

// ImportCatalog reads CSV with a header row. Columns are matched by name and
// may appear in any order. Rows with an id update that entry, or create a new
// one when it no longer exists; rows without a title are skipped.
func ImportCatalog(ctx context.Context, store CatalogStore, r io.Reader) (ImportStats, error) {
	var stats ImportStats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		return stats, err
	}

	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("read line %d: %w", line, err)
		}

		in := media.Input{
			Title:       valueAt(header, row, "title"),
			Type:        strings.ToLower(valueAt(header, row, "type")),
			Status:      strings.ToLower(valueAt(header, row, "status")),
			Description: valueAt(header, row, "description"),
			CoverURL:    valueAt(header, row, "cover_url"),
			Tags:        splitTags(valueAt(header, row, "tags")),
		}
		if in.Title == "" {
			stats.Skipped++
			continue
		}
		if raw := valueAt(header, row, "release_year"); raw != "" {
			year, err := strconv.Atoi(raw)
			if err != nil {
				return stats, fmt.Errorf("line %d: parse release_year %q: %w", line, raw, err)
			}
			in.ReleaseYear = &year
		}

		if raw := valueAt(header, row, "id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return stats, fmt.Errorf("line %d: parse id %q: %w", line, raw, err)
			}
			_, err = store.Update(ctx, id, in)
			if err == nil {
				stats.Updated++
				continue
			}
			if !errors.Is(err, media.ErrNotFound) {
				return stats, fmt.Errorf("line %d: %w", line, err)
			}
		}

		if _, err := store.Create(ctx, in); err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		stats.Created++
	}
}

// WriteCatalog writes every media entry ordered by title and returns the
// number of rows written.
func WriteCatalog(ctx context.Context, db *sql.DB, w io.Writer) (int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, title, type, status, release_year, description, cover_url
		FROM media
		ORDER BY title COLLATE NOCASE, id
	`)
	if err != nil {
		return 0, fmt.Errorf("query media: %w", err)
	}

	type entry struct {
		id     int64
		record []string
	}
	var items []entry
	for rows.Next() {
		var (
			id                              int64
			title, typ, status, desc, cover string
			year                            sql.NullInt64
		)
		if err := rows.Scan(&id, &title, &typ, &status, &year, &desc, &cover); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan media: %w", err)
		}
		yearStr := ""
		if year.Valid {
			yearStr = strconv.FormatInt(year.Int64, 10)
		}
		items = append(items, entry{id, []string{strconv.FormatInt(id, 10), title, typ, status, yearStr, "", desc, cover}})
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return 0, fmt.Errorf("rows err: %w", err)
	}

	tags, err := tagsByMedia(ctx, db)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CatalogHeader); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	for _, it := range items {
		it.record[5] = strings.Join(tags[it.id], TagSeparator)
		if err := cw.Write(it.record); err != nil {
			return 0, fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}
	return len(items), nil
}

func tagsByMedia(ctx context.Context, db *sql.DB) (map[int64][]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT mt.media_id, t.name
		FROM media_tags mt
		JOIN tags t ON t.id = mt.tag_id
		ORDER BY mt.media_id, t.name COLLATE NOCASE
	`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]string)
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out[id] = append(out[id], name)
	}
	return out, rows.Err()
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func splitTags(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, TagSeparator) {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
