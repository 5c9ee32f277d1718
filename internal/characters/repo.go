package characters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	"medialib/internal/listing"
	"medialib/pkg/models"
	"medialib/pkg/search"
)

var ErrNotFound = errors.New("not found")

const (
	appearancesExpr = `(SELECT COUNT(*) FROM media_characters ma WHERE ma.character_id = c.id)`

	mediaExists = `SELECT 1 FROM media_characters mc JOIN media mm ON mm.id = mc.media_id ` +
		`WHERE mc.character_id = c.id AND LOWER(mm.title) LIKE ? ESCAPE '\'`

	listColumns = `c.id, c.name, c.description, c.image_url, ` + appearancesExpr + `, c.created_at`
)

var Fields = listing.Fields{
	search.KeyName:        {Column: "c.name", Like: true},
	search.KeyMedia:       {Exists: mediaExists, Like: true},
	search.KeyAppearances: {Column: appearancesExpr},
}

var Sort = listing.SortSpec{
	Columns: map[string]string{
		"name":        "c.name",
		"created_at":  "c.created_at",
		"appearances": appearancesExpr,
	},
	Default:  "created_at",
	Tiebreak: "c.id",
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

type Input struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

type ListResult struct {
	Items   []models.Character
	Total   int
	Page    listing.Page
	Order   listing.Order
	Applied []search.Key
}

func (r *Repo) List(ctx context.Context, v url.Values) (*ListResult, error) {
	q := listing.New("characters c")
	applied := listing.Apply(q, v, Fields)
	page := listing.ParsePage(v)
	order := Sort.Resolve(v.Get(search.ParamSort), v.Get(search.ParamOrder))

	countSQL, countArgs := q.CountSQL()
	var total int
	if err := r.DB.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count characters: %w", err)
	}

	listSQL, listArgs := q.SelectSQL(listColumns, order, page)
	rows, err := r.DB.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	out := make([]models.Character, 0, page.Size)
	for rows.Next() {
		var ch models.Character
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Description, &ch.ImageURL, &ch.Appearances, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}

	return &ListResult{Items: out, Total: total, Page: page, Order: order, Applied: applied}, nil
}

// GetByID returns the character with its roles, or nil, nil when missing.
func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Character, error) {
	var ch models.Character
	err := r.DB.QueryRowContext(ctx, `SELECT `+listColumns+` FROM characters c WHERE c.id = ?`, id).
		Scan(&ch.ID, &ch.Name, &ch.Description, &ch.ImageURL, &ch.Appearances, &ch.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get character: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT m.id, m.title, mc.role
		FROM media_characters mc
		JOIN media m ON m.id = mc.media_id
		WHERE mc.character_id = ?
		ORDER BY m.title, m.id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.MediaID, &role.MediaTitle, &role.Role); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		ch.Roles = append(ch.Roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return &ch, nil
}

func (r *Repo) Create(ctx context.Context, in Input) (*models.Character, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO characters (name, description, image_url)
		VALUES (?, ?, ?)
	`, in.Name, in.Description, in.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("insert character: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("character id: %w", err)
	}
	return r.GetByID(ctx, id)
}

// AddRole links a character to a media entry, replacing an existing role.
func (r *Repo) AddRole(ctx context.Context, mediaID, characterID int64, role string) error {
	var n int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM media WHERE id = ?) + (SELECT COUNT(*) FROM characters WHERE id = ?)
	`, mediaID, characterID).Scan(&n); err != nil {
		return fmt.Errorf("check role refs: %w", err)
	}
	if n != 2 {
		return ErrNotFound
	}

	if _, err := r.DB.ExecContext(ctx, `
		INSERT INTO media_characters (media_id, character_id, role)
		VALUES (?, ?, ?)
		ON CONFLICT(media_id, character_id) DO UPDATE SET role = excluded.role
	`, mediaID, characterID, role); err != nil {
		return fmt.Errorf("add role: %w", err)
	}
	return nil
}
