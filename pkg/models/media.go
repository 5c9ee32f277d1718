package models

import "time"

type Media struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	ReleaseYear *int      `json:"release_year,omitempty"`
	Description string    `json:"description,omitempty"`
	CoverURL    string    `json:"cover_url,omitempty"`
	Tags        []string  `json:"tags"`
	Score       *float64  `json:"score,omitempty"` // average of library scores
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Character struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Appearances int       `json:"appearances"`
	Roles       []Role    `json:"roles,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Role links a character to one media entry.
type Role struct {
	MediaID    int64  `json:"media_id"`
	MediaTitle string `json:"media_title"`
	Role       string `json:"role,omitempty"`
}
