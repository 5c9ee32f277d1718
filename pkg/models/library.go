package models

import "time"

// LibraryEntry is one media entry on a user's personal list.
type LibraryEntry struct {
	UserID    string    `json:"user_id"`
	MediaID   int64     `json:"media_id"`
	Status    string    `json:"status"`
	Score     *int      `json:"score,omitempty"`
	Progress  int       `json:"progress"`
	Notes     string    `json:"notes,omitempty"`
	Media     *Media    `json:"media,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
