package models

import "time"

type ProgressHistory struct {
	ID       int64     `json:"id"`
	UserID   string    `json:"user_id"`
	MediaID  int64     `json:"media_id"`
	Progress int       `json:"progress"`
	Note     string    `json:"note,omitempty"`
	At       time.Time `json:"at"`
}
