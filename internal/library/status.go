package library

import "strings"

const (
	StatusPlanned   = "planned"
	StatusWatching  = "watching"
	StatusCompleted = "completed"
	StatusOnHold    = "on_hold"
	StatusDropped   = "dropped"
)

var Statuses = []string{StatusPlanned, StatusWatching, StatusCompleted, StatusOnHold, StatusDropped}

// NormalizeStatus maps a user-typed status onto its stored form, or "" when
// it is not one.
func NormalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "planned", "plan", "plan_to_watch", "plan to watch", "ptw":
		return StatusPlanned
	case "watching", "reading", "in_progress", "in progress":
		return StatusWatching
	case "completed", "complete", "done", "finished":
		return StatusCompleted
	case "on_hold", "on hold", "on-hold", "onhold", "paused":
		return StatusOnHold
	case "dropped", "drop":
		return StatusDropped
	default:
		return ""
	}
}

// filterStatus leaves unknown values alone so they simply match nothing.
func filterStatus(s string) string {
	if n := NormalizeStatus(s); n != "" {
		return n
	}
	return s
}
