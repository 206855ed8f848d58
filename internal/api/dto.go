package api

import (
	"github.com/corbin/stride/internal/models"
	"github.com/corbin/stride/internal/stats"
	"github.com/corbin/stride/internal/syncer"
)

// GoalResponse wraps a single goal. Offline marks a record that only exists
// locally so far (not yet confirmed by the server), so clients can render a
// "not yet synced" indicator.
type GoalResponse struct {
	Goal    models.Goal `json:"goal"`
	Offline bool        `json:"offline,omitempty"`
}

// GoalListResponse wraps a goal listing. Stale marks data served from the
// local store because the remote was unreachable.
type GoalListResponse struct {
	Goals []models.Goal `json:"goals"`
	Stale bool          `json:"stale,omitempty"`
}

// CheckinResponse wraps a single check-in.
type CheckinResponse struct {
	Checkin models.CheckIn `json:"checkin"`
	Offline bool           `json:"offline,omitempty"`
}

// CheckinListResponse wraps a check-in listing.
type CheckinListResponse struct {
	Checkins []models.CheckIn `json:"checkins"`
	Stale    bool             `json:"stale,omitempty"`
}

// StatsResponse wraps goal statistics. Offline means the figures were
// recomputed locally rather than reported by the server.
type StatsResponse struct {
	Stats   stats.Stats `json:"stats"`
	Offline bool        `json:"offline,omitempty"`
}

// SyncResponse wraps the result of a manual reconciliation pass.
type SyncResponse struct {
	Report  syncer.Report `json:"report"`
	Message string        `json:"message,omitempty"`
}
