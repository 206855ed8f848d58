// Package stats derives completion statistics from a goal's check-ins.
//
// Compute is a pure function of its input sequence: fed the same check-ins,
// it returns the same result whether the data came from the remote service
// or from the local store. Any divergence from server-computed stats for
// identical data is a defect, not a fallback artifact.
package stats

import (
	"sort"

	"github.com/corbin/stride/internal/models"
)

// Stats mirrors the payload of the remote stats endpoint.
type Stats struct {
	Total             int     `json:"total_checkins"`
	Completed         int     `json:"completed_checkins"`
	CompletionRate    float64 `json:"completion_rate"`
	CurrentStreak     int     `json:"current_streak"`
	LongestStreak     int     `json:"longest_streak"`
	CalculatedLocally bool    `json:"calculated_locally,omitempty"`
}

// Compute derives stats from the given check-ins. The input order does not
// matter; check-ins are sorted by calendar date internally.
func Compute(checkins []models.CheckIn) Stats {
	s := Stats{Total: len(checkins)}
	if s.Total == 0 {
		return s
	}

	for _, c := range checkins {
		if c.Completed {
			s.Completed++
		}
	}
	s.CompletionRate = float64(s.Completed) / float64(s.Total) * 100

	asc := sortedByDate(checkins)

	// Longest streak: one ascending pass, run counter resets on any miss.
	run := 0
	for _, c := range asc {
		if c.Completed {
			run++
			if run > s.LongestStreak {
				s.LongestStreak = run
			}
		} else {
			run = 0
		}
	}

	// Current streak: count completed entries backward from the most
	// recent, stopping at the first miss.
	for i := len(asc) - 1; i >= 0; i-- {
		if !asc[i].Completed {
			break
		}
		s.CurrentStreak++
	}

	return s
}

// sortedByDate returns a copy sorted by date ascending. Dates use the
// models.DateLayout form, so lexicographic order is chronological order.
func sortedByDate(checkins []models.CheckIn) []models.CheckIn {
	out := make([]models.CheckIn, len(checkins))
	copy(out, checkins)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}
