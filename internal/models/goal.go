// Package models defines the domain types for stride.
package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Goal frequencies.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// DateLayout is the calendar-date format used for check-in dates and goal
// target dates, matching the persisted schema and the wire format.
const DateLayout = "2006-01-02"

// Goal is a tracked goal. Synced reports whether the local copy matches the
// last known server-confirmed state.
type Goal struct {
	ID          ID        `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Frequency   string    `json:"frequency"`
	TargetDate  string    `json:"target_date,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Synced      bool      `json:"synced"`
}

// GoalInput is the caller-supplied portion of a goal for create and update.
type GoalInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Frequency   string `json:"frequency"`
	TargetDate  string `json:"target_date,omitempty"`
}

// Validate checks the goal input against the domain rules.
func (in GoalInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Frequency, validation.Required,
			validation.In(FrequencyDaily, FrequencyWeekly, FrequencyMonthly)),
		validation.Field(&in.TargetDate, validation.Date(DateLayout)),
	)
}

// Apply copies the input onto g, leaving identity and timestamps alone.
func (in GoalInput) Apply(g *Goal) {
	g.Title = in.Title
	g.Description = in.Description
	g.Category = in.Category
	g.Frequency = in.Frequency
	g.TargetDate = in.TargetDate
}
