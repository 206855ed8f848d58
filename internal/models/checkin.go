package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// NotesMaxLen bounds the free-text notes on a check-in.
const NotesMaxLen = 1000

// CheckIn records one daily outcome against a goal. At most one check-in
// exists per (goal, date) pair. Date and GoalID are immutable after
// creation; only Completed and Notes may change.
type CheckIn struct {
	ID        ID        `json:"id"`
	GoalID    ID        `json:"goal_id"`
	Completed bool      `json:"completed"`
	Notes     string    `json:"notes,omitempty"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"created_at"`
	Synced    bool      `json:"synced"`
}

// CheckInInput is the caller-supplied portion of a new check-in.
type CheckInInput struct {
	GoalID    string `json:"goal_id"`
	Completed bool   `json:"completed"`
	Notes     string `json:"notes,omitempty"`
	Date      string `json:"date"`
}

// Validate checks the check-in input against the domain rules.
func (in CheckInInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.GoalID, validation.Required),
		validation.Field(&in.Date, validation.Required, validation.Date(DateLayout)),
		validation.Field(&in.Notes, validation.Length(0, NotesMaxLen)),
	)
}

// CheckInUpdate carries the mutable fields of a check-in. Nil fields are
// left unchanged.
type CheckInUpdate struct {
	Completed *bool   `json:"completed,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// Validate checks the update against the domain rules.
func (u CheckInUpdate) Validate() error {
	if u.Notes == nil {
		return nil
	}
	return validation.Errors{
		"notes": validation.Validate(*u.Notes, validation.Length(0, NotesMaxLen)),
	}.Filter()
}
