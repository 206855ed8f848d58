package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/corbin/stride/internal/apperr"
	"github.com/corbin/stride/internal/models"
)

// UpsertCheckin inserts or replaces a check-in. Inserting a second check-in
// for the same (goal, date) pair under a different id returns
// apperr.ErrConflict. Date and goal_id are immutable: on id conflict only
// the mutable fields are updated.
func (s *Store) UpsertCheckin(c models.CheckIn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		INSERT INTO checkins (id, goal_id, completed, notes, date, created_at, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			completed = excluded.completed,
			notes     = excluded.notes,
			synced    = excluded.synced
	`, c.ID.String(), c.GoalID.String(), c.Completed, c.Notes, c.Date, c.CreatedAt, c.Synced)
	if isUniqueViolation(err) {
		return fmt.Errorf("store: check-in for goal %s on %s: %w", c.GoalID, c.Date, apperr.ErrConflict)
	}
	return wrap("upsert checkin", err)
}

// CheckinByID returns the check-in with the given identity.
func (s *Store) CheckinByID(id models.ID) (models.CheckIn, error) {
	row := s.conn.QueryRow(`
		SELECT id, goal_id, completed, notes, date, created_at, synced
		FROM checkins WHERE id = ?`, id.String())
	c, err := scanCheckin(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CheckIn{}, fmt.Errorf("store: checkin %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return models.CheckIn{}, wrap("checkin by id", err)
	}
	return c, nil
}

// Checkins returns all check-ins for a goal, newest date first.
func (s *Store) Checkins(goalID models.ID) ([]models.CheckIn, error) {
	rows, err := s.conn.Query(`
		SELECT id, goal_id, completed, notes, date, created_at, synced
		FROM checkins WHERE goal_id = ? ORDER BY date DESC`, goalID.String())
	if err != nil {
		return nil, wrap("query checkins", err)
	}
	defer rows.Close()

	var out []models.CheckIn
	for rows.Next() {
		c, err := scanCheckin(rows)
		if err != nil {
			return nil, wrap("scan checkin", err)
		}
		out = append(out, c)
	}
	return out, wrap("iterate checkins", rows.Err())
}

// CheckinForDate returns the check-in for a goal on a calendar date, or
// apperr.ErrNotFound.
func (s *Store) CheckinForDate(goalID models.ID, date string) (models.CheckIn, error) {
	row := s.conn.QueryRow(`
		SELECT id, goal_id, completed, notes, date, created_at, synced
		FROM checkins WHERE goal_id = ? AND date = ?`, goalID.String(), date)
	c, err := scanCheckin(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CheckIn{}, fmt.Errorf("store: checkin for %s on %s: %w", goalID, date, apperr.ErrNotFound)
	}
	if err != nil {
		return models.CheckIn{}, wrap("checkin for date", err)
	}
	return c, nil
}

// UnsyncedCheckins returns a snapshot of all check-ins with synced = 0.
func (s *Store) UnsyncedCheckins() ([]models.CheckIn, error) {
	rows, err := s.conn.Query(`
		SELECT id, goal_id, completed, notes, date, created_at, synced
		FROM checkins WHERE synced = 0 ORDER BY created_at`)
	if err != nil {
		return nil, wrap("query unsynced checkins", err)
	}
	defer rows.Close()

	var out []models.CheckIn
	for rows.Next() {
		c, err := scanCheckin(rows)
		if err != nil {
			return nil, wrap("scan unsynced checkin", err)
		}
		out = append(out, c)
	}
	return out, wrap("iterate unsynced checkins", rows.Err())
}

// MarkCheckinSynced flips the synced flag on a check-in.
func (s *Store) MarkCheckinSynced(id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.Exec(`UPDATE checkins SET synced = 1 WHERE id = ?`, id.String())
	return wrap("mark checkin synced", err)
}

// DeleteCheckin removes a check-in.
func (s *Store) DeleteCheckin(id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.Exec(`DELETE FROM checkins WHERE id = ?`, id.String())
	return wrap("delete checkin", err)
}

// RewriteCheckinID promotes a check-in's identity to its server-assigned id
// and marks it synced.
func (s *Store) RewriteCheckinID(oldID, newID models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.conn.Exec(`UPDATE checkins SET id = ?, synced = 1 WHERE id = ?`,
		newID.String(), oldID.String())
	if err != nil {
		return wrap("rewrite checkin id", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: rewrite checkin %s: %w", oldID, apperr.ErrNotFound)
	}
	return nil
}

func scanCheckin(sc scanner) (models.CheckIn, error) {
	var c models.CheckIn
	var rawID, rawGoalID string
	err := sc.Scan(&rawID, &rawGoalID, &c.Completed, &c.Notes, &c.Date, &c.CreatedAt, &c.Synced)
	if err != nil {
		return models.CheckIn{}, err
	}
	c.ID = models.ParseID(rawID)
	c.GoalID = models.ParseID(rawGoalID)
	return c, nil
}
