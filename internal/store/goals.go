package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/corbin/stride/internal/apperr"
	"github.com/corbin/stride/internal/models"
)

// GoalFilter narrows Goals queries. Zero-value fields are ignored.
type GoalFilter struct {
	Category  string
	Frequency string
}

// UpsertGoal inserts or replaces a goal. The write is durable before the
// call returns.
func (s *Store) UpsertGoal(g models.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		INSERT INTO goals (id, title, description, category, frequency, target_date, created_at, updated_at, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title       = excluded.title,
			description = excluded.description,
			category    = excluded.category,
			frequency   = excluded.frequency,
			target_date = excluded.target_date,
			updated_at  = excluded.updated_at,
			synced      = excluded.synced
	`, g.ID.String(), g.Title, g.Description, g.Category, g.Frequency, g.TargetDate,
		g.CreatedAt, g.UpdatedAt, g.Synced)
	return wrap("upsert goal", err)
}

// GoalByID returns the goal with the given identity.
func (s *Store) GoalByID(id models.ID) (models.Goal, error) {
	row := s.conn.QueryRow(`
		SELECT id, title, description, category, frequency, target_date, created_at, updated_at, synced
		FROM goals WHERE id = ?`, id.String())
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Goal{}, fmt.Errorf("store: goal %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Goal{}, wrap("goal by id", err)
	}
	return g, nil
}

// Goals returns all goals matching the filter, newest first.
func (s *Store) Goals(f GoalFilter) ([]models.Goal, error) {
	q := `
		SELECT id, title, description, category, frequency, target_date, created_at, updated_at, synced
		FROM goals WHERE 1=1`
	var args []any
	if f.Category != "" {
		q += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.Frequency != "" {
		q += ` AND frequency = ?`
		args = append(args, f.Frequency)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.conn.Query(q, args...)
	if err != nil {
		return nil, wrap("query goals", err)
	}
	defer rows.Close()

	var out []models.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, wrap("scan goal", err)
		}
		out = append(out, g)
	}
	return out, wrap("iterate goals", rows.Err())
}

// UnsyncedGoals returns a snapshot of all goals with synced = 0. Writes made
// after the call are not reflected in the returned slice.
func (s *Store) UnsyncedGoals() ([]models.Goal, error) {
	rows, err := s.conn.Query(`
		SELECT id, title, description, category, frequency, target_date, created_at, updated_at, synced
		FROM goals WHERE synced = 0 ORDER BY created_at`)
	if err != nil {
		return nil, wrap("query unsynced goals", err)
	}
	defer rows.Close()

	var out []models.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, wrap("scan unsynced goal", err)
		}
		out = append(out, g)
	}
	return out, wrap("iterate unsynced goals", rows.Err())
}

// MarkGoalSynced flips the synced flag on a goal.
func (s *Store) MarkGoalSynced(id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.Exec(`UPDATE goals SET synced = 1 WHERE id = ?`, id.String())
	return wrap("mark goal synced", err)
}

// DeleteGoal removes a goal and all of its check-ins in one transaction.
func (s *Store) DeleteGoal(id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return wrap("begin delete goal", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM checkins WHERE goal_id = ?`, id.String()); err != nil {
		return wrap("delete goal checkins", err)
	}
	if _, err := tx.Exec(`DELETE FROM goals WHERE id = ?`, id.String()); err != nil {
		return wrap("delete goal", err)
	}
	return wrap("commit delete goal", tx.Commit())
}

// RewriteGoalID promotes a goal's identity, updating the goal row and every
// dependent check-in's goal_id in one transaction. Readers never observe a
// half-rewritten state. The promoted goal is marked synced.
func (s *Store) RewriteGoalID(oldID, newID models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return wrap("begin rewrite goal id", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// The goal row and its children change ids inside the same tx, so FK
	// checks must wait for commit.
	if _, err := tx.Exec(`PRAGMA defer_foreign_keys = ON`); err != nil {
		return wrap("defer foreign keys", err)
	}
	res, err := tx.Exec(`UPDATE goals SET id = ?, synced = 1 WHERE id = ?`,
		newID.String(), oldID.String())
	if err != nil {
		return wrap("rewrite goal id", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: rewrite goal %s: %w", oldID, apperr.ErrNotFound)
	}
	if _, err := tx.Exec(`UPDATE checkins SET goal_id = ? WHERE goal_id = ?`,
		newID.String(), oldID.String()); err != nil {
		return wrap("rewrite checkin goal ids", err)
	}
	return wrap("commit rewrite goal id", tx.Commit())
}

// scanner abstracts sql.Row and sql.Rows for the scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanGoal(sc scanner) (models.Goal, error) {
	var g models.Goal
	var rawID string
	err := sc.Scan(&rawID, &g.Title, &g.Description, &g.Category, &g.Frequency,
		&g.TargetDate, &g.CreatedAt, &g.UpdatedAt, &g.Synced)
	if err != nil {
		return models.Goal{}, err
	}
	g.ID = models.ParseID(rawID)
	return g, nil
}
