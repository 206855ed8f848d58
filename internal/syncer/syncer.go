// Package syncer implements the reconciliation engine: it drains records
// with synced = 0 from the local store through the remote gateway, promotes
// provisional identities to server-assigned ones, and marks records synced.
//
// Goals are fully processed before any check-in, because check-ins reference
// goals by id and cannot land remotely under a provisional parent. A single
// record's failure never aborts the pass; only losing connectivity stops
// further remote calls, and the run stays resumable from wherever it
// stopped.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/corbin/stride/internal/apperr"
	"github.com/corbin/stride/internal/connectivity"
	"github.com/corbin/stride/internal/models"
	"github.com/corbin/stride/internal/remote"
	"github.com/corbin/stride/internal/repo"
	"github.com/corbin/stride/internal/secrets"
	"github.com/corbin/stride/internal/store"
)

// Counts aggregates per-entity outcomes of one pass.
type Counts struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
	Deferred int `json:"deferred,omitempty"`
}

// RecordError is one record's failure within a pass.
type RecordError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Report is the aggregate result of one reconciliation pass.
type Report struct {
	Goals    Counts        `json:"goals"`
	Checkins Counts        `json:"checkins"`
	Errors   []RecordError `json:"errors,omitempty"`
}

// Empty reports whether the pass found no work at all, distinguishing
// "nothing to sync" from "synced nothing because everything failed".
func (r Report) Empty() bool {
	g, c := r.Goals, r.Checkins
	return g.Created+g.Updated+g.Failed == 0 &&
		c.Created+c.Updated+c.Failed+c.Deferred == 0
}

// Engine replays unsynced local records against the remote service.
type Engine struct {
	store   *store.Store
	remote  *remote.Client
	oracle  connectivity.Oracle
	secrets secrets.Store
	cache   *repo.Cache
	logger  *slog.Logger

	mu sync.Mutex // one pass at a time
}

// New creates a reconciliation engine. cache may be nil.
func New(st *store.Store, rc *remote.Client, oracle connectivity.Oracle, sec secrets.Store, cache *repo.Cache, logger *slog.Logger) *Engine {
	return &Engine{store: st, remote: rc, oracle: oracle, secrets: sec, cache: cache, logger: logger}
}

// Run executes one reconciliation pass over a snapshot of the currently
// unsynced records. Records that become unsynced during the pass wait for
// the next trigger. It returns apperr.ErrNotReady when the preconditions do
// not hold; per-record failures land in the report, not in the error.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rep Report

	if !e.oracle.Reachable(ctx) {
		return rep, fmt.Errorf("syncer: remote unreachable: %w", apperr.ErrNotReady)
	}
	token, err := e.secrets.Get(secrets.TokenKey)
	if err != nil {
		return rep, fmt.Errorf("syncer: read credential: %w", err)
	}
	if token == "" {
		return rep, fmt.Errorf("syncer: no credential: %w", apperr.ErrNotReady)
	}

	connectivityLost := e.syncGoals(ctx, &rep)
	if !connectivityLost {
		e.syncCheckins(ctx, &rep)
	}

	if e.cache != nil {
		// Identity rewrites invalidate cached provisional ids.
		e.cache.Reset()
	}

	e.logger.Info("syncer: pass complete",
		slog.Int("goals_created", rep.Goals.Created),
		slog.Int("goals_updated", rep.Goals.Updated),
		slog.Int("checkins_created", rep.Checkins.Created),
		slog.Int("checkins_updated", rep.Checkins.Updated),
		slog.Int("checkins_deferred", rep.Checkins.Deferred),
		slog.Int("failed", rep.Goals.Failed+rep.Checkins.Failed))
	return rep, nil
}

// syncGoals replays unsynced goals one at a time. Returns true when
// connectivity was lost mid-batch.
func (e *Engine) syncGoals(ctx context.Context, rep *Report) bool {
	goals, err := e.store.UnsyncedGoals()
	if err != nil {
		e.logger.Error("syncer: scan goals failed", slog.String("error", err.Error()))
		rep.Errors = append(rep.Errors, RecordError{ID: "goals", Error: err.Error()})
		return false
	}

	for _, g := range goals {
		if err := e.syncGoal(ctx, g, rep); err != nil {
			rep.Goals.Failed++
			rep.Errors = append(rep.Errors, RecordError{ID: g.ID.String(), Error: err.Error()})
			if errors.Is(err, apperr.ErrConnectivity) {
				e.logger.Warn("syncer: connectivity lost mid-batch, stopping")
				return true
			}
			e.logger.Warn("syncer: goal sync failed",
				slog.String("id", g.ID.String()), slog.String("error", err.Error()))
		}
	}
	return false
}

func (e *Engine) syncGoal(ctx context.Context, g models.Goal, rep *Report) error {
	if g.ID.Provisional() {
		created, err := e.remote.CreateGoal(ctx, goalInput(g))
		if err != nil {
			return err
		}
		if err := e.store.RewriteGoalID(g.ID, created.ID); err != nil {
			return err
		}
		rep.Goals.Created++
		e.logger.Debug("syncer: goal promoted",
			slog.String("from", g.ID.String()), slog.String("to", created.ID.String()))
		return nil
	}

	if _, err := e.remote.UpdateGoal(ctx, g.ID, goalInput(g)); err != nil {
		return err
	}
	if err := e.store.MarkGoalSynced(g.ID); err != nil {
		return err
	}
	rep.Goals.Updated++
	return nil
}

// syncCheckins replays unsynced check-ins, skipping any whose parent goal
// is still provisional; those wait for the next pass.
func (e *Engine) syncCheckins(ctx context.Context, rep *Report) {
	checkins, err := e.store.UnsyncedCheckins()
	if err != nil {
		e.logger.Error("syncer: scan checkins failed", slog.String("error", err.Error()))
		rep.Errors = append(rep.Errors, RecordError{ID: "checkins", Error: err.Error()})
		return
	}

	for _, ci := range checkins {
		if ci.GoalID.Provisional() {
			rep.Checkins.Deferred++
			e.logger.Debug("syncer: checkin deferred, parent goal not yet synced",
				slog.String("id", ci.ID.String()))
			continue
		}
		if err := e.syncCheckin(ctx, ci, rep); err != nil {
			rep.Checkins.Failed++
			rep.Errors = append(rep.Errors, RecordError{ID: ci.ID.String(), Error: err.Error()})
			if errors.Is(err, apperr.ErrConnectivity) {
				e.logger.Warn("syncer: connectivity lost mid-batch, stopping")
				return
			}
			e.logger.Warn("syncer: checkin sync failed",
				slog.String("id", ci.ID.String()), slog.String("error", err.Error()))
		}
	}
}

func (e *Engine) syncCheckin(ctx context.Context, ci models.CheckIn, rep *Report) error {
	if ci.ID.Provisional() {
		created, err := e.remote.CreateCheckin(ctx, models.CheckInInput{
			GoalID:    ci.GoalID.String(),
			Completed: ci.Completed,
			Notes:     ci.Notes,
			Date:      ci.Date,
		})
		if err != nil {
			return err
		}
		if err := e.store.RewriteCheckinID(ci.ID, created.ID); err != nil {
			return err
		}
		rep.Checkins.Created++
		return nil
	}

	if _, err := e.remote.UpdateCheckin(ctx, ci.ID, models.CheckInUpdate{
		Completed: &ci.Completed,
		Notes:     &ci.Notes,
	}); err != nil {
		return err
	}
	if err := e.store.MarkCheckinSynced(ci.ID); err != nil {
		return err
	}
	rep.Checkins.Updated++
	return nil
}

func goalInput(g models.Goal) models.GoalInput {
	return models.GoalInput{
		Title:       g.Title,
		Description: g.Description,
		Category:    g.Category,
		Frequency:   g.Frequency,
		TargetDate:  g.TargetDate,
	}
}
