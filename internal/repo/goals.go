package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corbin/stride/internal/apperr"
	"github.com/corbin/stride/internal/connectivity"
	"github.com/corbin/stride/internal/models"
	"github.com/corbin/stride/internal/remote"
	"github.com/corbin/stride/internal/store"
)

// GoalRepo is the dual-path repository for goals.
type GoalRepo struct {
	store  *store.Store
	remote *remote.Client
	oracle connectivity.Oracle
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewGoalRepo creates a goal repository.
func NewGoalRepo(st *store.Store, rc *remote.Client, oracle connectivity.Oracle, cache *Cache, logger *slog.Logger) *GoalRepo {
	return &GoalRepo{store: st, remote: rc, oracle: oracle, cache: cache, logger: logger, now: time.Now}
}

// offlineFallback reports whether err should be recovered with a local
// write: it must be a connectivity failure AND the oracle must confirm the
// remote is unreachable. A connectivity-shaped error while the oracle still
// sees the remote is treated as a real failure, not as being offline.
func offlineFallback(ctx context.Context, err error, oracle connectivity.Oracle) bool {
	return errors.Is(err, apperr.ErrConnectivity) && !oracle.Reachable(ctx)
}

// Create creates a goal remote-first. When the remote is unreachable the
// goal is persisted locally under a provisional identity and returned with
// offline = true; the caller gets a usable, if unconfirmed, record.
func (r *GoalRepo) Create(ctx context.Context, in models.GoalInput) (g models.Goal, offline bool, err error) {
	if err := in.Validate(); err != nil {
		return models.Goal{}, false, fmt.Errorf("repo: goal input: %w: %v", apperr.ErrValidation, err)
	}

	g, rerr := r.remote.CreateGoal(ctx, in)
	if rerr == nil {
		g.Synced = true
		if err := r.store.UpsertGoal(g); err != nil {
			return models.Goal{}, false, err
		}
		r.cache.putGoal(g)
		return g, false, nil
	}

	if !offlineFallback(ctx, rerr, r.oracle) {
		// The payload was rejected or the failure is not recoverable
		// locally; writing it anyway would enqueue known-bad data.
		return models.Goal{}, false, rerr
	}

	now := r.now().UTC()
	g = models.Goal{ID: models.NewProvisionalID(now), CreatedAt: now, UpdatedAt: now}
	in.Apply(&g)
	if err := r.store.UpsertGoal(g); err != nil {
		return models.Goal{}, false, err
	}
	r.cache.putGoal(g)
	r.logger.Info("repo: goal saved locally, pending sync", slog.String("id", g.ID.String()))
	return g, true, nil
}

// Update updates a goal remote-first. A provisional goal never reached the
// server, so it is updated locally and stays provisional.
func (r *GoalRepo) Update(ctx context.Context, id models.ID, in models.GoalInput) (g models.Goal, offline bool, err error) {
	if err := in.Validate(); err != nil {
		return models.Goal{}, false, fmt.Errorf("repo: goal input: %w: %v", apperr.ErrValidation, err)
	}

	current, err := r.localGoal(id)
	if err != nil {
		return models.Goal{}, false, err
	}

	if id.Provisional() {
		in.Apply(&current)
		current.UpdatedAt = r.now().UTC()
		current.Synced = false
		if err := r.store.UpsertGoal(current); err != nil {
			return models.Goal{}, false, err
		}
		r.cache.putGoal(current)
		return current, true, nil
	}

	g, rerr := r.remote.UpdateGoal(ctx, id, in)
	if rerr == nil {
		g.Synced = true
		if err := r.store.UpsertGoal(g); err != nil {
			return models.Goal{}, false, err
		}
		r.cache.putGoal(g)
		return g, false, nil
	}

	if !offlineFallback(ctx, rerr, r.oracle) {
		return models.Goal{}, false, rerr
	}

	in.Apply(&current)
	current.UpdatedAt = r.now().UTC()
	current.Synced = false
	if err := r.store.UpsertGoal(current); err != nil {
		return models.Goal{}, false, err
	}
	r.cache.putGoal(current)
	r.logger.Info("repo: goal updated locally, pending sync", slog.String("id", id.String()))
	return current, true, nil
}

// Remove deletes a goal and, through the store, all of its check-ins. A
// provisional goal is deleted locally without a remote call since the
// server never saw it.
func (r *GoalRepo) Remove(ctx context.Context, id models.ID) (offline bool, err error) {
	if !id.Provisional() {
		rerr := r.remote.DeleteGoal(ctx, id)
		switch {
		case rerr == nil:
		case offlineFallback(ctx, rerr, r.oracle):
			offline = true
			r.logger.Warn("repo: goal deleted locally while offline, remote copy remains",
				slog.String("id", id.String()))
		default:
			return false, rerr
		}
	}
	if err := r.store.DeleteGoal(id); err != nil {
		return false, err
	}
	r.cache.dropGoal(id)
	return offline, nil
}

// FetchAll returns all goals, remote-first. When the remote is unreachable
// the last-known local state is returned with stale = true. Fetched goals
// are written back as synced: a stable goal still carrying an unsynced
// offline edit loses that edit to the server copy here, so reconciliation
// must run before reads once the remote is back.
func (r *GoalRepo) FetchAll(ctx context.Context, f store.GoalFilter) (goals []models.Goal, stale bool, err error) {
	fetched, rerr := r.remote.Goals(ctx)
	if rerr == nil {
		for _, g := range fetched {
			g.Synced = true
			if err := r.store.UpsertGoal(g); err != nil {
				return nil, false, err
			}
			r.cache.putGoal(g)
		}
		goals, err := r.store.Goals(f)
		return goals, false, err
	}

	if !offlineFallback(ctx, rerr, r.oracle) {
		return nil, false, rerr
	}

	goals, err = r.store.Goals(f)
	if err != nil {
		return nil, false, err
	}
	return goals, true, nil
}

// FetchByID returns one goal, remote-first, falling back to the session
// cache and then the local store when offline. Provisional goals are served
// locally without a remote round trip.
func (r *GoalRepo) FetchByID(ctx context.Context, id models.ID) (g models.Goal, stale bool, err error) {
	if id.Provisional() {
		g, err := r.localGoal(id)
		return g, true, err
	}

	g, rerr := r.remote.GoalByID(ctx, id)
	if rerr == nil {
		g.Synced = true
		if err := r.store.UpsertGoal(g); err != nil {
			return models.Goal{}, false, err
		}
		r.cache.putGoal(g)
		return g, false, nil
	}

	if !offlineFallback(ctx, rerr, r.oracle) {
		return models.Goal{}, false, rerr
	}

	g, err = r.localGoal(id)
	if err != nil {
		return models.Goal{}, false, err
	}
	return g, true, nil
}

// localGoal reads a goal from the session cache, then the store.
func (r *GoalRepo) localGoal(id models.ID) (models.Goal, error) {
	if g, ok := r.cache.goal(id); ok {
		return g, nil
	}
	g, err := r.store.GoalByID(id)
	if err != nil {
		return models.Goal{}, err
	}
	r.cache.putGoal(g)
	return g, nil
}
