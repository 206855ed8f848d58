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
	"github.com/corbin/stride/internal/stats"
	"github.com/corbin/stride/internal/store"
)

// CheckinRepo is the dual-path repository for check-ins.
type CheckinRepo struct {
	store  *store.Store
	remote *remote.Client
	oracle connectivity.Oracle
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewCheckinRepo creates a check-in repository.
func NewCheckinRepo(st *store.Store, rc *remote.Client, oracle connectivity.Oracle, cache *Cache, logger *slog.Logger) *CheckinRepo {
	return &CheckinRepo{store: st, remote: rc, oracle: oracle, cache: cache, logger: logger, now: time.Now}
}

// Create records a check-in remote-first. At most one check-in may exist
// per (goal, date): a duplicate is apperr.ErrConflict, a domain rejection
// rather than a network condition, on both the online and offline paths.
func (r *CheckinRepo) Create(ctx context.Context, in models.CheckInInput) (ci models.CheckIn, offline bool, err error) {
	if err := in.Validate(); err != nil {
		return models.CheckIn{}, false, fmt.Errorf("repo: checkin input: %w: %v", apperr.ErrValidation, err)
	}
	goalID := models.ParseID(in.GoalID)

	// The duplicate check runs against the local store before any remote
	// call: successful creates always persist locally, so the local store
	// knows every date this device has checked in on.
	if _, err := r.store.CheckinForDate(goalID, in.Date); err == nil {
		return models.CheckIn{}, false, fmt.Errorf("repo: check-in for goal %s on %s already exists: %w",
			goalID, in.Date, apperr.ErrConflict)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return models.CheckIn{}, false, err
	}

	ci, rerr := r.remote.CreateCheckin(ctx, in)
	if rerr == nil {
		ci.Synced = true
		if err := r.store.UpsertCheckin(ci); err != nil {
			return models.CheckIn{}, false, err
		}
		r.cache.putCheckin(ci)
		return ci, false, nil
	}

	if !offlineFallback(ctx, rerr, r.oracle) {
		return models.CheckIn{}, false, rerr
	}

	now := r.now().UTC()
	ci = models.CheckIn{
		ID:        models.NewProvisionalID(now),
		GoalID:    goalID,
		Completed: in.Completed,
		Notes:     in.Notes,
		Date:      in.Date,
		CreatedAt: now,
	}
	if err := r.store.UpsertCheckin(ci); err != nil {
		return models.CheckIn{}, false, err
	}
	r.cache.putCheckin(ci)
	r.logger.Info("repo: check-in saved locally, pending sync", slog.String("id", ci.ID.String()))
	return ci, true, nil
}

// Update changes a check-in's completed flag and notes. Date and goal are
// immutable. Provisional check-ins are updated locally and stay provisional.
func (r *CheckinRepo) Update(ctx context.Context, id models.ID, upd models.CheckInUpdate) (ci models.CheckIn, offline bool, err error) {
	if err := upd.Validate(); err != nil {
		return models.CheckIn{}, false, fmt.Errorf("repo: checkin update: %w: %v", apperr.ErrValidation, err)
	}

	current, err := r.localCheckin(id)
	if err != nil {
		return models.CheckIn{}, false, err
	}

	applyUpdate := func(target *models.CheckIn) {
		if upd.Completed != nil {
			target.Completed = *upd.Completed
		}
		if upd.Notes != nil {
			target.Notes = *upd.Notes
		}
	}

	if id.Provisional() {
		applyUpdate(&current)
		current.Synced = false
		if err := r.store.UpsertCheckin(current); err != nil {
			return models.CheckIn{}, false, err
		}
		r.cache.putCheckin(current)
		return current, true, nil
	}

	ci, rerr := r.remote.UpdateCheckin(ctx, id, upd)
	if rerr == nil {
		ci.Synced = true
		if err := r.store.UpsertCheckin(ci); err != nil {
			return models.CheckIn{}, false, err
		}
		r.cache.putCheckin(ci)
		return ci, false, nil
	}

	if !offlineFallback(ctx, rerr, r.oracle) {
		return models.CheckIn{}, false, rerr
	}

	applyUpdate(&current)
	current.Synced = false
	if err := r.store.UpsertCheckin(current); err != nil {
		return models.CheckIn{}, false, err
	}
	r.cache.putCheckin(current)
	r.logger.Info("repo: check-in updated locally, pending sync", slog.String("id", id.String()))
	return current, true, nil
}

// FetchByGoal returns all check-ins for a goal, newest first, remote-first
// with a stale-tagged local fallback. A provisional goal is served locally:
// the server cannot know it yet.
func (r *CheckinRepo) FetchByGoal(ctx context.Context, goalID models.ID) (checkins []models.CheckIn, stale bool, err error) {
	if goalID.Provisional() {
		checkins, err := r.store.Checkins(goalID)
		return checkins, true, err
	}

	fetched, rerr := r.remote.Checkins(ctx, goalID)
	if rerr == nil {
		for _, ci := range fetched {
			ci.Synced = true
			if err := r.store.UpsertCheckin(ci); err != nil {
				return nil, false, err
			}
			r.cache.putCheckin(ci)
		}
		checkins, err := r.store.Checkins(goalID)
		return checkins, false, err
	}

	if !offlineFallback(ctx, rerr, r.oracle) {
		return nil, false, rerr
	}

	checkins, err = r.store.Checkins(goalID)
	if err != nil {
		return nil, false, err
	}
	return checkins, true, nil
}

// FetchStats returns completion statistics for a goal. Server-computed
// stats are preferred; when the remote is unreachable the same figures are
// recomputed locally from whatever check-ins are stored. For identical
// check-in data both paths yield identical results.
func (r *CheckinRepo) FetchStats(ctx context.Context, goalID models.ID) (s stats.Stats, offline bool, err error) {
	if !goalID.Provisional() {
		s, rerr := r.remote.Stats(ctx, goalID)
		if rerr == nil {
			return s, false, nil
		}
		if !offlineFallback(ctx, rerr, r.oracle) {
			return stats.Stats{}, false, rerr
		}
	}

	checkins, err := r.store.Checkins(goalID)
	if err != nil {
		return stats.Stats{}, false, err
	}
	s = stats.Compute(checkins)
	s.CalculatedLocally = true
	return s, true, nil
}

// localCheckin reads a check-in from the session cache, then the store.
func (r *CheckinRepo) localCheckin(id models.ID) (models.CheckIn, error) {
	if ci, ok := r.cache.checkin(id); ok {
		return ci, nil
	}
	ci, err := r.store.CheckinByID(id)
	if err != nil {
		return models.CheckIn{}, err
	}
	r.cache.putCheckin(ci)
	return ci, nil
}
