package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/corbin/stride/internal/repo"
	"github.com/corbin/stride/internal/syncer"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(goals *repo.GoalRepo, checkins *repo.CheckinRepo, engine *syncer.Engine, authEnabled bool, token string) chi.Router {
	h := NewHandler(goals, checkins, engine)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Goals CRUD.
	r.Get("/goals", h.ListGoals)
	r.Post("/goals", h.CreateGoal)
	r.Get("/goals/{id}", h.GetGoal)
	r.Put("/goals/{id}", h.UpdateGoal)
	r.Delete("/goals/{id}", h.DeleteGoal)

	// Check-ins.
	r.Post("/checkins", h.CreateCheckin)
	r.Put("/checkins/{id}", h.UpdateCheckin)
	r.Get("/checkins/{goalID}", h.ListCheckins)
	r.Get("/checkins/{goalID}/stats", h.GetStats)

	// Manual reconciliation trigger.
	r.Post("/sync", h.TriggerSync)

	return r
}
