package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/corbin/stride/internal/apperr"
	"github.com/corbin/stride/internal/models"
	"github.com/corbin/stride/internal/repo"
	"github.com/corbin/stride/internal/store"
	"github.com/corbin/stride/internal/syncer"
)

// Handler holds API route handlers.
type Handler struct {
	goals    *repo.GoalRepo
	checkins *repo.CheckinRepo
	engine   *syncer.Engine
}

// NewHandler creates a new Handler.
func NewHandler(goals *repo.GoalRepo, checkins *repo.CheckinRepo, engine *syncer.Engine) *Handler {
	return &Handler{goals: goals, checkins: checkins, engine: engine}
}

// writeError maps the apperr taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrAuth):
		writeJSON(w, http.StatusUnauthorized, errorBody("remote rejected credential, log in again"))
	case errors.Is(err, apperr.ErrNotReady):
		writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
	default:
		slog.Error(what+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListGoals handles GET /goals.
//
//	@Summary		List goals with optional category/frequency filter
//	@Tags			goals
//	@Produce		json
//	@Param			category	query		string	false	"Filter by category"
//	@Param			frequency	query		string	false	"Filter by frequency"	Enums(daily, weekly, monthly)
//	@Success		200			{object}	GoalListResponse
//	@Security		BearerAuth
//	@Router			/goals [get]
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	goals, stale, err := h.goals.FetchAll(r.Context(), store.GoalFilter{
		Category:  q.Get("category"),
		Frequency: q.Get("frequency"),
	})
	if err != nil {
		writeError(w, err, "list goals")
		return
	}
	if goals == nil {
		goals = []models.Goal{}
	}
	writeJSON(w, http.StatusOK, GoalListResponse{Goals: goals, Stale: stale})
}

// GetGoal handles GET /goals/{id}.
//
//	@Summary		Get a single goal by id
//	@Tags			goals
//	@Produce		json
//	@Param			id	path		string	true	"Goal id"
//	@Success		200	{object}	GoalResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/goals/{id} [get]
func (h *Handler) GetGoal(w http.ResponseWriter, r *http.Request) {
	id := models.ParseID(chi.URLParam(r, "id"))
	g, stale, err := h.goals.FetchByID(r.Context(), id)
	if err != nil {
		writeError(w, err, "get goal")
		return
	}
	writeJSON(w, http.StatusOK, GoalResponse{Goal: g, Offline: stale})
}

// CreateGoal handles POST /goals.
//
//	@Summary		Create a goal (falls back to a local provisional record when offline)
//	@Tags			goals
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.GoalInput	true	"Goal to create"
//	@Success		201		{object}	GoalResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/goals [post]
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var in models.GoalInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	g, offline, err := h.goals.Create(r.Context(), in)
	if err != nil {
		writeError(w, err, "create goal")
		return
	}
	writeJSON(w, http.StatusCreated, GoalResponse{Goal: g, Offline: offline})
}

// UpdateGoal handles PUT /goals/{id}.
//
//	@Summary		Update a goal
//	@Tags			goals
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Goal id"
//	@Param			body	body		models.GoalInput	true	"Updated goal"
//	@Success		200		{object}	GoalResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/goals/{id} [put]
func (h *Handler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	id := models.ParseID(chi.URLParam(r, "id"))
	var in models.GoalInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	g, offline, err := h.goals.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, err, "update goal")
		return
	}
	writeJSON(w, http.StatusOK, GoalResponse{Goal: g, Offline: offline})
}

// DeleteGoal handles DELETE /goals/{id}.
//
//	@Summary		Delete a goal and its check-ins
//	@Tags			goals
//	@Param			id	path	string	true	"Goal id"
//	@Success		204
//	@Security		BearerAuth
//	@Router			/goals/{id} [delete]
func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	id := models.ParseID(chi.URLParam(r, "id"))
	if _, err := h.goals.Remove(r.Context(), id); err != nil {
		writeError(w, err, "delete goal")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateCheckin handles POST /checkins.
//
//	@Summary		Record a check-in (one per goal per date)
//	@Tags			checkins
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.CheckInInput	true	"Check-in to create"
//	@Success		201		{object}	CheckinResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/checkins [post]
func (h *Handler) CreateCheckin(w http.ResponseWriter, r *http.Request) {
	var in models.CheckInInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	ci, offline, err := h.checkins.Create(r.Context(), in)
	if err != nil {
		writeError(w, err, "create checkin")
		return
	}
	writeJSON(w, http.StatusCreated, CheckinResponse{Checkin: ci, Offline: offline})
}

// UpdateCheckin handles PUT /checkins/{id}.
//
//	@Summary		Update a check-in's completed flag or notes
//	@Tags			checkins
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Check-in id"
//	@Param			body	body		models.CheckInUpdate	true	"Fields to change"
//	@Success		200		{object}	CheckinResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/checkins/{id} [put]
func (h *Handler) UpdateCheckin(w http.ResponseWriter, r *http.Request) {
	id := models.ParseID(chi.URLParam(r, "id"))
	var upd models.CheckInUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	ci, offline, err := h.checkins.Update(r.Context(), id, upd)
	if err != nil {
		writeError(w, err, "update checkin")
		return
	}
	writeJSON(w, http.StatusOK, CheckinResponse{Checkin: ci, Offline: offline})
}

// ListCheckins handles GET /checkins/{goalID}.
//
//	@Summary		List check-ins for a goal, newest first
//	@Tags			checkins
//	@Produce		json
//	@Param			goalID	path		string	true	"Goal id"
//	@Success		200		{object}	CheckinListResponse
//	@Security		BearerAuth
//	@Router			/checkins/{goalID} [get]
func (h *Handler) ListCheckins(w http.ResponseWriter, r *http.Request) {
	goalID := models.ParseID(chi.URLParam(r, "goalID"))
	checkins, stale, err := h.checkins.FetchByGoal(r.Context(), goalID)
	if err != nil {
		writeError(w, err, "list checkins")
		return
	}
	if checkins == nil {
		checkins = []models.CheckIn{}
	}
	writeJSON(w, http.StatusOK, CheckinListResponse{Checkins: checkins, Stale: stale})
}

// GetStats handles GET /checkins/{goalID}/stats.
//
//	@Summary		Completion statistics for a goal
//	@Tags			checkins
//	@Produce		json
//	@Param			goalID	path		string	true	"Goal id"
//	@Success		200		{object}	StatsResponse
//	@Security		BearerAuth
//	@Router			/checkins/{goalID}/stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	goalID := models.ParseID(chi.URLParam(r, "goalID"))
	s, offline, err := h.checkins.FetchStats(r.Context(), goalID)
	if err != nil {
		writeError(w, err, "get stats")
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Stats: s, Offline: offline})
}

// TriggerSync handles POST /sync.
//
//	@Summary		Run one reconciliation pass over unsynced records
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	SyncResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sync [post]
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	rep, err := h.engine.Run(r.Context())
	if err != nil {
		writeError(w, err, "sync")
		return
	}
	resp := SyncResponse{Report: rep}
	if rep.Empty() {
		resp.Message = "nothing to sync"
	}
	writeJSON(w, http.StatusOK, resp)
}
