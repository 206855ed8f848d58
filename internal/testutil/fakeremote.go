package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/corbin/stride/internal/models"
	"github.com/corbin/stride/internal/stats"
)

// FakeRemote is an in-process stand-in for the remote goal service. It
// mints server-side uuid identities, enforces the one-check-in-per-date
// rule, and can be taken "down": while down it severs connections without
// a response, which clients classify as a connectivity failure.
type FakeRemote struct {
	srv  *httptest.Server
	down atomic.Bool

	mu       sync.Mutex
	goals    map[string]models.Goal
	checkins map[string]models.CheckIn

	// RejectGoalTitle, when non-empty, makes goal creates and updates
	// with that title fail with a 500. Used to script per-record
	// failures mid-batch.
	RejectGoalTitle string
}

// NewFakeRemote starts a fake remote service. It is shut down with the test.
func NewFakeRemote(t interface{ Cleanup(func()) }) *FakeRemote {
	f := &FakeRemote{
		goals:    make(map[string]models.Goal),
		checkins: make(map[string]models.CheckIn),
	}

	r := chi.NewRouter()
	r.Use(f.gate)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/goals", f.createGoal)
	r.Get("/goals", f.listGoals)
	r.Get("/goals/{id}", f.getGoal)
	r.Put("/goals/{id}", f.updateGoal)
	r.Delete("/goals/{id}", f.deleteGoal)
	r.Post("/checkins", f.createCheckin)
	r.Put("/checkins/{id}", f.updateCheckin)
	r.Get("/checkins/{goalID}", f.listCheckins)
	r.Get("/checkins/{goalID}/stats", f.getStats)

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

// URL returns the base URL of the fake service.
func (f *FakeRemote) URL() string { return f.srv.URL }

// SetDown toggles reachability. While down, every connection is severed
// before a response is written.
func (f *FakeRemote) SetDown(down bool) { f.down.Store(down) }

// Goal returns the stored goal by id.
func (f *FakeRemote) Goal(id string) (models.Goal, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[id]
	return g, ok
}

// Checkin returns the stored check-in by id.
func (f *FakeRemote) Checkin(id string) (models.CheckIn, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.checkins[id]
	return c, ok
}

// GoalCount returns the number of goals the server holds.
func (f *FakeRemote) GoalCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.goals)
}

// gate severs the connection when the fake is down.
func (f *FakeRemote) gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.down.Load() {
			hj, ok := w.(http.Hijacker)
			if ok {
				if conn, _, err := hj.Hijack(); err == nil {
					conn.Close()
				}
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func detail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func (f *FakeRemote) createGoal(w http.ResponseWriter, r *http.Request) {
	var in models.GoalInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		detail(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := in.Validate(); err != nil {
		detail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if f.RejectGoalTitle != "" && in.Title == f.RejectGoalTitle {
		detail(w, http.StatusInternalServerError, "scripted failure")
		return
	}

	now := time.Now().UTC()
	g := models.Goal{ID: models.StableID(uuid.NewString()), CreatedAt: now, UpdatedAt: now}
	in.Apply(&g)

	f.mu.Lock()
	f.goals[g.ID.String()] = g
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, g)
}

func (f *FakeRemote) listGoals(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	out := make([]models.Goal, 0, len(f.goals))
	for _, g := range f.goals {
		out = append(out, g)
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeRemote) getGoal(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	g, ok := f.goals[chi.URLParam(r, "id")]
	f.mu.Unlock()
	if !ok {
		detail(w, http.StatusNotFound, "goal not found")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (f *FakeRemote) updateGoal(w http.ResponseWriter, r *http.Request) {
	var in models.GoalInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		detail(w, http.StatusBadRequest, "invalid body")
		return
	}
	if f.RejectGoalTitle != "" && in.Title == f.RejectGoalTitle {
		detail(w, http.StatusInternalServerError, "scripted failure")
		return
	}

	f.mu.Lock()
	g, ok := f.goals[chi.URLParam(r, "id")]
	if ok {
		in.Apply(&g)
		g.UpdatedAt = time.Now().UTC()
		f.goals[g.ID.String()] = g
	}
	f.mu.Unlock()
	if !ok {
		detail(w, http.StatusNotFound, "goal not found")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (f *FakeRemote) deleteGoal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	delete(f.goals, id)
	for key, c := range f.checkins {
		if c.GoalID.String() == id {
			delete(f.checkins, key)
		}
	}
	f.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeRemote) createCheckin(w http.ResponseWriter, r *http.Request) {
	var in models.CheckInInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		detail(w, http.StatusBadRequest, "invalid body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.goals[in.GoalID]; !ok {
		detail(w, http.StatusNotFound, "goal not found")
		return
	}
	for _, c := range f.checkins {
		if c.GoalID.String() == in.GoalID && c.Date == in.Date {
			detail(w, http.StatusConflict, "check-in for this date already exists")
			return
		}
	}

	ci := models.CheckIn{
		ID:        models.StableID(uuid.NewString()),
		GoalID:    models.StableID(in.GoalID),
		Completed: in.Completed,
		Notes:     in.Notes,
		Date:      in.Date,
		CreatedAt: time.Now().UTC(),
	}
	f.checkins[ci.ID.String()] = ci
	writeJSON(w, http.StatusCreated, ci)
}

func (f *FakeRemote) updateCheckin(w http.ResponseWriter, r *http.Request) {
	var upd models.CheckInUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		detail(w, http.StatusBadRequest, "invalid body")
		return
	}

	f.mu.Lock()
	c, ok := f.checkins[chi.URLParam(r, "id")]
	if ok {
		if upd.Completed != nil {
			c.Completed = *upd.Completed
		}
		if upd.Notes != nil {
			c.Notes = *upd.Notes
		}
		f.checkins[c.ID.String()] = c
	}
	f.mu.Unlock()
	if !ok {
		detail(w, http.StatusNotFound, "checkin not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (f *FakeRemote) listCheckins(w http.ResponseWriter, r *http.Request) {
	goalID := chi.URLParam(r, "goalID")
	f.mu.Lock()
	out := make([]models.CheckIn, 0)
	for _, c := range f.checkins {
		if c.GoalID.String() == goalID {
			out = append(out, c)
		}
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeRemote) getStats(w http.ResponseWriter, r *http.Request) {
	goalID := chi.URLParam(r, "goalID")
	f.mu.Lock()
	var checkins []models.CheckIn
	for _, c := range f.checkins {
		if c.GoalID.String() == goalID {
			checkins = append(checkins, c)
		}
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, stats.Compute(checkins))
}
