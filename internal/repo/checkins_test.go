package repo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/corbin/stride/internal/apperr"
	"github.com/corbin/stride/internal/models"
)

func createGoal(t *testing.T, f *fixture, title string) models.Goal {
	t.Helper()
	g, _, err := f.goals.Create(context.Background(), models.GoalInput{Title: title, Frequency: models.FrequencyDaily})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	return g
}

func TestCheckinCreateOnline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := createGoal(t, f, "Run")

	ci, offline, err := f.checkins.Create(ctx, models.CheckInInput{
		GoalID:    g.ID.String(),
		Date:      "2026-02-01",
		Completed: true,
		Notes:     "5k",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if offline || ci.ID.Provisional() || !ci.Synced {
		t.Errorf("online checkin = %+v offline=%v", ci, offline)
	}
	stored, err := f.store.CheckinByID(ci.ID)
	if err != nil {
		t.Fatalf("local copy: %v", err)
	}
	if stored.Notes != "5k" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestCheckinCreateOfflineFallsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := createGoal(t, f, "Run")

	f.fake.SetDown(true)
	ci, offline, err := f.checkins.Create(ctx, models.CheckInInput{
		GoalID:    g.ID.String(),
		Date:      "2026-02-01",
		Completed: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !offline || !ci.ID.Provisional() || ci.Synced {
		t.Errorf("offline checkin = %+v offline=%v", ci, offline)
	}
}

func TestCheckinDuplicateDateConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := createGoal(t, f, "Run")

	in := models.CheckInInput{GoalID: g.ID.String(), Date: "2026-02-01", Completed: true}
	if _, _, err := f.checkins.Create(ctx, in); err != nil {
		t.Fatalf("first: %v", err)
	}
	_, _, err := f.checkins.Create(ctx, in)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("duplicate: err = %v, want ErrConflict", err)
	}

	// Exactly one record locally.
	checkins, _ := f.store.Checkins(g.ID)
	if len(checkins) != 1 {
		t.Errorf("local checkins = %d, want 1", len(checkins))
	}
}

func TestCheckinDuplicateDateConflictOffline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := createGoal(t, f, "Run")

	in := models.CheckInInput{GoalID: g.ID.String(), Date: "2026-02-01", Completed: true}
	if _, _, err := f.checkins.Create(ctx, in); err != nil {
		t.Fatal(err)
	}

	// The local mirror enforces the date rule even without the remote.
	f.fake.SetDown(true)
	_, _, err := f.checkins.Create(ctx, in)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("offline duplicate: err = %v, want ErrConflict", err)
	}
}

func TestCheckinUpdateMutableFieldsOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := createGoal(t, f, "Run")

	ci, _, err := f.checkins.Create(ctx, models.CheckInInput{GoalID: g.ID.String(), Date: "2026-02-01", Completed: false})
	if err != nil {
		t.Fatal(err)
	}

	done := true
	notes := "made it"
	upd, offline, err := f.checkins.Update(ctx, ci.ID, models.CheckInUpdate{Completed: &done, Notes: &notes})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if offline {
		t.Error("online update flagged offline")
	}
	if !upd.Completed || upd.Notes != "made it" {
		t.Errorf("updated = %+v", upd)
	}
	// Identity and date never change on update.
	if upd.ID != ci.ID || upd.Date != ci.Date {
		t.Errorf("immutable fields changed: %+v", upd)
	}
}

func TestProvisionalCheckinUpdateStaysLocal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := createGoal(t, f, "Run")

	f.fake.SetDown(true)
	ci, _, err := f.checkins.Create(ctx, models.CheckInInput{GoalID: g.ID.String(), Date: "2026-02-01", Completed: false})
	if err != nil {
		t.Fatal(err)
	}

	f.fake.SetDown(false)
	done := true
	upd, _, err := f.checkins.Update(ctx, ci.ID, models.CheckInUpdate{Completed: &done})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !upd.ID.Provisional() || upd.Synced {
		t.Errorf("provisional checkin promoted outside sync: %+v", upd)
	}
	if _, ok := f.fake.Checkin(upd.ID.String()); ok {
		t.Error("provisional update leaked to the remote")
	}
}

func TestCheckinFetchByGoalOffline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := createGoal(t, f, "Run")

	for _, date := range []string{"2026-02-01", "2026-02-02"} {
		if _, _, err := f.checkins.Create(ctx, models.CheckInInput{GoalID: g.ID.String(), Date: date, Completed: true}); err != nil {
			t.Fatal(err)
		}
	}

	f.fake.SetDown(true)
	checkins, stale, err := f.checkins.FetchByGoal(ctx, g.ID)
	if err != nil {
		t.Fatalf("FetchByGoal: %v", err)
	}
	if !stale {
		t.Error("offline fetch not flagged stale")
	}
	if len(checkins) != 2 {
		t.Errorf("checkins = %d, want 2", len(checkins))
	}
}

func TestStatsRemoteFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := createGoal(t, f, "Run")

	for i, date := range []string{"2026-02-01", "2026-02-02", "2026-02-03"} {
		if _, _, err := f.checkins.Create(ctx, models.CheckInInput{GoalID: g.ID.String(), Date: date, Completed: i != 1}); err != nil {
			t.Fatal(err)
		}
	}

	s, offline, err := f.checkins.FetchStats(ctx, g.ID)
	if err != nil {
		t.Fatalf("FetchStats: %v", err)
	}
	if offline || s.CalculatedLocally {
		t.Errorf("online stats flagged local: %+v", s)
	}
	if s.Total != 3 || s.Completed != 2 || s.CurrentStreak != 1 || s.LongestStreak != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestStatsLocalFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := createGoal(t, f, "Run")

	for _, date := range []string{"2026-02-01", "2026-02-02"} {
		if _, _, err := f.checkins.Create(ctx, models.CheckInInput{GoalID: g.ID.String(), Date: date, Completed: true}); err != nil {
			t.Fatal(err)
		}
	}

	f.fake.SetDown(true)
	s, offline, err := f.checkins.FetchStats(ctx, g.ID)
	if err != nil {
		t.Fatalf("FetchStats offline: %v", err)
	}
	if !offline || !s.CalculatedLocally {
		t.Errorf("fallback stats not flagged: offline=%v %+v", offline, s)
	}
	if s.Total != 2 || s.CurrentStreak != 2 {
		t.Errorf("stats = %+v", s)
	}
}

func TestStatsForProvisionalGoalComputedLocally(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fake.SetDown(true)
	g := createGoal(t, f, "Offline goal")
	if _, _, err := f.checkins.Create(ctx, models.CheckInInput{GoalID: g.ID.String(), Date: "2026-02-01", Completed: true}); err != nil {
		t.Fatal(err)
	}

	// Back online the remote still has no such goal; stats stay local.
	f.fake.SetDown(false)
	s, _, err := f.checkins.FetchStats(ctx, g.ID)
	if err != nil {
		t.Fatalf("FetchStats: %v", err)
	}
	if !s.CalculatedLocally || s.Total != 1 {
		t.Errorf("stats = %+v", s)
	}
}
