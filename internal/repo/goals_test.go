package repo_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/corbin/stride/internal/apperr"
	"github.com/corbin/stride/internal/connectivity"
	"github.com/corbin/stride/internal/models"
	"github.com/corbin/stride/internal/remote"
	"github.com/corbin/stride/internal/repo"
	"github.com/corbin/stride/internal/store"
	"github.com/corbin/stride/internal/testutil"
)

type fixture struct {
	store    *store.Store
	fake     *testutil.FakeRemote
	cache    *repo.Cache
	goals    *repo.GoalRepo
	checkins *repo.CheckinRepo
}

// newFixture wires repositories against a fake remote. The probe targets
// the fake's health endpoint, so SetDown flips both the request path and
// the reachability answer at once.
func newFixture(t *testing.T) *fixture {
	st := testutil.TestStore(t)
	fake := testutil.NewFakeRemote(t)
	sec := testutil.TestSecrets(t)
	client := remote.NewClient(fake.URL(), time.Second, sec)
	oracle := connectivity.NewProbe(fake.URL()+"/health", time.Second)
	cache := repo.NewCache()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	return &fixture{
		store:    st,
		fake:     fake,
		cache:    cache,
		goals:    repo.NewGoalRepo(st, client, oracle, cache, logger),
		checkins: repo.NewCheckinRepo(st, client, oracle, cache, logger),
	}
}

func TestGoalCreateOnline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, offline, err := f.goals.Create(ctx, models.GoalInput{Title: "Read", Frequency: models.FrequencyDaily})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if offline {
		t.Error("online create reported offline")
	}
	if g.ID.Provisional() {
		t.Errorf("online create yielded provisional id %v", g.ID)
	}
	if !g.Synced {
		t.Error("server-acknowledged goal not marked synced")
	}

	// Persisted locally under the server identity.
	stored, err := f.store.GoalByID(g.ID)
	if err != nil {
		t.Fatalf("local copy: %v", err)
	}
	if !stored.Synced {
		t.Error("local copy not synced")
	}
}

func TestGoalCreateOfflineFallsBack(t *testing.T) {
	f := newFixture(t)
	f.fake.SetDown(true)
	ctx := context.Background()

	g, offline, err := f.goals.Create(ctx, models.GoalInput{Title: "Read", Frequency: models.FrequencyDaily})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !offline {
		t.Error("offline create not flagged")
	}
	if !g.ID.Provisional() {
		t.Errorf("offline create id = %v, want provisional", g.ID)
	}
	if g.Synced {
		t.Error("offline goal marked synced")
	}

	// Readable back through the repository without the remote.
	got, _, err := f.goals.FetchByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("FetchByID: %v", err)
	}
	if got.Title != "Read" {
		t.Errorf("got %+v", got)
	}
}

func TestGoalCreateValidationHasNoFallback(t *testing.T) {
	f := newFixture(t)
	f.fake.SetDown(true)

	_, _, err := f.goals.Create(context.Background(), models.GoalInput{Frequency: models.FrequencyDaily})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	// Nothing may reach the store on a rejected input.
	goals, _ := f.store.Goals(store.GoalFilter{})
	if len(goals) != 0 {
		t.Errorf("store has %d goals after rejected create", len(goals))
	}
}

func TestGoalCreateServerErrorHasNoFallback(t *testing.T) {
	f := newFixture(t)
	f.fake.RejectGoalTitle = "Doomed"

	_, _, err := f.goals.Create(context.Background(), models.GoalInput{Title: "Doomed", Frequency: models.FrequencyDaily})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, apperr.ErrConnectivity) {
		t.Error("5xx misclassified as connectivity")
	}
	// A reachable-but-failing server must not produce a provisional record.
	goals, _ := f.store.Goals(store.GoalFilter{})
	if len(goals) != 0 {
		t.Errorf("store has %d goals after server error", len(goals))
	}
}

func TestGoalUpdateOfflineKeepsUnsynced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, _, err := f.goals.Create(ctx, models.GoalInput{Title: "Read", Frequency: models.FrequencyDaily})
	if err != nil {
		t.Fatal(err)
	}

	f.fake.SetDown(true)
	upd, offline, err := f.goals.Update(ctx, g.ID, models.GoalInput{Title: "Read more", Frequency: models.FrequencyDaily})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !offline {
		t.Error("offline update not flagged")
	}
	// Identity is preserved; only the synced flag drops.
	if upd.ID != g.ID {
		t.Errorf("id changed: %v -> %v", g.ID, upd.ID)
	}
	if upd.Synced {
		t.Error("offline update left goal synced")
	}
	stored, _ := f.store.GoalByID(g.ID)
	if stored.Title != "Read more" || stored.Synced {
		t.Errorf("stored = %+v", stored)
	}
}

func TestProvisionalGoalUpdateStaysLocal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fake.SetDown(true)
	g, _, err := f.goals.Create(ctx, models.GoalInput{Title: "Read", Frequency: models.FrequencyDaily})
	if err != nil {
		t.Fatal(err)
	}

	// Back online: an update to a provisional record must still not touch
	// the remote, which has never heard of this identity.
	f.fake.SetDown(false)
	upd, _, err := f.goals.Update(ctx, g.ID, models.GoalInput{Title: "Read daily", Frequency: models.FrequencyDaily})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !upd.ID.Provisional() {
		t.Errorf("id promoted outside sync: %v", upd.ID)
	}
	if f.fake.GoalCount() != 0 {
		t.Error("provisional update leaked to the remote")
	}
}

func TestGoalRemoveProvisional(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fake.SetDown(true)
	g, _, err := f.goals.Create(ctx, models.GoalInput{Title: "Gone", Frequency: models.FrequencyDaily})
	if err != nil {
		t.Fatal(err)
	}

	f.fake.SetDown(false)
	if _, err := f.goals.Remove(ctx, g.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := f.store.GoalByID(g.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("provisional goal survived removal")
	}
	if f.fake.GoalCount() != 0 {
		t.Error("provisional delete reached the remote")
	}
}

func TestGoalRemoveStableOffline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, _, err := f.goals.Create(ctx, models.GoalInput{Title: "Gone", Frequency: models.FrequencyDaily})
	if err != nil {
		t.Fatal(err)
	}

	f.fake.SetDown(true)
	offline, err := f.goals.Remove(ctx, g.ID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !offline {
		t.Error("offline remove not flagged")
	}
	if _, err := f.store.GoalByID(g.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("goal survived offline removal locally")
	}
}

func TestGoalFetchAllRefreshesMirror(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, title := range []string{"One", "Two"} {
		if _, _, err := f.goals.Create(ctx, models.GoalInput{Title: title, Frequency: models.FrequencyDaily}); err != nil {
			t.Fatal(err)
		}
	}

	goals, stale, err := f.goals.FetchAll(ctx, store.GoalFilter{})
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if stale {
		t.Error("online fetch reported stale")
	}
	if len(goals) != 2 {
		t.Fatalf("goals = %d, want 2", len(goals))
	}
	for _, g := range goals {
		if !g.Synced {
			t.Errorf("mirrored goal unsynced: %+v", g)
		}
	}
}

func TestGoalFetchAllOfflineServesStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, err := f.goals.Create(ctx, models.GoalInput{Title: "One", Frequency: models.FrequencyDaily}); err != nil {
		t.Fatal(err)
	}

	f.fake.SetDown(true)
	goals, stale, err := f.goals.FetchAll(ctx, store.GoalFilter{})
	if err != nil {
		t.Fatalf("FetchAll offline: %v", err)
	}
	if !stale {
		t.Error("offline fetch not flagged stale")
	}
	if len(goals) != 1 || goals[0].Title != "One" {
		t.Errorf("goals = %+v", goals)
	}
}
