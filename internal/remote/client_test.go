package remote_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/corbin/stride/internal/apperr"
	"github.com/corbin/stride/internal/models"
	"github.com/corbin/stride/internal/remote"
	"github.com/corbin/stride/internal/secrets"
	"github.com/corbin/stride/internal/testutil"
)

func newClient(t *testing.T, h http.Handler) (*remote.Client, *secrets.FileStore) {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	sec := testutil.TestSecrets(t)
	return remote.NewClient(srv.URL, time.Second, sec), sec
}

func TestClientSendsBearerToken(t *testing.T) {
	var got string
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))

	if _, err := c.Goals(context.Background()); err != nil {
		t.Fatalf("Goals: %v", err)
	}
	if got != "Bearer test-token" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestClientCreateGoal(t *testing.T) {
	fake := testutil.NewFakeRemote(t)
	sec := testutil.TestSecrets(t)
	c := remote.NewClient(fake.URL(), time.Second, sec)

	g, err := c.CreateGoal(context.Background(), models.GoalInput{
		Title:     "Read",
		Frequency: models.FrequencyDaily,
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if g.ID.IsZero() || g.ID.Provisional() {
		t.Errorf("server id = %v", g.ID)
	}
	if g.Title != "Read" {
		t.Errorf("goal = %+v", g)
	}
}

func TestClientConnectivityError(t *testing.T) {
	fake := testutil.NewFakeRemote(t)
	fake.SetDown(true)
	c := remote.NewClient(fake.URL(), time.Second, testutil.TestSecrets(t))

	_, err := c.Goals(context.Background())
	if !errors.Is(err, apperr.ErrConnectivity) {
		t.Errorf("err = %v, want ErrConnectivity", err)
	}
}

func TestClientStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, apperr.ErrNotFound},
		{http.StatusConflict, apperr.ErrConflict},
		{http.StatusUnprocessableEntity, apperr.ErrValidation},
		{http.StatusBadRequest, apperr.ErrValidation},
	}
	for _, tc := range cases {
		c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"detail":"nope"}`))
		}))
		_, err := c.GoalByID(context.Background(), models.StableID("g1"))
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: err = %v, want %v", tc.status, err, tc.want)
		}
	}
}

func TestClientServerErrorIsNotConnectivity(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	_, err := c.GoalByID(context.Background(), models.StableID("g1"))
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, apperr.ErrConnectivity) {
		t.Error("5xx must not classify as connectivity failure")
	}
}

func TestClientUnauthorizedClearsToken(t *testing.T) {
	c, sec := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.Goals(context.Background())
	if !errors.Is(err, apperr.ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
	// The stale credential must not be retried on the next request.
	if v, _ := sec.Get(secrets.TokenKey); v != "" {
		t.Errorf("token survived 401: %q", v)
	}
}

func TestClientDeleteGoal(t *testing.T) {
	fake := testutil.NewFakeRemote(t)
	c := remote.NewClient(fake.URL(), time.Second, testutil.TestSecrets(t))

	g, err := c.CreateGoal(context.Background(), models.GoalInput{Title: "Ship", Frequency: models.FrequencyWeekly})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteGoal(context.Background(), g.ID); err != nil {
		t.Fatalf("DeleteGoal: %v", err)
	}
	if fake.GoalCount() != 0 {
		t.Error("goal not deleted on server")
	}
}

func TestClientCheckinConflict(t *testing.T) {
	fake := testutil.NewFakeRemote(t)
	c := remote.NewClient(fake.URL(), time.Second, testutil.TestSecrets(t))
	ctx := context.Background()

	g, err := c.CreateGoal(ctx, models.GoalInput{Title: "Run", Frequency: models.FrequencyDaily})
	if err != nil {
		t.Fatal(err)
	}
	in := models.CheckInInput{GoalID: g.ID.String(), Date: "2026-02-01", Completed: true}
	if _, err := c.CreateCheckin(ctx, in); err != nil {
		t.Fatalf("first checkin: %v", err)
	}
	_, err = c.CreateCheckin(ctx, in)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate date: err = %v, want ErrConflict", err)
	}
}
