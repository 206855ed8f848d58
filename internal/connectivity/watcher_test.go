package connectivity_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/corbin/stride/internal/connectivity"
)

type triggerRecorder struct {
	mu      sync.Mutex
	reasons []string
}

func (r *triggerRecorder) record(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func (r *triggerRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.reasons))
	copy(out, r.reasons)
	return out
}

func (r *triggerRecorder) waitFor(t *testing.T, reason string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		for _, got := range r.snapshot() {
			if got == reason {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("trigger %q never fired; got %v", reason, r.snapshot())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestWatchTriggersOnStartupWhenReachable(t *testing.T) {
	secretsPath := filepath.Join(t.TempDir(), "secrets.json")
	rec := &triggerRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- connectivity.Watch(ctx, connectivity.Static(true), secretsPath, time.Minute, testLogger(), rec.record)
	}()

	rec.waitFor(t, "connectivity restored")
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch: %v", err)
	}
}

func TestWatchTriggersOnCredentialWrite(t *testing.T) {
	dir := t.TempDir()
	secretsPath := filepath.Join(dir, "secrets.json")
	rec := &triggerRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		// Unreachable oracle so only the file event can fire the trigger.
		_ = connectivity.Watch(ctx, connectivity.Static(false), secretsPath, time.Minute, testLogger(), rec.record)
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(secretsPath, []byte(`{"auth_token":"tok"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	rec.waitFor(t, "credential updated")
}

func TestWatchIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	secretsPath := filepath.Join(dir, "secrets.json")
	rec := &triggerRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = connectivity.Watch(ctx, connectivity.Static(false), secretsPath, time.Minute, testLogger(), rec.record)
	}()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	// The unrelated write must not fire anything.
	time.Sleep(300 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("unexpected triggers: %v", got)
	}
}
