package connectivity

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// TriggerFunc is called when a sync attempt should start: either the remote
// transitioned from unreachable to reachable, or the credential file was
// written (a login from the UI process).
type TriggerFunc func(reason string)

// Watch polls the oracle and watches the credential file until ctx is
// cancelled. The first observation after startup fires the trigger when the
// remote is reachable, so queued offline work drains without waiting for a
// transition.
func Watch(ctx context.Context, oracle Oracle, secretsPath string, interval time.Duration, logger *slog.Logger, trigger TriggerFunc) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// The credential file may not exist yet, so the parent directory is
	// watched and events are filtered by name.
	if err := w.Add(filepath.Dir(secretsPath)); err != nil {
		return err
	}

	logger.Info("connectivity: watcher started",
		slog.String("secrets_path", secretsPath),
		slog.Duration("poll_interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	wasReachable := false

	probe := func() {
		reachable := oracle.Reachable(ctx)
		if reachable && !wasReachable {
			logger.Info("connectivity: remote reachable, triggering sync")
			trigger("connectivity restored")
		}
		wasReachable = reachable
	}
	probe()

	for {
		select {
		case <-ctx.Done():
			logger.Info("connectivity: watcher stopped")
			return nil

		case <-ticker.C:
			probe()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(secretsPath) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				logger.Debug("connectivity: credential file changed")
				trigger("credential updated")
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("connectivity: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
