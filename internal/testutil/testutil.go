// Package testutil provides shared test helpers: a temporary store, a
// temporary secret store, and a fake remote goal service.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/corbin/stride/internal/secrets"
	"github.com/corbin/stride/internal/store"
)

// TestStore creates a temporary SQLite store that is automatically cleaned up.
func TestStore(t *testing.T) *store.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "stride-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	st, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// TestSecrets creates a temporary file-backed secret store holding a valid
// auth token.
func TestSecrets(t *testing.T) *secrets.FileStore {
	t.Helper()
	sec, err := secrets.NewFileStore(filepath.Join(t.TempDir(), "secrets.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := sec.Set(secrets.TokenKey, "test-token"); err != nil {
		t.Fatal(err)
	}
	return sec
}
