package secrets_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/corbin/stride/internal/secrets"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	st, err := secrets.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	// Absent key reads as empty, even before the file exists.
	if v, err := st.Get(secrets.TokenKey); err != nil || v != "" {
		t.Fatalf("Get before Set = %q, %v", v, err)
	}

	if err := st.Set(secrets.TokenKey, "tok-123"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _ := st.Get(secrets.TokenKey); v != "tok-123" {
		t.Errorf("Get = %q", v)
	}

	// A fresh store over the same file sees the value.
	st2, err := secrets.NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := st2.Get(secrets.TokenKey); v != "tok-123" {
		t.Errorf("reopened Get = %q", v)
	}
}

func TestFileStoreDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	st, err := secrets.NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}

	// Deleting an absent key is a no-op.
	if err := st.Delete(secrets.TokenKey); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}

	if err := st.Set(secrets.TokenKey, "tok"); err != nil {
		t.Fatal(err)
	}
	if err := st.Delete(secrets.TokenKey); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if v, _ := st.Get(secrets.TokenKey); v != "" {
		t.Errorf("value survived delete: %q", v)
	}
}

func TestFileStorePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	st, err := secrets.NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Set(secrets.TokenKey, "tok"); err != nil {
		t.Fatal(err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := fi.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestFileStoreCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "secrets.json")
	st, err := secrets.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := st.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
}
