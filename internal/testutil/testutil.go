// Package testutil provides shared test helpers for setting up stores and asset directories.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/scriptorium/internal/assets"
	"github.com/starford/scriptorium/internal/storage"
)

// TestStore creates an in-memory store that is closed when the test ends.
func TestStore(t *testing.T) storage.Store {
	t.Helper()
	store := storage.NewMemory(nil)
	t.Cleanup(func() { store.Close() })
	return store
}

// TestSQLite creates a store backed by a temporary SQLite file.
func TestSQLite(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "scriptorium-test.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestAssets creates a temporary asset directory.
func TestAssets(t *testing.T) *assets.Dir {
	t.Helper()
	dir, err := assets.NewDir(filepath.Join(t.TempDir(), "files"))
	if err != nil {
		t.Fatal(err)
	}
	return dir
}
