// Package testutil provides shared test helpers for setting up stores,
// databases and workspaces.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/tessera/internal/index"
	"github.com/starford/tessera/internal/storage"
	"github.com/starford/tessera/internal/tools"
	"github.com/starford/tessera/internal/workspace"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "tessera-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary documents directory with a storage provider.
func TestStore(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Logger returns a logger that discards its output.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestWorkspace wires a workspace over a temporary store and database with
// the built-in tools.
func TestWorkspace(t *testing.T, opts ...workspace.Option) (*workspace.Workspace, *storage.FS, *index.DB) {
	t.Helper()
	_, store := TestStore(t)
	db := TestDB(t)
	reg, err := tools.NewRegistry(tools.Options{})
	if err != nil {
		t.Fatal(err)
	}
	opts = append([]workspace.Option{workspace.WithLogger(Logger())}, opts...)
	ws := workspace.New(store, db, reg, opts...)
	t.Cleanup(func() { _ = ws.Close(context.Background()) })
	return ws, store, db
}
