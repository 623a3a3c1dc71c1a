// Package testutil holds fixtures shared by tests across packages.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/atomicstack/shell-script-manager/internal/app"
	"github.com/atomicstack/shell-script-manager/internal/logging"
	"github.com/atomicstack/shell-script-manager/internal/repository"
)

// NewMemoryCore returns a core over a private in-memory database. Logs go to
// a temporary file. Everything is closed when the test ends.
func NewMemoryCore(t *testing.T, workers int) *app.Core {
	t.Helper()
	t.Cleanup(logging.Redirect(filepath.Join(t.TempDir(), "test.log")))
	repo, err := repository.OpenSQLite(repository.MemoryPath)
	if err != nil {
		t.Fatalf("open in-memory database: %v", err)
	}
	core := app.NewCore(repo, workers)
	t.Cleanup(func() {
		core.Close()
		_ = repo.Close()
	})
	return core
}

// Context returns a context cancelled after ten seconds or when the test
// ends, whichever comes first.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
