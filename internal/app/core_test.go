package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomicstack/shell-script-manager/internal/logging"
	"github.com/atomicstack/shell-script-manager/internal/message"
	"github.com/atomicstack/shell-script-manager/internal/model"
	"github.com/atomicstack/shell-script-manager/internal/repository"
)

func newCore(t *testing.T) (*Core, *repository.SQLiteStore) {
	t.Helper()
	t.Cleanup(logging.Redirect(filepath.Join(t.TempDir(), "core.log")))
	store, err := repository.OpenSQLite(repository.MemoryPath)
	require.NoError(t, err)
	core := NewCore(store, 4)
	t.Cleanup(func() {
		core.Close()
		_ = store.Close()
	})
	return core, store
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func names(folders []model.Folder) []string {
	out := make([]string, len(folders))
	for i, f := range folders {
		out[i] = f.Name
	}
	return out
}

func createFolders(t *testing.T, ctx context.Context, core *Core, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, core.Do(ctx, message.CreateFolder{}))
	}
}

func TestCreateFoldersKeepsDenseOrdering(t *testing.T) {
	core, store := newCore(t)
	ctx := testCtx(t)

	createFolders(t, ctx, core, 3)

	folders := core.Store.Folders()
	assert.Equal(t, []string{"Folder 1", "Folder 2", "Folder 3"}, names(folders))
	assert.True(t, model.IsDense(folders))

	persisted, err := store.GetAllFolders(ctx)
	require.NoError(t, err)
	assert.Equal(t, folders, persisted)
}

func TestConcurrentCreatesStayDense(t *testing.T) {
	core, _ := newCore(t)
	ctx := testCtx(t)

	for i := 0; i < 5; i++ {
		core.Dispatcher.DispatchCommand(message.CreateFolder{})
	}
	_, err := core.Pump.Settle(ctx)
	require.NoError(t, err)

	folders := core.Store.Folders()
	require.Len(t, folders, 5)
	assert.True(t, model.IsDense(folders))
	assert.ElementsMatch(t, []string{"Folder 1", "Folder 2", "Folder 3", "Folder 4", "Folder 5"}, names(folders))
}

func TestReorderFolders(t *testing.T) {
	core, store := newCore(t)
	ctx := testCtx(t)
	createFolders(t, ctx, core, 3)

	require.NoError(t, core.Do(ctx, message.ReorderFolders{FromIndex: 0, ToIndex: 2}))
	assert.Equal(t, []string{"Folder 2", "Folder 1", "Folder 3"}, names(core.Store.Folders()))

	require.NoError(t, core.Do(ctx, message.ReorderFolders{FromIndex: 2, ToIndex: 0}))
	assert.Equal(t, []string{"Folder 3", "Folder 2", "Folder 1"}, names(core.Store.Folders()))

	require.NoError(t, core.Do(ctx, message.ReorderFolders{FromIndex: 0, ToIndex: 3}))
	assert.Equal(t, []string{"Folder 2", "Folder 1", "Folder 3"}, names(core.Store.Folders()))

	persisted, err := store.GetAllFolders(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Store.Folders(), persisted)
	assert.True(t, model.IsDense(persisted))

	err = core.Do(ctx, message.ReorderFolders{FromIndex: 5, ToIndex: 0})
	assert.ErrorIs(t, err, model.ErrIndexOutOfRange)
}

func TestDeleteFolderRenumbersAndCascades(t *testing.T) {
	core, store := newCore(t)
	ctx := testCtx(t)
	createFolders(t, ctx, core, 3)
	folders := core.Store.Folders()
	first, second := folders[0], folders[1]

	require.NoError(t, core.Do(ctx, message.AddScriptToFolder{FolderID: first.ID, Name: "build", Command: "make"}))
	require.NoError(t, core.Do(ctx, message.SelectFolder{FolderID: first.ID}))
	scripts := core.Store.Scripts()
	require.Len(t, scripts, 1)
	scriptID := scripts[0].ID

	require.NoError(t, core.Do(ctx, message.DeleteFolder{FolderID: first.ID}))

	remaining := core.Store.Folders()
	assert.Equal(t, []string{"Folder 2", "Folder 3"}, names(remaining))
	assert.True(t, model.IsDense(remaining))
	_, selected := core.Store.SelectedFolderID()
	assert.False(t, selected)
	assert.Empty(t, core.Store.Scripts())

	_, err := store.GetScript(ctx, scriptID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	appState, err := store.GetAppState(ctx)
	require.NoError(t, err)
	_, ok := appState.LastOpened()
	assert.False(t, ok)

	persisted, err := store.GetAllFolders(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, persisted[0].ID)
	assert.Equal(t, 0, persisted[0].Ordering)
}

func TestSharedScriptSurvivesFolderDelete(t *testing.T) {
	core, store := newCore(t)
	ctx := testCtx(t)
	createFolders(t, ctx, core, 2)
	folders := core.Store.Folders()

	id, err := store.CreateScript(ctx, "shared", "echo hi")
	require.NoError(t, err)
	require.NoError(t, store.LinkScriptToFolder(ctx, id, folders[0].ID))
	require.NoError(t, store.LinkScriptToFolder(ctx, id, folders[1].ID))

	require.NoError(t, core.Do(ctx, message.DeleteFolder{FolderID: folders[0].ID}))

	script, err := store.GetScript(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "shared", script.Name)

	remaining, err := store.GetScriptsForFolder(ctx, folders[1].ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, id, remaining[0].ID)
}

func TestBackToBackDeletes(t *testing.T) {
	core, _ := newCore(t)
	ctx := testCtx(t)
	createFolders(t, ctx, core, 2)
	target := core.Store.Folders()[0].ID

	_, first := core.Dispatcher.DispatchCommandWithReply(message.DeleteFolder{FolderID: target})
	_, second := core.Dispatcher.DispatchCommandWithReply(message.DeleteFolder{FolderID: target})
	_, err := core.Pump.Settle(ctx)
	require.NoError(t, err)

	results := []error{(<-first).Err, (<-second).Err}
	var ok, notFound int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, repository.ErrNotFound):
			notFound++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, notFound)

	folders := core.Store.Folders()
	assert.Equal(t, []string{"Folder 2"}, names(folders))
	assert.True(t, model.IsDense(folders))
}

func TestSelectionScopesScripts(t *testing.T) {
	core, _ := newCore(t)
	ctx := testCtx(t)
	createFolders(t, ctx, core, 2)
	folders := core.Store.Folders()
	a, b := folders[0].ID, folders[1].ID

	require.NoError(t, core.Do(ctx, message.AddScriptToFolder{FolderID: a, Name: "a1", Command: "echo a1"}))
	require.NoError(t, core.Do(ctx, message.AddScriptToFolder{FolderID: b, Name: "b1", Command: "echo b1"}))
	require.NoError(t, core.Do(ctx, message.AddScriptToFolder{FolderID: b, Name: "b2", Command: "echo b2"}))

	require.NoError(t, core.Do(ctx, message.SelectFolder{FolderID: a}))
	require.Len(t, core.Store.Scripts(), 1)
	assert.Equal(t, "a1", core.Store.Scripts()[0].Name)
	assert.Equal(t, a, *core.Store.AppState().LastOpenedFolderID)

	require.NoError(t, core.Do(ctx, message.SelectFolder{FolderID: b}))
	require.Len(t, core.Store.Scripts(), 2)
	for _, s := range core.Store.Scripts() {
		assert.Contains(t, []string{"b1", "b2"}, s.Name)
	}
}

func TestScriptEditsReachTheStore(t *testing.T) {
	core, _ := newCore(t)
	ctx := testCtx(t)
	createFolders(t, ctx, core, 1)
	folder := core.Store.Folders()[0].ID
	require.NoError(t, core.Do(ctx, message.SelectFolder{FolderID: folder}))
	require.NoError(t, core.Do(ctx, message.AddScriptToFolder{FolderID: folder, Name: "greet", Command: "echo hi"}))
	require.Len(t, core.Store.Scripts(), 1)
	id := core.Store.Scripts()[0].ID

	require.NoError(t, core.Do(ctx, message.UpdateScript{ScriptID: id, NewCommand: "echo hello"}))
	require.NoError(t, core.Do(ctx, message.UpdateScriptName{ScriptID: id, NewName: "hello"}))
	script := core.Store.Scripts()[0]
	assert.Equal(t, "hello", script.Name)
	assert.Equal(t, "echo hello", script.Command)

	require.NoError(t, core.Do(ctx, message.DeleteScript{ScriptID: id}))
	assert.Empty(t, core.Store.Scripts())

	err := core.Do(ctx, message.DeleteScript{ScriptID: id})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRenameFolderIsIdempotent(t *testing.T) {
	core, store := newCore(t)
	ctx := testCtx(t)
	createFolders(t, ctx, core, 1)
	id := core.Store.Folders()[0].ID

	require.NoError(t, core.Do(ctx, message.RenameFolder{FolderID: id, NewName: "Deploy"}))
	require.NoError(t, core.Do(ctx, message.RenameFolder{FolderID: id, NewName: "Deploy"}))

	assert.Equal(t, []string{"Deploy"}, names(core.Store.Folders()))
	persisted, err := store.GetAllFolders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Deploy"}, names(persisted))

	err = core.Do(ctx, message.RenameFolder{FolderID: id + 100, NewName: "ghost"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLoadStateRestoresLastOpenedFolder(t *testing.T) {
	ctx := testCtx(t)
	dbPath := filepath.Join(t.TempDir(), "scripts.db")

	first, closeFirst, err := Open(Config{DBPath: dbPath, Workers: 2})
	require.NoError(t, err)
	createFolders(t, ctx, first, 2)
	target := first.Store.Folders()[1].ID
	require.NoError(t, first.Do(ctx, message.AddScriptToFolder{FolderID: target, Name: "s", Command: "true"}))
	require.NoError(t, first.Do(ctx, message.SelectFolder{FolderID: target}))
	closeFirst()

	second, closeSecond, err := Open(Config{DBPath: dbPath, Workers: 2})
	require.NoError(t, err)
	defer closeSecond()
	require.NoError(t, second.Do(ctx, message.LoadState{}))

	assert.Equal(t, []string{"Folder 1", "Folder 2"}, names(second.Store.Folders()))
	selected, ok := second.Store.SelectedFolderID()
	require.True(t, ok)
	assert.Equal(t, target, selected)
	require.Len(t, second.Store.Scripts(), 1)
	assert.Equal(t, "s", second.Store.Scripts()[0].Name)
}

func TestExternalChangeRefreshesStore(t *testing.T) {
	core, store := newCore(t)
	ctx := testCtx(t)
	createFolders(t, ctx, core, 1)

	_, err := store.CreateFolder(ctx, "Elsewhere", 1)
	require.NoError(t, err)
	core.Dispatcher.DispatchEvent(message.ExternalChange{Path: store.Path()})
	_, err = core.Pump.Settle(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"Folder 1", "Elsewhere"}, names(core.Store.Folders()))
}
