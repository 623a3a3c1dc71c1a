package ui_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomicstack/shell-script-manager/internal/app"
	"github.com/atomicstack/shell-script-manager/internal/backend"
	"github.com/atomicstack/shell-script-manager/internal/message"
	"github.com/atomicstack/shell-script-manager/internal/model"
	"github.com/atomicstack/shell-script-manager/internal/testutil"
	"github.com/atomicstack/shell-script-manager/internal/ui"
)

type launcher struct {
	mu   sync.Mutex
	runs []string
}

func (l *launcher) Run(command string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs = append(l.runs, command)
}

func (l *launcher) Runs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.runs...)
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	core   *app.Core
	h      *ui.Harness
	runner *launcher
}

func newFixture(t *testing.T, opts ...func(*ui.Options)) *fixture {
	t.Helper()
	core := testutil.NewMemoryCore(t, 2)
	f := &fixture{t: t, ctx: testutil.Context(t), core: core, runner: &launcher{}}
	options := ui.Options{
		Store:        core.Store,
		Reducer:      core.Reducer,
		Dispatcher:   core.Dispatcher,
		Pump:         core.Pump,
		Runner:       f.runner,
		Width:        100,
		Height:       24,
		ShowFooter:   true,
		Verbose:      true,
		ManualFrames: true,
	}
	for _, opt := range opts {
		opt(&options)
	}
	f.h = ui.NewHarness(ui.NewModel(options))
	return f
}

// seed creates n folders through the core and lets the model pick them up.
func (f *fixture) seed(n int) {
	f.t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(f.t, f.core.Do(f.ctx, message.CreateFolder{}))
	}
	f.h.Frame()
}

func (f *fixture) settle() {
	f.t.Helper()
	require.NoError(f.t, f.h.Settle(f.ctx))
}

func (f *fixture) folderNames() []string {
	folders := f.core.Store.Folders()
	out := make([]string, len(folders))
	for i, folder := range folders {
		out[i] = folder.Name
	}
	return out
}

// selectFirstFolder opens the first folder and leaves focus on its scripts.
func (f *fixture) selectFirstFolder() {
	f.t.Helper()
	f.h.Key("enter")
	f.settle()
	require.Equal(f.t, ui.ColumnScripts, f.h.Model().Focus())
}

func (f *fixture) addScript(name, command string) {
	f.t.Helper()
	f.h.Key("a")
	require.Equal(f.t, ui.ModeForm, f.h.Model().Mode())
	f.h.Type(name)
	f.h.Key("tab")
	f.h.Type(command)
	f.h.Key("enter")
	f.settle()
}

func (f *fixture) scripts() []model.Script {
	return f.core.Store.Scripts()
}

func TestCreateFolderAppearsInView(t *testing.T) {
	f := newFixture(t)

	f.h.Key("n")
	f.h.Key("n")
	f.settle()

	assert.Equal(t, []string{"Folder 1", "Folder 2"}, f.folderNames())
	view := f.h.View()
	assert.Contains(t, view, "Folder 1")
	assert.Contains(t, view, "Folder 2")
	assert.Contains(t, view, "Select a folder")
	assert.Zero(t, f.h.Model().Pending())
}

func TestEnterSelectsFolderAndFocusesScripts(t *testing.T) {
	f := newFixture(t)
	f.seed(2)

	f.selectFirstFolder()

	id, ok := f.core.Store.SelectedFolderID()
	require.True(t, ok)
	assert.Equal(t, f.core.Store.Folders()[0].ID, id)
	assert.Contains(t, f.h.View(), "Scripts · Folder 1")
}

func TestTabNeedsSelectedFolder(t *testing.T) {
	f := newFixture(t)
	f.seed(1)

	f.h.Key("tab")
	assert.Equal(t, ui.ColumnFolders, f.h.Model().Focus())

	f.selectFirstFolder()
	f.h.Key("tab")
	assert.Equal(t, ui.ColumnFolders, f.h.Model().Focus())
	f.h.Key("tab")
	assert.Equal(t, ui.ColumnScripts, f.h.Model().Focus())
}

func TestAddScriptThroughForm(t *testing.T) {
	f := newFixture(t)
	f.seed(1)
	f.selectFirstFolder()

	f.addScript("build", "make all")

	assert.Equal(t, ui.ModeBrowse, f.h.Model().Mode())
	scripts := f.scripts()
	require.Len(t, scripts, 1)
	assert.Equal(t, "build", scripts[0].Name)
	assert.Equal(t, "make all", scripts[0].Command)
	view := f.h.View()
	assert.Contains(t, view, "build")
	assert.Contains(t, view, "$ make all")
}

func TestAddScriptRequiresEveryField(t *testing.T) {
	f := newFixture(t)
	f.seed(1)
	f.selectFirstFolder()

	f.h.Key("a")
	f.h.Key("enter")
	assert.Equal(t, ui.ModeForm, f.h.Model().Mode())
	assert.Contains(t, f.h.View(), "Name cannot be empty")

	f.h.Type("lint")
	f.h.Key("enter")
	assert.Equal(t, ui.ModeForm, f.h.Model().Mode())
	assert.Contains(t, f.h.View(), "Command cannot be empty")

	f.h.Key("esc")
	assert.Equal(t, ui.ModeBrowse, f.h.Model().Mode())
	f.settle()
	assert.Empty(t, f.scripts())
}

func TestAddScriptWithoutSelectionReportsError(t *testing.T) {
	f := newFixture(t)
	f.seed(1)

	f.h.Key("a")

	assert.Equal(t, ui.ModeBrowse, f.h.Model().Mode())
	assert.Contains(t, f.h.View(), "select a folder first")
}

func TestEnterRunsScriptUnderCursor(t *testing.T) {
	f := newFixture(t)
	f.seed(1)
	f.selectFirstFolder()
	f.addScript("hello", "echo hello")

	f.h.Key("enter")

	assert.Equal(t, []string{"echo hello"}, f.runner.Runs())
	assert.Contains(t, f.h.View(), "Started hello")
}

func TestCopyScriptCommand(t *testing.T) {
	var copied []string
	f := newFixture(t, func(o *ui.Options) {
		o.Clipboard = func(text string) error {
			copied = append(copied, text)
			return nil
		}
	})
	f.seed(1)

	// nothing to copy from the folders column
	f.h.Key("y")
	assert.Empty(t, copied)

	f.selectFirstFolder()
	f.addScript("deploy", "make deploy")
	f.h.Key("y")

	assert.Equal(t, []string{"make deploy"}, copied)
	assert.Contains(t, f.h.View(), "Copied deploy to clipboard")
}

func TestCopyScriptReportsClipboardFailure(t *testing.T) {
	f := newFixture(t, func(o *ui.Options) {
		o.Clipboard = func(string) error { return errors.New("no display") }
	})
	f.seed(1)
	f.selectFirstFolder()
	f.addScript("deploy", "make deploy")

	f.h.Key("y")

	view := f.h.View()
	assert.Contains(t, view, "Error: copy deploy: no display")
	assert.NotContains(t, view, "Copied")
}

func TestEditScriptCommand(t *testing.T) {
	f := newFixture(t)
	f.seed(1)
	f.selectFirstFolder()
	f.addScript("test", "go test")

	f.h.Key("e")
	require.Equal(t, ui.ModeForm, f.h.Model().Mode())
	assert.Contains(t, f.h.View(), "Edit test")
	f.h.Send(tea.KeyMsg{Type: tea.KeyCtrlU})
	f.h.Type("go test ./...")
	f.h.Key("enter")
	f.settle()

	scripts := f.scripts()
	require.Len(t, scripts, 1)
	assert.Equal(t, "go test ./...", scripts[0].Command)
	_, editing := f.core.Store.ScriptToEdit()
	assert.False(t, editing)
}

func TestRenameScript(t *testing.T) {
	f := newFixture(t)
	f.seed(1)
	f.selectFirstFolder()
	f.addScript("tst", "go test")

	f.h.Key("r")
	f.h.Send(tea.KeyMsg{Type: tea.KeyCtrlU})
	f.h.Type("test")
	f.h.Key("enter")
	f.settle()

	require.Len(t, f.scripts(), 1)
	assert.Equal(t, "test", f.scripts()[0].Name)
}

func TestDeleteScriptAfterConfirm(t *testing.T) {
	f := newFixture(t)
	f.seed(1)
	f.selectFirstFolder()
	f.addScript("gone", "true")

	f.h.Key("d")
	require.Equal(t, ui.ModeConfirm, f.h.Model().Mode())
	assert.Contains(t, f.h.View(), `Delete script "gone"?`)

	f.h.Key("y")
	f.settle()

	assert.Empty(t, f.scripts())
	assert.Equal(t, ui.ModeBrowse, f.h.Model().Mode())
}

func TestRenameFolderTracksTextInStore(t *testing.T) {
	f := newFixture(t)
	f.seed(1)

	f.h.Key("r")
	require.Equal(t, ui.ModeForm, f.h.Model().Mode())
	assert.Equal(t, "Folder 1", f.core.Store.RenameText())

	f.h.Send(tea.KeyMsg{Type: tea.KeyCtrlU})
	f.h.Type("Tools")
	assert.Equal(t, "Tools", f.core.Store.RenameText())

	f.h.Key("enter")
	f.settle()

	assert.Equal(t, []string{"Tools"}, f.folderNames())
	_, renaming := f.core.Store.FolderToRename()
	assert.False(t, renaming)
	assert.Empty(t, f.core.Store.RenameText())
}

func TestRenameFormStaysOpenUntilCompletion(t *testing.T) {
	f := newFixture(t)
	f.seed(1)

	f.h.Key("r")
	f.h.Send(tea.KeyMsg{Type: tea.KeyCtrlU})
	f.h.Type("Tools")
	f.h.Key("enter")

	assert.Equal(t, ui.ModeForm, f.h.Model().Mode())
	assert.True(t, f.h.Model().Awaiting())
	_, renaming := f.core.Store.FolderToRename()
	assert.True(t, renaming)
	assert.Contains(t, f.h.View(), "working…")

	// input is ignored while the rename is in flight
	f.h.Type("xyz")
	f.h.Key("esc")
	assert.Equal(t, ui.ModeForm, f.h.Model().Mode())

	f.settle()

	assert.Equal(t, ui.ModeBrowse, f.h.Model().Mode())
	assert.False(t, f.h.Model().Awaiting())
	assert.Equal(t, []string{"Tools"}, f.folderNames())
	_, renaming = f.core.Store.FolderToRename()
	assert.False(t, renaming)
}

func TestDeleteConfirmWaitsAcrossFrames(t *testing.T) {
	f := newFixture(t)
	f.seed(2)

	f.h.Key("d")
	f.h.Key("y")
	require.Equal(t, ui.ModeConfirm, f.h.Model().Mode())
	require.True(t, f.h.Model().Awaiting())

	// the first frame only hands the command to a worker
	f.h.Frame()
	assert.Equal(t, ui.ModeConfirm, f.h.Model().Mode())
	assert.Equal(t, 1, f.h.Model().Pending())

	f.settle()
	assert.Equal(t, ui.ModeBrowse, f.h.Model().Mode())
	assert.Len(t, f.core.Store.Folders(), 1)
}

func TestEmptyRenameClosesWithoutDispatch(t *testing.T) {
	f := newFixture(t)
	f.seed(1)

	f.h.Key("r")
	f.h.Send(tea.KeyMsg{Type: tea.KeyCtrlU})
	f.h.Key("enter")

	assert.Equal(t, ui.ModeBrowse, f.h.Model().Mode())
	assert.Zero(t, f.h.Model().Pending())
	f.settle()
	assert.Equal(t, []string{"Folder 1"}, f.folderNames())
}

func TestDeleteFolderAfterConfirm(t *testing.T) {
	f := newFixture(t)
	f.seed(2)

	f.h.Key("d")
	require.Equal(t, ui.ModeConfirm, f.h.Model().Mode())
	assert.Contains(t, f.h.View(), `Delete folder "Folder 1"`)

	f.h.Key("y")
	f.settle()

	folders := f.core.Store.Folders()
	require.Len(t, folders, 1)
	assert.Equal(t, "Folder 2", folders[0].Name)
	assert.Equal(t, 0, folders[0].Ordering)
}

func TestDeleteFolderCancelled(t *testing.T) {
	f := newFixture(t)
	f.seed(1)

	f.h.Key("d")
	f.h.Key("n")

	assert.Equal(t, ui.ModeBrowse, f.h.Model().Mode())
	_, pending := f.core.Store.FolderToDelete()
	assert.False(t, pending)
	f.settle()
	assert.Len(t, f.core.Store.Folders(), 1)
}

func TestConfirmClosesWhenFolderDisappears(t *testing.T) {
	f := newFixture(t)
	f.seed(2)

	f.h.Key("d")
	require.Equal(t, ui.ModeConfirm, f.h.Model().Mode())

	id := f.core.Store.Folders()[0].ID
	f.core.Dispatcher.DispatchCommand(message.DeleteFolder{FolderID: id})
	f.settle()

	assert.Equal(t, ui.ModeBrowse, f.h.Model().Mode())
	assert.NotContains(t, f.h.View(), "Delete folder")
}

func TestReorderFolderWithShiftKeys(t *testing.T) {
	f := newFixture(t)
	f.seed(3)

	f.h.Key("J")
	f.settle()
	assert.Equal(t, []string{"Folder 2", "Folder 1", "Folder 3"}, f.folderNames())

	// the cursor follows the moved folder
	f.h.Key("J")
	f.settle()
	assert.Equal(t, []string{"Folder 2", "Folder 3", "Folder 1"}, f.folderNames())

	f.h.Key("J")
	f.settle()
	assert.Equal(t, []string{"Folder 2", "Folder 3", "Folder 1"}, f.folderNames())

	f.h.Key("K")
	f.settle()
	assert.Equal(t, []string{"Folder 2", "Folder 1", "Folder 3"}, f.folderNames())
	assert.True(t, model.IsDense(f.core.Store.Folders()))
}

func TestReorderRefusedWhileFiltering(t *testing.T) {
	f := newFixture(t)
	f.seed(3)

	f.h.Key("/")
	f.h.Key("2")
	f.h.Key("enter")
	f.h.Key("J")

	assert.Contains(t, f.h.View(), "clear the filter to reorder folders")
	assert.Zero(t, f.h.Model().Pending())
}

func TestFilterFolders(t *testing.T) {
	f := newFixture(t)
	f.seed(3)

	f.h.Key("/")
	require.Equal(t, ui.ModeFilter, f.h.Model().Mode())
	f.h.Key("3")

	view := f.h.View()
	assert.Contains(t, view, "Folder 3")
	assert.NotContains(t, view, "Folder 1")

	f.h.Key("esc")
	assert.Equal(t, ui.ModeBrowse, f.h.Model().Mode())
	assert.Contains(t, f.h.View(), "Folder 1")
}

func TestFilterWithoutMatches(t *testing.T) {
	f := newFixture(t)
	f.seed(1)

	f.h.Key("/")
	f.h.Type("zzz")

	assert.Contains(t, f.h.View(), `No matches for "zzz"`)
}

func TestFailedCommandReachesStatusLine(t *testing.T) {
	f := newFixture(t)
	f.seed(1)

	f.h.Key("d")
	require.Equal(t, ui.ModeConfirm, f.h.Model().Mode())
	id := f.core.Store.Folders()[0].ID
	require.NoError(t, f.core.Do(f.ctx, message.DeleteFolder{FolderID: id}))

	// no frame has run, so the dialog still targets the deleted folder
	f.h.Key("y")
	f.settle()

	view := f.h.View()
	assert.Contains(t, view, "Error: folder:delete")
	assert.Contains(t, view, "failed")
	assert.Equal(t, ui.ModeBrowse, f.h.Model().Mode())
	assert.Zero(t, f.h.Model().Pending())
	assert.Empty(t, f.core.Store.Folders())
}

func TestWatchEventsRefreshAndReportErrors(t *testing.T) {
	changes := make(chan backend.Event, 2)
	f := newFixture(t, func(o *ui.Options) { o.Changes = changes })
	f.seed(1)

	require.NoError(t, f.core.Repo.RenameFolder(f.ctx, f.core.Store.Folders()[0].ID, "Renamed elsewhere"))
	changes <- backend.Event{Path: "scripts.db"}
	changes <- backend.Event{Err: errors.New("watch failed")}
	close(changes)

	f.h.Start()
	f.settle()

	assert.Equal(t, []string{"Renamed elsewhere"}, f.folderNames())
	assert.Contains(t, f.h.View(), "Watch: watch failed")
}

func TestQuitKeys(t *testing.T) {
	for _, key := range []string{"q", "ctrl+c", "esc"} {
		t.Run(key, func(t *testing.T) {
			f := newFixture(t)
			f.h.Key(key)
			assert.True(t, f.h.Quit())
		})
	}
}

func TestEscClearsFilterBeforeQuitting(t *testing.T) {
	f := newFixture(t)
	f.seed(2)

	f.h.Key("/")
	f.h.Key("2")
	f.h.Key("enter")
	f.h.Key("esc")
	assert.False(t, f.h.Quit())
	assert.Contains(t, f.h.View(), "Folder 1")

	f.h.Key("esc")
	assert.True(t, f.h.Quit())
}
