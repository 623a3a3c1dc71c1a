// Package dispatcher folds events into the shared state store, either by
// patching it locally or by re-querying the repository.
package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/atomicstack/shell-script-manager/internal/guard"
	"github.com/atomicstack/shell-script-manager/internal/logging"
	"github.com/atomicstack/shell-script-manager/internal/logging/events"
	"github.com/atomicstack/shell-script-manager/internal/message"
	"github.com/atomicstack/shell-script-manager/internal/repository"
	"github.com/atomicstack/shell-script-manager/internal/state"
	"github.com/atomicstack/shell-script-manager/internal/worker"
)

// Policy says how an event reaches the store.
type Policy int

const (
	// PolicyLocalPatch applies the event's own data on the drain loop.
	PolicyLocalPatch Policy = iota
	// PolicyRequery reads authoritative data on the worker pool.
	PolicyRequery
	// PolicyLocalThenRequery patches locally, then re-queries dependent data.
	PolicyLocalThenRequery
)

func (p Policy) String() string {
	switch p {
	case PolicyLocalPatch:
		return "local"
	case PolicyRequery:
		return "requery"
	case PolicyLocalThenRequery:
		return "local+requery"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// PolicyFor returns the policy applied to evt.
func PolicyFor(evt message.Event) Policy {
	switch evt.(type) {
	case message.FolderDeleted, message.FolderRenamed, message.FoldersReordered, message.ScriptDeleted:
		return PolicyLocalPatch
	case message.FolderSelected, message.StateLoaded:
		return PolicyLocalThenRequery
	default:
		return PolicyRequery
	}
}

// Result reports which parts of the store an event touched synchronously and
// whether background re-queries were started.
type Result struct {
	FoldersUpdated   bool
	ScriptsUpdated   bool
	SelectionUpdated bool
	AppStateUpdated  bool
	Requeried        bool
}

// Deps are the collaborators a Dispatcher needs. Locks and FolderClock must be
// the same instances the command bus uses.
type Deps struct {
	Reducer     *state.Reducer
	Repo        repository.Repository
	Pool        *worker.Pool
	Locks       *guard.Locks
	FolderClock *guard.Clock
}

type Dispatcher struct {
	reducer *state.Reducer
	store   *state.Store
	repo    repository.Repository
	pool    *worker.Pool
	locks   *guard.Locks
	clock   *guard.Clock
}

func New(deps Deps) *Dispatcher {
	return &Dispatcher{
		reducer: deps.Reducer,
		store:   deps.Reducer.Store(),
		repo:    deps.Repo,
		pool:    deps.Pool,
		locks:   deps.Locks,
		clock:   deps.FolderClock,
	}
}

// Handle applies evt. Local patches complete before Handle returns;
// re-queries run on the worker pool and write through the reducer when they
// finish.
func (d *Dispatcher) Handle(evt message.Event) Result {
	var res Result
	switch e := evt.(type) {
	case message.FolderAdded:
		d.requeryFolders(e.Kind())
		res.Requeried = true

	case message.FolderSelected:
		d.reducer.SelectFolder(e.FolderID)
		res.SelectionUpdated = true
		res.ScriptsUpdated = true
		d.requeryAppState(e.Kind())
		d.requeryScripts(e.Kind(), e.FolderID)
		res.Requeried = true

	case message.FolderDeleted:
		applied, err := d.reducer.DeleteFolder(e.FolderID, e.Revision)
		res.FoldersUpdated = applied
		res.SelectionUpdated = applied
		res.Requeried = d.fallBack(e, applied, err)

	case message.FolderRenamed:
		applied, err := d.reducer.RenameFolder(e.FolderID, e.NewName, e.Revision)
		res.FoldersUpdated = applied
		res.Requeried = d.fallBack(e, applied, err)

	case message.FoldersReordered:
		applied, err := d.reducer.InsertFolderIntoIndex(e.FromIndex, e.ToIndex, e.Revision)
		res.FoldersUpdated = applied
		res.Requeried = d.fallBack(e, applied, err)

	case message.ScriptAdded, message.ScriptUpdated:
		if id, ok := d.store.SelectedFolderID(); ok {
			d.requeryScripts(evt.Kind(), id)
			res.Requeried = true
		}

	case message.ScriptDeleted:
		res.ScriptsUpdated = d.reducer.DeleteScriptFromSelectedFolder(e.ScriptID)
		events.Store.Patch(e.Kind(), res.ScriptsUpdated)

	case message.StateLoaded:
		res.FoldersUpdated = d.reducer.SetFolderList(e.Folders, e.Revision)
		d.reducer.SetAppState(e.AppState)
		res.AppStateUpdated = true
		if last, ok := e.AppState.LastOpened(); ok && containsFolder(d.store, last) {
			d.reducer.SelectFolder(last)
			res.SelectionUpdated = true
			d.requeryScripts(e.Kind(), last)
			res.Requeried = true
		}

	case message.ExternalChange:
		d.requeryFolders(e.Kind())
		d.requeryAppState(e.Kind())
		if id, ok := d.store.SelectedFolderID(); ok {
			d.requeryScripts(e.Kind(), id)
		}
		res.Requeried = true
	}
	return res
}

// fallBack traces a local patch and schedules a folder re-query when the
// patch could not be applied on top of the current list.
func (d *Dispatcher) fallBack(evt message.Event, applied bool, err error) bool {
	events.Store.Patch(evt.Kind(), applied)
	if err == nil {
		return false
	}
	if errors.Is(err, state.ErrRevisionGap) {
		events.Store.RevisionGap(evt.Kind(), err)
	} else {
		logging.Error(fmt.Errorf("apply %s: %w", evt.Kind(), err))
	}
	d.requeryFolders(evt.Kind())
	return true
}

func (d *Dispatcher) spawn(label string, keys []guard.Key, fn func(ctx context.Context) error) {
	err := d.pool.Go(label, func(ctx context.Context) {
		release := d.locks.Acquire(keys...)
		defer release()
		if err := fn(ctx); err != nil {
			logging.Error(fmt.Errorf("%s: %w", label, err))
		}
	})
	if err != nil {
		logging.Error(fmt.Errorf("%s: %w", label, err))
	}
}

func (d *Dispatcher) requeryFolders(reason string) {
	events.Store.Requery(reason, "folders")
	d.spawn("requery:folders", []guard.Key{guard.KeyFolders}, func(ctx context.Context) error {
		folders, err := d.repo.GetAllFolders(ctx)
		if err != nil {
			return err
		}
		if d.reducer.SetFolderList(folders, d.clock.Current()) {
			d.reducer.ClearSelectionIfMissing()
		}
		return nil
	})
}

func (d *Dispatcher) requeryScripts(reason string, folderID int64) {
	events.Store.Requery(reason, "scripts")
	d.spawn("requery:scripts", []guard.Key{guard.KeyScripts}, func(ctx context.Context) error {
		scripts, err := d.repo.GetScriptsForFolder(ctx, folderID)
		if err != nil {
			return err
		}
		d.reducer.SetScriptsOfSelectedFolder(folderID, scripts)
		return nil
	})
}

func (d *Dispatcher) requeryAppState(reason string) {
	events.Store.Requery(reason, "app_state")
	d.spawn("requery:app_state", []guard.Key{guard.KeyAppState}, func(ctx context.Context) error {
		appState, err := d.repo.GetAppState(ctx)
		if err != nil {
			return err
		}
		d.reducer.SetAppState(appState)
		return nil
	})
}

func containsFolder(s state.Reader, id int64) bool {
	for _, f := range s.Folders() {
		if f.ID == id {
			return true
		}
	}
	return false
}
