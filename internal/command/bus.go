// Package command executes queued commands against the repository.
package command

import (
	"context"
	"fmt"

	"github.com/atomicstack/shell-script-manager/internal/guard"
	"github.com/atomicstack/shell-script-manager/internal/logging"
	"github.com/atomicstack/shell-script-manager/internal/logging/events"
	"github.com/atomicstack/shell-script-manager/internal/message"
	"github.com/atomicstack/shell-script-manager/internal/model"
	"github.com/atomicstack/shell-script-manager/internal/repository"
	"github.com/atomicstack/shell-script-manager/internal/worker"
)

// Deps are the collaborators a Bus needs.
type Deps struct {
	Repo        repository.Repository
	Dispatcher  *message.Dispatcher
	Pool        *worker.Pool
	Locks       *guard.Locks
	FolderClock *guard.Clock
}

// Bus runs each command as one asynchronous task.
type Bus struct {
	repo     repository.Repository
	dispatch *message.Dispatcher
	pool     *worker.Pool
	locks    *guard.Locks
	clock    *guard.Clock
}

// New initialises a command bus.
func New(deps Deps) *Bus {
	locks := deps.Locks
	if locks == nil {
		locks = guard.NewLocks()
	}
	clock := deps.FolderClock
	if clock == nil {
		clock = &guard.Clock{}
	}
	return &Bus{
		repo:     deps.Repo,
		dispatch: deps.Dispatcher,
		pool:     deps.Pool,
		locks:    locks,
		clock:    clock,
	}
}

// Execute schedules env and returns immediately. On success the command's
// event is queued while its record locks are still held; a Completion is
// queued afterwards whatever the outcome.
func (b *Bus) Execute(env message.CommandEnvelope) {
	id, label := env.ID.String(), env.Command.Label()
	err := b.pool.Go(label, func(ctx context.Context) {
		events.Command.Start(id, label)
		release := b.locks.Acquire(lockKeys(env.Command)...)
		evt, err := b.run(ctx, env.Command)
		if err != nil {
			logging.Error(fmt.Errorf("%s: %w", label, err))
		} else if evt != nil {
			b.dispatch.DispatchEventFor(env.ID, evt)
		}
		release()
		events.Command.Result(id, label, err)
		b.dispatch.Complete(env.Complete(err))
	})
	if err != nil {
		events.Command.Skip(id, label, err.Error())
		b.dispatch.Complete(env.Complete(err))
	}
}

// lockKeys lists the record classes cmd reads or writes.
func lockKeys(cmd message.Command) []guard.Key {
	switch cmd.(type) {
	case message.CreateFolder, message.RenameFolder, message.ReorderFolders:
		return []guard.Key{guard.KeyFolders}
	case message.DeleteFolder:
		return []guard.Key{guard.KeyAppState, guard.KeyFolders, guard.KeyScripts}
	case message.SelectFolder:
		return []guard.Key{guard.KeyAppState}
	case message.LoadState:
		return []guard.Key{guard.KeyAppState, guard.KeyFolders}
	default:
		return []guard.Key{guard.KeyScripts}
	}
}

func (b *Bus) run(ctx context.Context, cmd message.Command) (message.Event, error) {
	switch c := cmd.(type) {
	case message.CreateFolder:
		return b.createFolder(ctx)
	case message.SelectFolder:
		return b.selectFolder(ctx, c)
	case message.DeleteFolder:
		return b.deleteFolder(ctx, c)
	case message.RenameFolder:
		return b.renameFolder(ctx, c)
	case message.ReorderFolders:
		return b.reorderFolders(ctx, c)
	case message.AddScriptToFolder:
		return b.addScript(ctx, c)
	case message.UpdateScript:
		if err := b.repo.UpdateScriptCommand(ctx, c.ScriptID, c.NewCommand); err != nil {
			return nil, err
		}
		events.Script.UpdateCommand(c.ScriptID)
		return message.ScriptUpdated{ScriptID: c.ScriptID}, nil
	case message.UpdateScriptName:
		if err := b.repo.UpdateScriptName(ctx, c.ScriptID, c.NewName); err != nil {
			return nil, err
		}
		events.Script.Rename(c.ScriptID, c.NewName)
		return message.ScriptUpdated{ScriptID: c.ScriptID}, nil
	case message.DeleteScript:
		if err := b.repo.DeleteScript(ctx, c.ScriptID); err != nil {
			return nil, err
		}
		events.Script.Delete(c.ScriptID)
		return message.ScriptDeleted{ScriptID: c.ScriptID}, nil
	case message.LoadState:
		return b.loadState(ctx)
	default:
		return nil, fmt.Errorf("unsupported command %T", cmd)
	}
}

func (b *Bus) createFolder(ctx context.Context) (message.Event, error) {
	count, err := b.repo.GetFolderCount(ctx)
	if err != nil {
		return nil, err
	}
	name := model.DefaultFolderName(count)
	if _, err := b.repo.CreateFolder(ctx, name, count); err != nil {
		return nil, err
	}
	b.clock.Next()
	events.Folder.Create(name, count)
	return message.FolderAdded{Name: name}, nil
}

func (b *Bus) selectFolder(ctx context.Context, c message.SelectFolder) (message.Event, error) {
	if err := b.repo.UpsertAppStateLastFolder(ctx, c.FolderID); err != nil {
		return nil, err
	}
	logging.Info("updated last opened folder id to %d", c.FolderID)
	events.Folder.Select(c.FolderID)
	return message.FolderSelected{FolderID: c.FolderID}, nil
}

// deleteFolder removes the folder and renumbers the survivors by ascending
// prior ordering, atomically when the repository supports it.
func (b *Bus) deleteFolder(ctx context.Context, c message.DeleteFolder) (message.Event, error) {
	var remaining int
	err := repository.RunInTx(ctx, b.repo, func(r repository.Repository) error {
		if err := r.DeleteFolder(ctx, c.FolderID); err != nil {
			return err
		}
		folders, err := r.GetAllFolders(ctx)
		if err != nil {
			return err
		}
		model.SortByOrdering(folders)
		remaining = len(folders)
		return r.BatchUpdateFolderOrder(ctx, model.Renumber(folders))
	})
	if err != nil {
		return nil, err
	}
	rev := b.clock.Next()
	events.Folder.Delete(c.FolderID, remaining)
	return message.FolderDeleted{FolderID: c.FolderID, Revision: rev}, nil
}

func (b *Bus) renameFolder(ctx context.Context, c message.RenameFolder) (message.Event, error) {
	if err := b.repo.RenameFolder(ctx, c.FolderID, c.NewName); err != nil {
		return nil, err
	}
	rev := b.clock.Next()
	events.Folder.Rename(c.FolderID, c.NewName)
	return message.FolderRenamed{FolderID: c.FolderID, NewName: c.NewName, Revision: rev}, nil
}

func (b *Bus) reorderFolders(ctx context.Context, c message.ReorderFolders) (message.Event, error) {
	err := repository.RunInTx(ctx, b.repo, func(r repository.Repository) error {
		folders, err := r.GetAllFolders(ctx)
		if err != nil {
			return err
		}
		moved, err := model.Move(folders, c.FromIndex, c.ToIndex)
		if err != nil {
			return err
		}
		return r.BatchUpdateFolderOrder(ctx, model.Renumber(moved))
	})
	if err != nil {
		return nil, err
	}
	rev := b.clock.Next()
	events.Folder.Reorder(c.FromIndex, c.ToIndex)
	return message.FoldersReordered{FromIndex: c.FromIndex, ToIndex: c.ToIndex, Revision: rev}, nil
}

func (b *Bus) addScript(ctx context.Context, c message.AddScriptToFolder) (message.Event, error) {
	var id int64
	err := repository.RunInTx(ctx, b.repo, func(r repository.Repository) error {
		var err error
		if id, err = r.CreateScript(ctx, c.Name, c.Command); err != nil {
			return err
		}
		return r.LinkScriptToFolder(ctx, id, c.FolderID)
	})
	if err != nil {
		return nil, err
	}
	events.Script.Add(c.FolderID, id, c.Name)
	return message.ScriptAdded{FolderID: c.FolderID}, nil
}

func (b *Bus) loadState(ctx context.Context) (message.Event, error) {
	folders, err := b.repo.GetAllFolders(ctx)
	if err != nil {
		return nil, err
	}
	appState, err := b.repo.GetAppState(ctx)
	if err != nil {
		return nil, err
	}
	return message.StateLoaded{Folders: folders, AppState: appState, Revision: b.clock.Current()}, nil
}
