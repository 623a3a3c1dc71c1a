package app

import (
	"context"

	"github.com/atomicstack/shell-script-manager/internal/command"
	"github.com/atomicstack/shell-script-manager/internal/data/dispatcher"
	"github.com/atomicstack/shell-script-manager/internal/guard"
	"github.com/atomicstack/shell-script-manager/internal/message"
	"github.com/atomicstack/shell-script-manager/internal/pump"
	"github.com/atomicstack/shell-script-manager/internal/repository"
	"github.com/atomicstack/shell-script-manager/internal/state"
	"github.com/atomicstack/shell-script-manager/internal/worker"
)

// Core is the dispatch machinery shared by the TUI and the headless
// subcommands: one queue, one store, one worker pool.
type Core struct {
	Repo       repository.Repository
	Store      *state.Store
	Reducer    *state.Reducer
	Dispatcher *message.Dispatcher
	Pool       *worker.Pool
	Bus        *command.Bus
	Events     *dispatcher.Dispatcher
	Pump       *pump.Pump
}

// NewCore wires the collaborators around repo. workers below one means one.
func NewCore(repo repository.Repository, workers int) *Core {
	if workers < 1 {
		workers = 1
	}
	store := state.New()
	reducer := state.NewReducer(store)
	queue := message.NewQueue()
	msgs := message.NewDispatcher(queue)
	pool := worker.New(workers)
	locks := guard.NewLocks()
	clock := &guard.Clock{}

	bus := command.New(command.Deps{
		Repo:        repo,
		Dispatcher:  msgs,
		Pool:        pool,
		Locks:       locks,
		FolderClock: clock,
	})
	handler := dispatcher.New(dispatcher.Deps{
		Reducer:     reducer,
		Repo:        repo,
		Pool:        pool,
		Locks:       locks,
		FolderClock: clock,
	})
	return &Core{
		Repo:       repo,
		Store:      store,
		Reducer:    reducer,
		Dispatcher: msgs,
		Pool:       pool,
		Bus:        bus,
		Events:     handler,
		Pump:       pump.New(queue, bus, handler, pool),
	}
}

// Do dispatches cmd and drains until everything it caused has been applied,
// returning the command's outcome.
func (c *Core) Do(ctx context.Context, cmd message.Command) error {
	_, reply := c.Dispatcher.DispatchCommandWithReply(cmd)
	if _, err := c.Pump.Settle(ctx); err != nil {
		return err
	}
	select {
	case done := <-reply:
		return done.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker pool after in-flight tasks finish.
func (c *Core) Close() {
	c.Pool.Close()
}
