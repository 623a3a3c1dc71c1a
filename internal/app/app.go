package app

import (
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/atomicstack/shell-script-manager/internal/backend"
	"github.com/atomicstack/shell-script-manager/internal/logging"
	"github.com/atomicstack/shell-script-manager/internal/message"
	"github.com/atomicstack/shell-script-manager/internal/repository"
	"github.com/atomicstack/shell-script-manager/internal/runner"
	"github.com/atomicstack/shell-script-manager/internal/ui"
)

const watchInterval = 500 * time.Millisecond

// Config describes user-provided application options.
type Config struct {
	DBPath        string
	Width         int
	Height        int
	ShowFooter    bool
	Verbose       bool
	Workers       int
	FrameInterval time.Duration
	Runner        runner.Mode
	TmuxSocket    string
	Watch         bool
}

// Open opens the database and assembles a Core around it. The returned
// function closes both.
func Open(cfg Config) (*Core, func(), error) {
	store, err := repository.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	core := NewCore(store, cfg.Workers)
	closer := func() {
		core.Close()
		if err := store.Close(); err != nil {
			logging.Error(fmt.Errorf("close database: %w", err))
		}
	}
	return core, closer, nil
}

// Run bootstraps and executes the Bubble Tea program.
func Run(cfg Config) error {
	core, closeCore, err := Open(cfg)
	if err != nil {
		return err
	}
	defer closeCore()

	var changes <-chan backend.Event
	if store, ok := core.Repo.(*repository.SQLiteStore); ok && cfg.Watch && store.Path() != repository.MemoryPath {
		watcher, err := backend.NewWatcher(cfg.DBPath, watchInterval, backend.VersionCheck(store.DataVersion))
		if err != nil {
			logging.Error(fmt.Errorf("watch database: %w", err))
		} else {
			defer watcher.Stop()
			changes = watcher.Events()
		}
	}

	run := runner.New(runner.Config{Mode: cfg.Runner, TmuxSocket: cfg.TmuxSocket})

	core.Dispatcher.DispatchCommand(message.LoadState{})

	model := ui.NewModel(ui.Options{
		Store:         core.Store,
		Reducer:       core.Reducer,
		Dispatcher:    core.Dispatcher,
		Pump:          core.Pump,
		Runner:        run,
		Changes:       changes,
		Width:         cfg.Width,
		Height:        cfg.Height,
		ShowFooter:    cfg.ShowFooter,
		Verbose:       cfg.Verbose,
		FrameInterval: cfg.FrameInterval,
	})
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
