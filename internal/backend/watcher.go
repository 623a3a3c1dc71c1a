// Package backend notices writes made to the database file by other processes.
package backend

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/atomicstack/shell-script-manager/internal/logging/events"
)

// Event reports an external change to the watched database, or a watch error.
type Event struct {
	Path string
	Op   string
	Err  error
}

// ChangeCheck reports whether the database really changed since it was last
// asked. It lets the watcher ignore filesystem noise caused by our own
// writes. A nil check treats every filesystem event as a change.
type ChangeCheck func(ctx context.Context) (bool, error)

// VersionCheck builds a ChangeCheck from a monotonically changing version
// probe such as SQLite's data_version. The first probe establishes the
// baseline.
func VersionCheck(probe func(ctx context.Context) (int64, error)) ChangeCheck {
	var (
		mu    sync.Mutex
		last  int64
		known bool
	)
	return func(ctx context.Context) (bool, error) {
		v, err := probe(ctx)
		if err != nil {
			return false, err
		}
		mu.Lock()
		defer mu.Unlock()
		changed := known && v != last
		last, known = v, true
		return changed, nil
	}
}

// Watcher watches the directory holding the database and publishes one Event
// per burst of writes to the database or its journal files.
type Watcher struct {
	path     string
	interval time.Duration
	check    ChangeCheck

	ctx    context.Context
	cancel context.CancelFunc

	fs     *fsnotify.Watcher
	events chan Event
	wg     sync.WaitGroup
}

// NewWatcher starts watching dbPath. Bursts are coalesced so at most one
// event is published per interval.
func NewWatcher(dbPath string, interval time.Duration, check ChangeCheck) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(dbPath)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(dbPath), err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     dbPath,
		interval: interval,
		check:    check,
		ctx:      ctx,
		cancel:   cancel,
		fs:       fsw,
		events:   make(chan Event, 16),
	}

	if check != nil {
		// Prime the baseline so the first external write is recognised.
		_, _ = check(ctx)
	}

	w.wg.Add(1)
	go w.loop()

	go func() {
		w.wg.Wait()
		fsw.Close()
		close(w.events)
	}()

	return w, nil
}

// Events returns a channel of change events. It is closed after Stop once the
// watch loop has exited.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop cancels the watcher. Use Wait if a clean drain is required.
func (w *Watcher) Stop() {
	w.cancel()
}

// Wait blocks until the watch loop has exited and the events channel is
// closed.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

// matches reports whether name is the database file or one of its sidecars
// (-wal, -shm, -journal).
func (w *Watcher) matches(name string) bool {
	base := filepath.Base(w.path)
	return strings.HasPrefix(filepath.Base(name), base)
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	throttle := newThrottle(w.interval)

	for {
		select {
		case <-w.ctx.Done():
			return
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			if !w.emit(Event{Path: w.path, Err: err}) {
				return
			}
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.matches(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			if !throttle.wait(w.ctx) {
				return
			}
			ops := w.coalesce(ev.Op)
			if w.check != nil {
				changed, err := w.check(w.ctx)
				if err != nil {
					if !w.emit(Event{Path: w.path, Err: err}) {
						return
					}
					continue
				}
				if !changed {
					continue
				}
			}
			events.Store.ExternalChange(w.path, ops.String())
			if !w.emit(Event{Path: w.path, Op: ops.String()}) {
				return
			}
		}
	}
}

// coalesce folds every event already pending for the database into op.
func (w *Watcher) coalesce(op fsnotify.Op) fsnotify.Op {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return op
			}
			if w.matches(ev.Name) {
				op |= ev.Op
			}
		default:
			return op
		}
	}
}

func (w *Watcher) emit(evt Event) bool {
	select {
	case <-w.ctx.Done():
		return false
	case w.events <- evt:
		return true
	}
}
