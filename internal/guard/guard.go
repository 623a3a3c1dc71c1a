// Package guard serialises persistence work that touches overlapping records.
//
// Records are grouped into classes (folders, scripts, app state). A task locks
// every class it reads or writes before talking to the repository and keeps
// the locks until its resulting event has been queued, so the queue order of
// events within one class matches the order in which the writes landed.
package guard

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Key names a record class.
type Key string

const (
	KeyAppState Key = "app_state"
	KeyFolders  Key = "folders"
	KeyScripts  Key = "scripts"
)

// Locks hands out one mutex per Key.
type Locks struct {
	mu    sync.Mutex
	locks map[Key]*sync.Mutex
}

// NewLocks returns an empty lock table.
func NewLocks() *Locks {
	return &Locks{locks: make(map[Key]*sync.Mutex)}
}

func (l *Locks) lockFor(key Key) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// Acquire locks every key in sorted order and returns the matching release.
// Duplicate keys are ignored.
func (l *Locks) Acquire(keys ...Key) func() {
	ordered := normalise(keys)
	held := make([]*sync.Mutex, 0, len(ordered))
	for _, key := range ordered {
		m := l.lockFor(key)
		m.Lock()
		held = append(held, m)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].Unlock()
			}
		})
	}
}

func normalise(keys []Key) []Key {
	if len(keys) == 0 {
		return nil
	}
	seen := make(map[Key]struct{}, len(keys))
	out := make([]Key, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clock counts committed changes to one record class. Bump it while holding
// the class lock so revisions follow persistence order.
type Clock struct {
	n atomic.Uint64
}

// Next records one more change and returns its revision.
func (c *Clock) Next() uint64 {
	return c.n.Add(1)
}

// Current returns the revision of the latest recorded change.
func (c *Clock) Current() uint64 {
	return c.n.Load()
}
