// Package model holds the persisted record types and the pure ordering
// helpers shared by the command and event handlers.
package model

import (
	"errors"
	"fmt"
	"sort"
)

// ErrIndexOutOfRange is returned when a positional move names an index that
// does not exist in the list being reordered.
var ErrIndexOutOfRange = errors.New("index out of range")

// Folder is a named, ordered grouping of scripts.
type Folder struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Ordering int    `json:"ordering"`
}

// Script is a named shell command line.
type Script struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Command string `json:"command"`
}

// AppState is the persisted singleton of application preferences.
type AppState struct {
	LastOpenedFolderID *int64 `json:"last_opened_folder_id,omitempty"`
}

// FolderOrder is one entry of a batch renumbering.
type FolderOrder struct {
	FolderID int64
	Ordering int
}

// LastOpened returns the remembered folder id, if any.
func (s AppState) LastOpened() (int64, bool) {
	if s.LastOpenedFolderID == nil {
		return 0, false
	}
	return *s.LastOpenedFolderID, true
}

// Clone returns a copy that shares no memory with s.
func (s AppState) Clone() AppState {
	if s.LastOpenedFolderID == nil {
		return AppState{}
	}
	id := *s.LastOpenedFolderID
	return AppState{LastOpenedFolderID: &id}
}

// DefaultFolderName is the name given to the n-th created folder, where count
// is the number of folders that existed beforehand.
func DefaultFolderName(count int) string {
	return fmt.Sprintf("Folder %d", count+1)
}

// SortByOrdering sorts folders by ordering, breaking ties by id.
func SortByOrdering(folders []Folder) {
	sort.SliceStable(folders, func(i, j int) bool {
		if folders[i].Ordering != folders[j].Ordering {
			return folders[i].Ordering < folders[j].Ordering
		}
		return folders[i].ID < folders[j].ID
	})
}

// Renumber assigns dense orderings 0..n-1 in slice order and returns the
// batch needed to persist them.
func Renumber(folders []Folder) []FolderOrder {
	orders := make([]FolderOrder, len(folders))
	for i := range folders {
		folders[i].Ordering = i
		orders[i] = FolderOrder{FolderID: folders[i].ID, Ordering: i}
	}
	return orders
}

// Move relocates the element at from so that it lands before the element
// that was at to. A to equal to len(items) drops the element at the end.
// When moving forward the removal shifts later elements left, so the
// effective insertion index is to-1.
func Move[T any](items []T, from, to int) ([]T, error) {
	n := len(items)
	if from < 0 || from >= n {
		return nil, fmt.Errorf("move from %d: %w", from, ErrIndexOutOfRange)
	}
	if to < 0 || to > n {
		return nil, fmt.Errorf("move to %d: %w", to, ErrIndexOutOfRange)
	}
	insert := to
	if from < to {
		insert = to - 1
	}
	out := make([]T, 0, n)
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)
	moved := items[from]
	out = append(out, moved)
	copy(out[insert+1:], out[insert:n-1])
	out[insert] = moved
	return out, nil
}

// IsDense reports whether the orderings form exactly 0..n-1 in slice order.
func IsDense(folders []Folder) bool {
	for i, f := range folders {
		if f.Ordering != i {
			return false
		}
	}
	return true
}

// CloneFolders returns a copy of folders, or nil for an empty slice.
func CloneFolders(folders []Folder) []Folder {
	if len(folders) == 0 {
		return nil
	}
	dup := make([]Folder, len(folders))
	copy(dup, folders)
	return dup
}

// CloneScripts returns a copy of scripts, or nil for an empty slice.
func CloneScripts(scripts []Script) []Script {
	if len(scripts) == 0 {
		return nil
	}
	dup := make([]Script, len(scripts))
	copy(dup, scripts)
	return dup
}
