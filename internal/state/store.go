// Package state holds the UI-visible snapshot shared between the rendering
// loop and the dispatch core. Each field is guarded by its own lock; reads
// return copies, and only Reducer writes.
package state

import (
	"sync"

	"github.com/atomicstack/shell-script-manager/internal/model"
)

// Reader is the read-only view handed to the rendering layer.
type Reader interface {
	SelectedFolderID() (int64, bool)
	Folders() []model.Folder
	FolderRevision() uint64
	Scripts() []model.Script
	AppState() model.AppState

	FolderToDelete() (int64, bool)
	FolderToRename() (int64, bool)
	RenameText() string
	ScriptToDelete() (int64, bool)
	ScriptToEdit() (int64, bool)
	ScriptToRename() (int64, bool)
}

// Store is the shared state snapshot. The zero value is not usable; call New.
type Store struct {
	selectionMu sync.RWMutex
	selected    *int64

	foldersMu sync.RWMutex
	folders   []model.Folder
	folderRev uint64

	scriptsMu  sync.RWMutex
	scripts    []model.Script
	scriptsFor int64

	appStateMu sync.RWMutex
	appState   model.AppState

	folderToDelete field[*int64]
	folderToRename field[*int64]
	renameText     field[string]
	scriptToDelete field[*int64]
	scriptToEdit   field[*int64]
	scriptToRename field[*int64]
}

var _ Reader = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{}
}

func (s *Store) SelectedFolderID() (int64, bool) {
	s.selectionMu.RLock()
	defer s.selectionMu.RUnlock()
	return deref(s.selected)
}

func (s *Store) Folders() []model.Folder {
	s.foldersMu.RLock()
	defer s.foldersMu.RUnlock()
	return model.CloneFolders(s.folders)
}

// FolderRevision returns the revision of the folder list currently held.
func (s *Store) FolderRevision() uint64 {
	s.foldersMu.RLock()
	defer s.foldersMu.RUnlock()
	return s.folderRev
}

func (s *Store) Scripts() []model.Script {
	s.scriptsMu.RLock()
	defer s.scriptsMu.RUnlock()
	return model.CloneScripts(s.scripts)
}

func (s *Store) AppState() model.AppState {
	s.appStateMu.RLock()
	defer s.appStateMu.RUnlock()
	return s.appState.Clone()
}

func (s *Store) FolderToDelete() (int64, bool) { return deref(s.folderToDelete.load()) }
func (s *Store) FolderToRename() (int64, bool) { return deref(s.folderToRename.load()) }
func (s *Store) RenameText() string            { return s.renameText.load() }
func (s *Store) ScriptToDelete() (int64, bool) { return deref(s.scriptToDelete.load()) }
func (s *Store) ScriptToEdit() (int64, bool)   { return deref(s.scriptToEdit.load()) }
func (s *Store) ScriptToRename() (int64, bool) { return deref(s.scriptToRename.load()) }

// field is a single value behind its own lock.
type field[T any] struct {
	mu sync.RWMutex
	v  T
}

func (f *field[T]) load() T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.v
}

func (f *field[T]) store(v T) {
	f.mu.Lock()
	f.v = v
	f.mu.Unlock()
}

func deref(p *int64) (int64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func ptr(v int64) *int64 {
	return &v
}
