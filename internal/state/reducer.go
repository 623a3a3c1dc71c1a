package state

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atomicstack/shell-script-manager/internal/model"
)

// ErrRevisionGap reports a local folder patch that skips at least one change
// the store has not seen. The caller should re-query instead.
var ErrRevisionGap = errors.New("folder revision gap")

// Reducer is the only writer of a Store. Each method takes the locks it needs
// in the order selection, folders, scripts, app state and releases them
// before returning.
type Reducer struct {
	s *Store
}

// NewReducer binds a reducer to s.
func NewReducer(s *Store) *Reducer {
	return &Reducer{s: s}
}

// Store returns the store this reducer writes to.
func (r *Reducer) Store() *Store {
	return r.s
}

// SelectFolder marks id as selected. The previous folder's scripts are dropped
// until a query for the new folder lands.
func (r *Reducer) SelectFolder(id int64) {
	s := r.s
	s.selectionMu.Lock()
	defer s.selectionMu.Unlock()
	s.scriptsMu.Lock()
	defer s.scriptsMu.Unlock()

	if cur, ok := deref(s.selected); ok && cur == id {
		return
	}
	s.selected = ptr(id)
	s.scripts = nil
	s.scriptsFor = id
}

// ClearSelectionIfMissing deselects the current folder and drops its scripts
// when the folder list no longer holds it. The check and the clear happen
// under the same locks, so a selection made meanwhile is never wiped.
func (r *Reducer) ClearSelectionIfMissing() bool {
	s := r.s
	s.selectionMu.Lock()
	defer s.selectionMu.Unlock()
	s.foldersMu.RLock()
	defer s.foldersMu.RUnlock()
	s.scriptsMu.Lock()
	defer s.scriptsMu.Unlock()

	id, ok := deref(s.selected)
	if !ok {
		return false
	}
	for _, f := range s.folders {
		if f.ID == id {
			return false
		}
	}
	s.selected = nil
	s.scripts = nil
	s.scriptsFor = 0
	return true
}

// checkRevision decides whether a local patch carrying rev applies on top of
// the current folder list. Callers must hold foldersMu for writing. A zero
// rev is unversioned and always applies.
func (s *Store) checkRevision(rev uint64) (bool, error) {
	switch {
	case rev == 0:
		return true, nil
	case rev <= s.folderRev:
		return false, nil
	case rev == s.folderRev+1:
		return true, nil
	default:
		return false, fmt.Errorf("have %d, got %d: %w", s.folderRev, rev, ErrRevisionGap)
	}
}

func (s *Store) commitRevision(rev uint64) {
	if rev > s.folderRev {
		s.folderRev = rev
	}
}

// DeleteFolder removes id from the folder list and renumbers the remainder
// densely. Deleting the selected folder clears the selection and its scripts.
// It reports whether the patch applied.
func (r *Reducer) DeleteFolder(id int64, rev uint64) (bool, error) {
	s := r.s
	s.selectionMu.Lock()
	defer s.selectionMu.Unlock()
	s.foldersMu.Lock()
	defer s.foldersMu.Unlock()
	s.scriptsMu.Lock()
	defer s.scriptsMu.Unlock()
	s.appStateMu.Lock()
	defer s.appStateMu.Unlock()

	apply, err := s.checkRevision(rev)
	if !apply {
		return false, err
	}

	kept := make([]model.Folder, 0, len(s.folders))
	for _, f := range s.folders {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	model.Renumber(kept)
	s.folders = kept
	s.commitRevision(rev)

	if cur, ok := deref(s.selected); ok && cur == id {
		s.selected = nil
		s.scripts = nil
		s.scriptsFor = 0
	}
	if last, ok := s.appState.LastOpened(); ok && last == id {
		s.appState = model.AppState{}
	}
	if pending, ok := deref(s.folderToDelete.load()); ok && pending == id {
		s.folderToDelete.store(nil)
	}
	if pending, ok := deref(s.folderToRename.load()); ok && pending == id {
		s.folderToRename.store(nil)
		s.renameText.store("")
	}
	return true, nil
}

// RenameFolder sets the name of folder id.
func (r *Reducer) RenameFolder(id int64, name string, rev uint64) (bool, error) {
	s := r.s
	s.foldersMu.Lock()
	defer s.foldersMu.Unlock()

	apply, err := s.checkRevision(rev)
	if !apply {
		return false, err
	}
	folders := model.CloneFolders(s.folders)
	for i := range folders {
		if folders[i].ID == id {
			folders[i].Name = strings.TrimSpace(name)
		}
	}
	s.folders = folders
	s.commitRevision(rev)
	return true, nil
}

// InsertFolderIntoIndex moves the folder at from so it lands before the one
// at to, then renumbers. See model.Move for the tie-break.
func (r *Reducer) InsertFolderIntoIndex(from, to int, rev uint64) (bool, error) {
	s := r.s
	s.foldersMu.Lock()
	defer s.foldersMu.Unlock()

	apply, err := s.checkRevision(rev)
	if !apply {
		return false, err
	}
	moved, err := model.Move(s.folders, from, to)
	if err != nil {
		return false, err
	}
	model.Renumber(moved)
	s.folders = moved
	s.commitRevision(rev)
	return true, nil
}

// SetFolderList replaces the folder list with an authoritative query result
// taken at revision rev. Results older than what the store holds are dropped.
func (r *Reducer) SetFolderList(folders []model.Folder, rev uint64) bool {
	s := r.s
	s.foldersMu.Lock()
	defer s.foldersMu.Unlock()

	if rev < s.folderRev {
		return false
	}
	list := model.CloneFolders(folders)
	model.SortByOrdering(list)
	s.folders = list
	s.folderRev = rev
	return true
}

// SetScriptsOfSelectedFolder stores scripts queried for folderID. The result
// is discarded when folderID is no longer the selected folder.
func (r *Reducer) SetScriptsOfSelectedFolder(folderID int64, scripts []model.Script) bool {
	s := r.s
	s.selectionMu.RLock()
	defer s.selectionMu.RUnlock()
	s.scriptsMu.Lock()
	defer s.scriptsMu.Unlock()

	cur, ok := deref(s.selected)
	if !ok || cur != folderID {
		return false
	}
	s.scripts = model.CloneScripts(scripts)
	s.scriptsFor = folderID
	return true
}

// DeleteScriptFromSelectedFolder removes script id from the visible scripts.
func (r *Reducer) DeleteScriptFromSelectedFolder(id int64) bool {
	s := r.s
	s.scriptsMu.Lock()
	defer s.scriptsMu.Unlock()

	kept := make([]model.Script, 0, len(s.scripts))
	for _, sc := range s.scripts {
		if sc.ID != id {
			kept = append(kept, sc)
		}
	}
	removed := len(kept) != len(s.scripts)
	if len(kept) == 0 {
		kept = nil
	}
	s.scripts = kept
	if pending, ok := deref(s.scriptToDelete.load()); ok && pending == id {
		s.scriptToDelete.store(nil)
	}
	return removed
}

// SetAppState replaces the persisted application state snapshot.
func (r *Reducer) SetAppState(state model.AppState) {
	s := r.s
	s.appStateMu.Lock()
	s.appState = state.Clone()
	s.appStateMu.Unlock()
}

func (r *Reducer) RequestFolderDelete(id int64) { r.s.folderToDelete.store(ptr(id)) }
func (r *Reducer) ClearFolderDelete()           { r.s.folderToDelete.store(nil) }

// RequestFolderRename opens a rename intent seeded with the current name.
func (r *Reducer) RequestFolderRename(id int64, current string) {
	r.s.renameText.store(current)
	r.s.folderToRename.store(ptr(id))
}

func (r *Reducer) SetRenameText(text string) { r.s.renameText.store(text) }

func (r *Reducer) ClearFolderRename() {
	r.s.folderToRename.store(nil)
	r.s.renameText.store("")
}

func (r *Reducer) RequestScriptDelete(id int64) { r.s.scriptToDelete.store(ptr(id)) }
func (r *Reducer) ClearScriptDelete()           { r.s.scriptToDelete.store(nil) }
func (r *Reducer) RequestScriptEdit(id int64)   { r.s.scriptToEdit.store(ptr(id)) }
func (r *Reducer) ClearScriptEdit()             { r.s.scriptToEdit.store(nil) }
func (r *Reducer) RequestScriptRename(id int64) { r.s.scriptToRename.store(ptr(id)) }
func (r *Reducer) ClearScriptRename()           { r.s.scriptToRename.store(nil) }
