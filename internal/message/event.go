package message

import "github.com/atomicstack/shell-script-manager/internal/model"

// Event is a fact: a persistence operation succeeded, or the database changed
// underneath us. Folder events that patch the local list carry the revision
// their write produced.
type Event interface {
	isEvent()
	Kind() string
}

type FolderAdded struct {
	Name string
}

type FolderSelected struct {
	FolderID int64
}

type FolderDeleted struct {
	FolderID int64
	Revision uint64
}

type FolderRenamed struct {
	FolderID int64
	NewName  string
	Revision uint64
}

type FoldersReordered struct {
	FromIndex int
	ToIndex   int
	Revision  uint64
}

type ScriptAdded struct {
	FolderID int64
}

type ScriptUpdated struct {
	ScriptID int64
}

type ScriptDeleted struct {
	ScriptID int64
}

// StateLoaded carries the startup read so it can be applied without another
// round trip.
type StateLoaded struct {
	Folders  []model.Folder
	AppState model.AppState
	Revision uint64
}

// ExternalChange reports that another process wrote to the database.
type ExternalChange struct {
	Path string
}

func (FolderAdded) isEvent()      {}
func (FolderSelected) isEvent()   {}
func (FolderDeleted) isEvent()    {}
func (FolderRenamed) isEvent()    {}
func (FoldersReordered) isEvent() {}
func (ScriptAdded) isEvent()      {}
func (ScriptUpdated) isEvent()    {}
func (ScriptDeleted) isEvent()    {}
func (StateLoaded) isEvent()      {}
func (ExternalChange) isEvent()   {}

func (FolderAdded) Kind() string      { return "folder.added" }
func (FolderSelected) Kind() string   { return "folder.selected" }
func (FolderDeleted) Kind() string    { return "folder.deleted" }
func (FolderRenamed) Kind() string    { return "folder.renamed" }
func (FoldersReordered) Kind() string { return "folder.reordered" }
func (ScriptAdded) Kind() string      { return "script.added" }
func (ScriptUpdated) Kind() string    { return "script.updated" }
func (ScriptDeleted) Kind() string    { return "script.deleted" }
func (StateLoaded) Kind() string      { return "state.loaded" }
func (ExternalChange) Kind() string   { return "store.external-change" }
