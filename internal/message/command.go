// Package message defines the closed sets of commands and events exchanged by
// the dispatch core, the FIFO queue that carries them, and the Dispatcher
// front door used by the UI.
package message

import "fmt"

// Command is a user intent to be persisted. The set is closed: only types in
// this package implement it.
type Command interface {
	isCommand()
	// Label names the command for logs and traces.
	Label() string
}

type CreateFolder struct{}

type SelectFolder struct {
	FolderID int64
}

type DeleteFolder struct {
	FolderID int64
}

type RenameFolder struct {
	FolderID int64
	NewName  string
}

// ReorderFolders moves the folder at FromIndex so it lands before the folder
// currently at ToIndex.
type ReorderFolders struct {
	FromIndex int
	ToIndex   int
}

type AddScriptToFolder struct {
	FolderID int64
	Name     string
	Command  string
}

type UpdateScript struct {
	ScriptID   int64
	NewCommand string
}

type UpdateScriptName struct {
	ScriptID int64
	NewName  string
}

type DeleteScript struct {
	ScriptID int64
}

// LoadState reads the folder list and application state at startup.
type LoadState struct{}

func (CreateFolder) isCommand()      {}
func (SelectFolder) isCommand()      {}
func (DeleteFolder) isCommand()      {}
func (RenameFolder) isCommand()      {}
func (ReorderFolders) isCommand()    {}
func (AddScriptToFolder) isCommand() {}
func (UpdateScript) isCommand()      {}
func (UpdateScriptName) isCommand()  {}
func (DeleteScript) isCommand()      {}
func (LoadState) isCommand()         {}

func (CreateFolder) Label() string { return "folder:create" }
func (c SelectFolder) Label() string {
	return fmt.Sprintf("folder:select:%d", c.FolderID)
}
func (c DeleteFolder) Label() string {
	return fmt.Sprintf("folder:delete:%d", c.FolderID)
}
func (c RenameFolder) Label() string {
	return fmt.Sprintf("folder:rename:%d", c.FolderID)
}
func (c ReorderFolders) Label() string {
	return fmt.Sprintf("folder:reorder:%d->%d", c.FromIndex, c.ToIndex)
}
func (c AddScriptToFolder) Label() string {
	return fmt.Sprintf("script:add:%d", c.FolderID)
}
func (c UpdateScript) Label() string {
	return fmt.Sprintf("script:update:%d", c.ScriptID)
}
func (c UpdateScriptName) Label() string {
	return fmt.Sprintf("script:rename:%d", c.ScriptID)
}
func (c DeleteScript) Label() string {
	return fmt.Sprintf("script:delete:%d", c.ScriptID)
}
func (LoadState) Label() string { return "state:load" }
