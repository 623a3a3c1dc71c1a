package ui

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/atomicstack/shell-script-manager/internal/logging/events"
	"github.com/atomicstack/shell-script-manager/internal/message"
	uistate "github.com/atomicstack/shell-script-manager/internal/ui/state"
)

var errNoFolderSelected = errors.New("select a folder first")

func (m *Model) handleKeyMsg(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	if m.mode == ModeFilter {
		return m.handleFilterKey(key)
	}

	switch key.String() {
	case "ctrl+c", "q":
		return tea.Quit
	case "esc":
		if m.activeLevel().ClearFilter() {
			events.Filter.Cleared(m.focus.String())
			return nil
		}
		return tea.Quit
	case "tab", "left", "right", "h", "l":
		m.toggleFocus()
	case "up", "k":
		m.moveCursor(func(l *level) bool { return l.MoveCursorUp() })
	case "down", "j":
		m.moveCursor(func(l *level) bool { return l.MoveCursorDown() })
	case "home", "g":
		m.moveCursor(func(l *level) bool { return l.MoveCursorHome() })
	case "end", "G":
		m.moveCursor(func(l *level) bool { return l.MoveCursorEnd() })
	case "pgup":
		m.moveCursor(func(l *level) bool { return l.MoveCursorPageUp(m.maxVisibleItems()) })
	case "pgdown":
		m.moveCursor(func(l *level) bool { return l.MoveCursorPageDown(m.maxVisibleItems()) })
	case "/":
		m.mode = ModeFilter
	case "enter":
		return m.handleEnterKey()
	case "n":
		return m.withPrompt(func() promptResult {
			m.dispatch(message.CreateFolder{})
			return promptResult{}
		})
	case "a":
		return m.startAddScript()
	case "d", "delete":
		m.requestDelete()
	case "r":
		m.requestRename()
	case "e":
		m.requestEdit()
	case "y":
		return m.copyScript()
	case "shift+up", "K":
		return m.reorderFolder(-1)
	case "shift+down", "J":
		return m.reorderFolder(1)
	}
	m.syncDialogs()
	return nil
}

func (m *Model) handleFilterKey(key tea.KeyMsg) tea.Cmd {
	lvl := m.activeLevel()
	column := m.focus.String()
	switch key.Type {
	case tea.KeyCtrlC:
		return tea.Quit
	case tea.KeyEsc:
		lvl.ClearFilter()
		m.mode = ModeBrowse
		events.Filter.Cleared(column)
	case tea.KeyEnter:
		m.mode = ModeBrowse
	case tea.KeyBackspace:
		if lvl.DeleteFilterRuneBackward() {
			events.Filter.Backspace(column, lvl.Filter)
		}
	case tea.KeyCtrlW:
		if lvl.DeleteFilterWordBackward() {
			events.Filter.Backspace(column, lvl.Filter)
		}
	case tea.KeyUp:
		lvl.MoveCursorUp()
	case tea.KeyDown:
		lvl.MoveCursorDown()
	case tea.KeySpace:
		if lvl.InsertFilterText(" ") {
			events.Filter.Append(column, lvl.Filter)
		}
	case tea.KeyRunes:
		if lvl.InsertFilterText(string(key.Runes)) {
			events.Filter.Append(column, lvl.Filter)
		}
	}
	lvl.EnsureCursorVisible(m.maxVisibleItems())
	return nil
}

func (m *Model) toggleFocus() {
	if m.focus == ColumnFolders {
		if _, ok := m.selectedFolder(); !ok {
			return
		}
		m.focus = ColumnScripts
	} else {
		m.focus = ColumnFolders
	}
	events.UI.Focus(m.focus.String())
}

func (m *Model) moveCursor(move func(*level) bool) {
	lvl := m.activeLevel()
	if move(lvl) {
		lvl.EnsureCursorVisible(m.maxVisibleItems())
		events.UI.Cursor(m.focus.String(), lvl.Cursor)
	}
}

// handleEnterKey selects the folder under the cursor, or runs the script
// under the cursor.
func (m *Model) handleEnterKey() tea.Cmd {
	cur, ok := m.activeLevel().Current()
	if !ok {
		return nil
	}
	id, ok := cur.Int64ID()
	if !ok {
		return nil
	}
	if m.focus == ColumnFolders {
		return m.withPrompt(func() promptResult {
			if selected, ok := m.selectedFolder(); !ok || selected != id {
				m.dispatch(message.SelectFolder{FolderID: id})
			}
			m.focus = ColumnScripts
			events.UI.Focus(m.focus.String())
			return promptResult{}
		})
	}
	return m.withPrompt(func() promptResult {
		if m.runner == nil {
			return promptResult{Err: errors.New("no runner configured")}
		}
		m.runner.Run(cur.Detail)
		m.setInfo(fmt.Sprintf("Started %s", cur.Label))
		return promptResult{}
	})
}

// copyScript puts the command under the scripts cursor on the clipboard.
func (m *Model) copyScript() tea.Cmd {
	if m.focus != ColumnScripts {
		return nil
	}
	cur, ok := m.currentScript()
	if !ok {
		return nil
	}
	return m.withPrompt(func() promptResult {
		if err := m.clipboard(cur.Detail); err != nil {
			return promptResult{Err: fmt.Errorf("copy %s: %w", cur.Label, err)}
		}
		events.Script.Copy(cur.ID)
		m.setInfo(fmt.Sprintf("Copied %s to clipboard", cur.Label))
		return promptResult{}
	})
}

func (m *Model) startAddScript() tea.Cmd {
	return m.withPrompt(func() promptResult {
		folderID, ok := m.selectedFolder()
		if !ok {
			return promptResult{Err: errNoFolderSelected}
		}
		m.openForm(newAddScriptForm(folderID))
		return promptResult{}
	})
}

func (m *Model) requestDelete() {
	id, ok := m.currentID()
	if !ok || m.reducer == nil {
		return
	}
	if m.focus == ColumnFolders {
		m.reducer.RequestFolderDelete(id)
	} else {
		m.reducer.RequestScriptDelete(id)
	}
}

func (m *Model) requestRename() {
	id, ok := m.currentID()
	if !ok || m.reducer == nil {
		return
	}
	if m.focus == ColumnFolders {
		cur, _ := m.folders.Current()
		m.reducer.RequestFolderRename(id, cur.Label)
	} else {
		m.reducer.RequestScriptRename(id)
	}
}

func (m *Model) requestEdit() {
	if m.focus != ColumnScripts || m.reducer == nil {
		return
	}
	if id, ok := m.currentID(); ok {
		m.reducer.RequestScriptEdit(id)
	}
}

// reorderFolder moves the folder under the cursor one slot. Moving down
// targets index+2 because a forward move lands before the element at the
// target index. The cursor follows the folder's id when the new list lands.
func (m *Model) reorderFolder(delta int) tea.Cmd {
	if m.focus != ColumnFolders {
		return nil
	}
	return m.withPrompt(func() promptResult {
		if m.folders.Filter != "" {
			return promptResult{Err: errors.New("clear the filter to reorder folders")}
		}
		from := m.folders.Cursor
		n := len(m.folders.Items)
		if from < 0 || from >= n {
			return promptResult{}
		}
		target := from + delta
		if target < 0 || target >= n {
			return promptResult{}
		}
		to := target
		if delta > 0 {
			to = target + 1
		}
		m.dispatch(message.ReorderFolders{FromIndex: from, ToIndex: to})
		return promptResult{}
	})
}

func (m *Model) currentID() (int64, bool) {
	cur, ok := m.activeLevel().Current()
	if !ok {
		return 0, false
	}
	return cur.Int64ID()
}

func (m *Model) selectedFolder() (int64, bool) {
	if m.store == nil {
		return 0, false
	}
	return m.store.SelectedFolderID()
}

// currentScript returns the script under the scripts cursor.
func (m *Model) currentScript() (uistate.Item, bool) {
	if m.focus != ColumnScripts {
		return uistate.Item{}, false
	}
	return m.scripts.Current()
}

type promptResult struct {
	Cmd  tea.Cmd
	Info string
	Err  error
}

// withPrompt clears the status line and runs action, surfacing its error or
// info message there.
func (m *Model) withPrompt(action func() promptResult) tea.Cmd {
	m.forceClearInfo()
	m.errMsg = ""
	if action == nil {
		return nil
	}
	result := action()
	if result.Err != nil {
		m.errMsg = result.Err.Error()
		return nil
	}
	if result.Info != "" && m.verbose {
		m.setInfo(result.Info)
	}
	return result.Cmd
}
