package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/atomicstack/shell-script-manager/internal/message"
	"github.com/atomicstack/shell-script-manager/internal/pump"
	uistate "github.com/atomicstack/shell-script-manager/internal/ui/state"
)

// frameMsg asks the model to drain the message queue and refresh from the
// store before the next render.
type frameMsg struct{}

func (m *Model) nextFrame() tea.Cmd {
	return tea.Tick(m.frameInterval, func(time.Time) tea.Msg { return frameMsg{} })
}

func (m *Model) handleFrameMsg(tea.Msg) tea.Cmd {
	if m.pump != nil {
		m.applyReport(m.pump.Drain())
	}
	m.syncFromStore()
	m.syncDialogs()
	if m.manualFrames {
		return nil
	}
	return m.nextFrame()
}

// applyReport surfaces command outcomes. Failures always reach the status
// line; successes only when verbose.
func (m *Model) applyReport(rep pump.Report) {
	for _, done := range rep.Completions {
		label, ours := m.pending[done.ID]
		delete(m.pending, done.ID)
		if label == "" {
			label = done.Command.Label()
		}
		m.settleDialog(done)
		if done.Err != nil {
			m.errMsg = fmt.Sprintf("%s failed: %v", label, done.Err)
			continue
		}
		if ours {
			m.errMsg = ""
			if m.verbose {
				m.setInfo(describe(done.Command))
			}
		}
	}
}

func describe(cmd message.Command) string {
	switch c := cmd.(type) {
	case message.CreateFolder:
		return "Folder created"
	case message.DeleteFolder:
		return "Folder deleted"
	case message.RenameFolder:
		return fmt.Sprintf("Folder renamed to %s", c.NewName)
	case message.ReorderFolders:
		return "Folders reordered"
	case message.AddScriptToFolder:
		return fmt.Sprintf("Script %s added", c.Name)
	case message.UpdateScript:
		return "Script updated"
	case message.UpdateScriptName:
		return fmt.Sprintf("Script renamed to %s", c.NewName)
	case message.DeleteScript:
		return "Script deleted"
	default:
		return cmd.Label() + " done"
	}
}

// syncFromStore copies the store's snapshot into both columns.
func (m *Model) syncFromStore() {
	if m.store == nil {
		return
	}
	folders := m.store.Folders()
	folderItems := make([]uistate.Item, len(folders))
	for i, f := range folders {
		folderItems[i] = uistate.NewItem(f.ID, f.Name, "")
	}
	m.folders.UpdateItems(folderItems)

	selected, ok := m.store.SelectedFolderID()
	if !m.cursorPlaced && len(folders) > 0 {
		if ok {
			m.folders.SelectID(uistate.NewItem(selected, "", "").ID)
		}
		m.cursorPlaced = true
	}
	if !ok {
		selected = 0
	}
	if selected != m.scriptsFor {
		if selected == 0 && m.focus == ColumnScripts {
			m.focus = ColumnFolders
		}
		m.scriptsFor = selected
		m.scripts.ClearFilter()
		m.scripts.Cursor = 0
		m.scripts.ViewportOffset = 0
	}

	scripts := m.store.Scripts()
	scriptItems := make([]uistate.Item, len(scripts))
	for i, s := range scripts {
		scriptItems[i] = uistate.NewItem(s.ID, s.Name, s.Command)
	}
	m.scripts.UpdateItems(scriptItems)
	m.syncViewport()
}

func (m *Model) syncViewport() {
	visible := m.maxVisibleItems()
	m.folders.EnsureCursorVisible(visible)
	m.scripts.EnsureCursorVisible(visible)
}
