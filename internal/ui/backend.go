package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/atomicstack/shell-script-manager/internal/backend"
	"github.com/atomicstack/shell-script-manager/internal/message"
)

func waitForChange(ch <-chan backend.Event) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return changeDoneMsg{}
		}
		return changeMsg{event: evt}
	}
}

type changeMsg struct {
	event backend.Event
}

type changeDoneMsg struct{}

// handleChangeMsg turns a database change made by another process into an
// ExternalChange event. The next frame drains it like any other event.
func (m *Model) handleChangeMsg(msg tea.Msg) tea.Cmd {
	change, ok := msg.(changeMsg)
	if !ok {
		return nil
	}
	if change.event.Err != nil {
		m.watchErr = change.event.Err.Error()
	} else {
		m.watchErr = ""
		if m.dispatcher != nil {
			m.dispatcher.DispatchEvent(message.ExternalChange{Path: change.event.Path})
		}
	}
	if m.changes != nil {
		return waitForChange(m.changes)
	}
	return nil
}

func (m *Model) handleChangeDoneMsg(tea.Msg) tea.Cmd {
	m.changes = nil
	return nil
}
