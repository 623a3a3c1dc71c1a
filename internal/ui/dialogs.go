package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/atomicstack/shell-script-manager/internal/logging/events"
	"github.com/atomicstack/shell-script-manager/internal/message"
	"github.com/atomicstack/shell-script-manager/internal/model"
)

const (
	confirmFolderDelete = "folder:delete"
	confirmScriptDelete = "script:delete"
)

type confirmDialog struct {
	kind   string
	target int64
	prompt string
}

// syncDialogs keeps the open dialog in step with the store's transient
// intents: an intent with no dialog opens one, and a dialog whose intent was
// cleared (for example because its folder was deleted) closes. A submitted
// dialog is left alone until its completion arrives.
func (m *Model) syncDialogs() {
	if m.store == nil || m.reducer == nil || m.awaiting != uuid.Nil {
		return
	}
	switch m.mode {
	case ModeConfirm:
		if !m.confirmStillWanted() {
			m.closeConfirm(events.ReasonGone)
		}
	case ModeForm:
		if !m.formStillWanted() {
			m.closeForm(events.ReasonGone)
		}
	default:
		m.openFromIntents()
	}
}

func (m *Model) openFromIntents() {
	if id, ok := m.store.FolderToDelete(); ok {
		folder, found := m.findFolder(id)
		if !found {
			m.reducer.ClearFolderDelete()
			return
		}
		m.openConfirm(confirmFolderDelete, id,
			fmt.Sprintf("Delete folder %q and the scripts only it holds?", folder.Name))
		return
	}
	if id, ok := m.store.FolderToRename(); ok {
		if _, found := m.findFolder(id); !found {
			m.reducer.ClearFolderRename()
			return
		}
		m.openForm(newRenameFolderForm(id, m.store.RenameText()))
		return
	}
	if id, ok := m.store.ScriptToDelete(); ok {
		script, found := m.findScript(id)
		if !found {
			m.reducer.ClearScriptDelete()
			return
		}
		m.openConfirm(confirmScriptDelete, id, fmt.Sprintf("Delete script %q?", script.Name))
		return
	}
	if id, ok := m.store.ScriptToEdit(); ok {
		script, found := m.findScript(id)
		if !found {
			m.reducer.ClearScriptEdit()
			return
		}
		m.openForm(newEditScriptForm(id, script.Name, script.Command))
		return
	}
	if id, ok := m.store.ScriptToRename(); ok {
		script, found := m.findScript(id)
		if !found {
			m.reducer.ClearScriptRename()
			return
		}
		m.openForm(newRenameScriptForm(id, script.Name))
	}
}

func (m *Model) openConfirm(kind string, target int64, prompt string) {
	m.confirm = &confirmDialog{kind: kind, target: target, prompt: prompt}
	m.mode = ModeConfirm
	events.UI.DialogOpen(kind, target)
}

func (m *Model) openForm(form *Form) {
	m.form = form
	m.mode = ModeForm
	events.UI.DialogOpen(string(form.Kind()), form.Target())
}

func (m *Model) confirmStillWanted() bool {
	if m.confirm == nil {
		return false
	}
	var (
		id int64
		ok bool
	)
	switch m.confirm.kind {
	case confirmFolderDelete:
		id, ok = m.store.FolderToDelete()
	case confirmScriptDelete:
		id, ok = m.store.ScriptToDelete()
	}
	return ok && id == m.confirm.target
}

func (m *Model) formStillWanted() bool {
	if m.form == nil {
		return false
	}
	var (
		id int64
		ok bool
	)
	switch m.form.Kind() {
	case formRenameFolder:
		id, ok = m.store.FolderToRename()
	case formEditScript:
		id, ok = m.store.ScriptToEdit()
	case formRenameScript:
		id, ok = m.store.ScriptToRename()
	case formAddScript:
		id, ok = m.store.SelectedFolderID()
	}
	return ok && id == m.form.Target()
}

// awaitDialog keeps the open dialog up until the command id completes.
func (m *Model) awaitDialog(kind string, id uuid.UUID) {
	if id == uuid.Nil {
		m.closeDialog(events.ReasonConfirm)
		return
	}
	m.awaiting = id
	events.UI.DialogWait(kind, id.String())
}

// settleDialog closes the dialog waiting on done, if any.
func (m *Model) settleDialog(done message.Completion) {
	if m.awaiting == uuid.Nil || done.ID != m.awaiting {
		return
	}
	if done.Err != nil {
		m.closeDialog(events.ReasonFailed)
		return
	}
	m.closeDialog(events.ReasonConfirm)
}

func (m *Model) closeDialog(reason events.DialogReason) {
	switch {
	case m.confirm != nil:
		m.closeConfirm(reason)
	case m.form != nil:
		m.closeForm(reason)
	}
}

func (m *Model) closeConfirm(reason events.DialogReason) {
	if m.confirm == nil {
		return
	}
	switch m.confirm.kind {
	case confirmFolderDelete:
		m.reducer.ClearFolderDelete()
	case confirmScriptDelete:
		m.reducer.ClearScriptDelete()
	}
	events.UI.DialogClose(m.confirm.kind, reason)
	m.confirm = nil
	m.awaiting = uuid.Nil
	m.mode = ModeBrowse
}

func (m *Model) closeForm(reason events.DialogReason) {
	if m.form == nil {
		return
	}
	switch m.form.Kind() {
	case formRenameFolder:
		m.reducer.ClearFolderRename()
	case formEditScript:
		m.reducer.ClearScriptEdit()
	case formRenameScript:
		m.reducer.ClearScriptRename()
	}
	events.UI.DialogClose(string(m.form.Kind()), reason)
	m.form = nil
	m.awaiting = uuid.Nil
	m.mode = ModeBrowse
}

func (m *Model) handleConfirm(msg tea.Msg) (bool, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || m.confirm == nil {
		return false, nil
	}
	if m.awaiting != uuid.Nil {
		if key.String() == "ctrl+c" {
			return true, tea.Quit
		}
		return true, nil
	}
	switch key.String() {
	case "y", "Y", "enter":
		dialog := *m.confirm
		return true, m.withPrompt(func() promptResult {
			var id uuid.UUID
			switch dialog.kind {
			case confirmFolderDelete:
				id = m.dispatch(message.DeleteFolder{FolderID: dialog.target})
			case confirmScriptDelete:
				id = m.dispatch(message.DeleteScript{ScriptID: dialog.target})
			}
			m.awaitDialog(dialog.kind, id)
			return promptResult{}
		})
	case "n", "N", "esc", "q":
		m.closeConfirm(events.ReasonEscape)
	case "ctrl+c":
		return true, tea.Quit
	}
	return true, nil
}

func (m *Model) handleForm(msg tea.Msg) (bool, tea.Cmd) {
	if m.form == nil {
		return false, nil
	}
	if m.awaiting != uuid.Nil {
		if key, ok := msg.(tea.KeyMsg); ok && key.String() == "ctrl+c" {
			return true, tea.Quit
		}
		return true, nil
	}
	cmd, done, cancel := m.form.Update(msg)
	if cancel {
		m.closeForm(events.ReasonEscape)
		return true, cmd
	}
	if m.form.Kind() == formRenameFolder {
		m.reducer.SetRenameText(m.form.Value(0))
	}
	if done {
		return true, m.submitForm()
	}
	return true, cmd
}

func (m *Model) submitForm() tea.Cmd {
	form := m.form
	if !form.required && form.Empty() {
		m.closeForm(events.ReasonEmpty)
		return nil
	}
	return m.withPrompt(func() promptResult {
		var id uuid.UUID
		switch form.Kind() {
		case formRenameFolder:
			id = m.dispatch(message.RenameFolder{FolderID: form.Target(), NewName: form.Value(0)})
		case formRenameScript:
			id = m.dispatch(message.UpdateScriptName{ScriptID: form.Target(), NewName: form.Value(0)})
		case formEditScript:
			id = m.dispatch(message.UpdateScript{ScriptID: form.Target(), NewCommand: form.Value(0)})
		case formAddScript:
			id = m.dispatch(message.AddScriptToFolder{
				FolderID: form.Target(),
				Name:     form.Value(0),
				Command:  form.Value(1),
			})
		}
		m.awaitDialog(string(form.Kind()), id)
		return promptResult{}
	})
}

func (m *Model) findFolder(id int64) (model.Folder, bool) {
	for _, f := range m.store.Folders() {
		if f.ID == id {
			return f, true
		}
	}
	return model.Folder{}, false
}

func (m *Model) findScript(id int64) (model.Script, bool) {
	for _, s := range m.store.Scripts() {
		if s.ID == id {
			return s, true
		}
	}
	return model.Script{}, false
}
