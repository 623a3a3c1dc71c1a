package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type formKind string

const (
	formRenameFolder formKind = "folder:rename"
	formAddScript    formKind = "script:add"
	formEditScript   formKind = "script:edit"
	formRenameScript formKind = "script:rename"
)

type formField struct {
	label string
	input textinput.Model
}

// Form is a small text-entry dialog with one or more fields. Tab cycles
// fields, Esc cancels. Enter submits; a required form first insists that
// every field is non-blank.
type Form struct {
	kind     formKind
	target   int64
	title    string
	help     string
	fields   []formField
	focus    int
	err      string
	required bool
}

type fieldSpec struct {
	label       string
	placeholder string
	initial     string
	limit       int
}

func newForm(kind formKind, target int64, title string, specs ...fieldSpec) *Form {
	f := &Form{kind: kind, target: target, title: title}
	for _, spec := range specs {
		ti := textinput.New()
		ti.Placeholder = spec.placeholder
		ti.CharLimit = spec.limit
		ti.Prompt = ""
		ti.Cursor.SetMode(cursor.CursorStatic)
		if styles.Cursor != nil {
			ti.Cursor.Style = styles.Cursor.Copy()
		}
		if spec.initial != "" {
			ti.SetValue(spec.initial)
		}
		f.fields = append(f.fields, formField{label: spec.label, input: ti})
	}
	if len(f.fields) > 1 {
		f.help = "Tab switches field. Enter to save. Esc to cancel."
	} else {
		f.help = "Enter to save. Esc to cancel."
	}
	f.setFocus(0)
	return f
}

func newRenameFolderForm(id int64, current string) *Form {
	return newForm(formRenameFolder, id, "Rename folder",
		fieldSpec{label: "Name", placeholder: "folder name", initial: current, limit: 128})
}

func newAddScriptForm(folderID int64) *Form {
	f := newForm(formAddScript, folderID, "Add script",
		fieldSpec{label: "Name", placeholder: "script name", limit: 128},
		fieldSpec{label: "Command", placeholder: "echo hello"})
	f.required = true
	return f
}

func newEditScriptForm(id int64, name, command string) *Form {
	f := newForm(formEditScript, id, "Edit "+name,
		fieldSpec{label: "Command", placeholder: "echo hello", initial: command})
	f.required = true
	return f
}

func newRenameScriptForm(id int64, current string) *Form {
	return newForm(formRenameScript, id, "Rename script",
		fieldSpec{label: "Name", placeholder: "script name", initial: current, limit: 128})
}

func (f *Form) Kind() formKind { return f.kind }
func (f *Form) Target() int64  { return f.target }
func (f *Form) Title() string  { return f.title }
func (f *Form) Help() string   { return f.help }
func (f *Form) Error() string  { return f.err }

// Empty reports whether every field is blank.
func (f *Form) Empty() bool {
	for i := range f.fields {
		if f.Value(i) != "" {
			return false
		}
	}
	return true
}

// Value returns the trimmed text of field i.
func (f *Form) Value(i int) string {
	if i < 0 || i >= len(f.fields) {
		return ""
	}
	return strings.TrimSpace(f.fields[i].input.Value())
}

// Update feeds msg to the focused field.
func (f *Form) Update(msg tea.Msg) (tea.Cmd, bool, bool) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			return nil, false, true
		case tea.KeyEnter:
			if !f.required || f.validate() {
				return nil, true, false
			}
			return nil, false, false
		case tea.KeyTab, tea.KeyShiftTab:
			if len(f.fields) > 1 {
				step := 1
				if key.Type == tea.KeyShiftTab {
					step = len(f.fields) - 1
				}
				f.setFocus((f.focus + step) % len(f.fields))
				return nil, false, false
			}
		}
	}
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	f.err = ""
	return cmd, false, false
}

func (f *Form) setFocus(i int) {
	for idx := range f.fields {
		if idx == i {
			f.fields[idx].input.Focus()
		} else {
			f.fields[idx].input.Blur()
		}
	}
	f.focus = i
}

func (f *Form) validate() bool {
	for i, field := range f.fields {
		if f.Value(i) == "" {
			f.err = field.label + " cannot be empty"
			f.setFocus(i)
			return false
		}
	}
	f.err = ""
	return true
}
