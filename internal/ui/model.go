package ui

import (
	"reflect"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/atomicstack/shell-script-manager/internal/backend"
	"github.com/atomicstack/shell-script-manager/internal/message"
	"github.com/atomicstack/shell-script-manager/internal/pump"
	"github.com/atomicstack/shell-script-manager/internal/state"
	"github.com/atomicstack/shell-script-manager/internal/theme"
	uistate "github.com/atomicstack/shell-script-manager/internal/ui/state"
)

type level = uistate.Level

// Column identifies one of the two lists.
type Column int

const (
	ColumnFolders Column = iota
	ColumnScripts
)

func (c Column) String() string {
	if c == ColumnScripts {
		return "scripts"
	}
	return "folders"
}

type Mode int

const (
	ModeBrowse Mode = iota
	ModeFilter
	ModeForm
	ModeConfirm
)

const defaultFrameInterval = 16 * time.Millisecond

var styles = theme.Default()

type msgHandler func(tea.Msg) tea.Cmd

// Launcher starts a script's command without blocking. *runner.Runner
// satisfies it.
type Launcher interface {
	Run(command string)
}

// Options wires the model to the dispatch core.
type Options struct {
	Store      state.Reader
	Reducer    *state.Reducer
	Dispatcher *message.Dispatcher
	Pump       *pump.Pump
	Runner     Launcher
	// Clipboard receives copied commands. Nil uses the system clipboard.
	Clipboard func(text string) error
	// Changes carries external database changes. Nil disables watching.
	Changes <-chan backend.Event

	Width         int
	Height        int
	ShowFooter    bool
	Verbose       bool
	FrameInterval time.Duration
	// ManualFrames stops the model from scheduling its own frame ticks; the
	// caller sends frameMsg values instead. Used by Harness.
	ManualFrames bool
}

// Model implements the Bubble Tea model for the script organizer.
type Model struct {
	store      state.Reader
	reducer    *state.Reducer
	dispatcher *message.Dispatcher
	pump       *pump.Pump
	runner     Launcher
	clipboard  func(string) error
	changes    <-chan backend.Event

	folders *level
	scripts *level
	focus   Column
	mode    Mode
	form    *Form
	confirm *confirmDialog
	// awaiting is the command a submitted dialog stays open for.
	awaiting uuid.UUID

	// scriptsFor is the folder whose scripts the scripts column shows.
	scriptsFor    int64
	cursorPlaced  bool
	pending       map[uuid.UUID]string
	errMsg        string
	infoMsg       string
	infoExpire    time.Time
	watchErr      string
	width         int
	height        int
	fixedWidth    bool
	fixedHeight   bool
	showFooter    bool
	verbose       bool
	frameInterval time.Duration
	manualFrames  bool

	handlers map[reflect.Type]msgHandler
}

// NewModel initialises the UI around the shared store.
func NewModel(opts Options) *Model {
	interval := opts.FrameInterval
	if interval <= 0 {
		interval = defaultFrameInterval
	}
	m := &Model{
		store:         opts.Store,
		reducer:       opts.Reducer,
		dispatcher:    opts.Dispatcher,
		pump:          opts.Pump,
		runner:        opts.Runner,
		clipboard:     opts.Clipboard,
		changes:       opts.Changes,
		folders:       uistate.NewLevel(ColumnFolders.String(), "Folders", nil),
		scripts:       uistate.NewLevel(ColumnScripts.String(), "Scripts", nil),
		pending:       make(map[uuid.UUID]string),
		showFooter:    opts.ShowFooter,
		verbose:       opts.Verbose,
		frameInterval: interval,
		manualFrames:  opts.ManualFrames,
	}
	if m.clipboard == nil {
		m.clipboard = clipboard.WriteAll
	}
	if opts.Width > 0 {
		m.width = opts.Width
		m.fixedWidth = true
	}
	if opts.Height > 0 {
		m.height = opts.Height
		m.fixedHeight = true
	}
	m.registerHandlers()
	m.syncFromStore()
	return m
}

// Init is part of the tea.Model interface.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{}
	if !m.manualFrames {
		cmds = append(cmds, m.nextFrame())
	}
	if m.changes != nil {
		cmds = append(cmds, waitForChange(m.changes))
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// Update responds to Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmds := make([]tea.Cmd, 0, 2)
	if handled, cmd := m.handleActiveDialog(msg); handled {
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, m.finishUpdate(cmds)
	}
	if handler := m.handlerFor(msg); handler != nil {
		if cmd := handler(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, m.finishUpdate(cmds)
}

// handleActiveDialog gives key presses to an open form or confirmation.
// Every other message type still reaches its handler so frames keep draining.
func (m *Model) handleActiveDialog(msg tea.Msg) (bool, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); !ok {
		return false, nil
	}
	switch m.mode {
	case ModeForm:
		return m.handleForm(msg)
	case ModeConfirm:
		return m.handleConfirm(msg)
	default:
		return false, nil
	}
}

func (m *Model) registerHandlers() {
	m.handlers = map[reflect.Type]msgHandler{
		reflect.TypeOf(tea.KeyMsg{}):        m.handleKeyMsg,
		reflect.TypeOf(tea.WindowSizeMsg{}): m.handleWindowSizeMsg,
		reflect.TypeOf(frameMsg{}):          m.handleFrameMsg,
		reflect.TypeOf(changeMsg{}):         m.handleChangeMsg,
		reflect.TypeOf(changeDoneMsg{}):     m.handleChangeDoneMsg,
	}
}

func (m *Model) handlerFor(msg tea.Msg) msgHandler {
	if msg == nil || m.handlers == nil {
		return nil
	}
	t := reflect.TypeOf(msg)
	if handler, ok := m.handlers[t]; ok {
		return handler
	}
	if t.Kind() == reflect.Ptr {
		if handler, ok := m.handlers[t.Elem()]; ok {
			return handler
		}
	}
	return nil
}

func (m *Model) finishUpdate(cmds []tea.Cmd) tea.Cmd {
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// dispatch queues cmd and remembers it so its completion can be reported.
// It returns uuid.Nil when there is no dispatcher.
func (m *Model) dispatch(cmd message.Command) uuid.UUID {
	if m.dispatcher == nil {
		return uuid.Nil
	}
	id := m.dispatcher.DispatchCommand(cmd)
	m.pending[id] = cmd.Label()
	return id
}

func (m *Model) activeLevel() *level {
	if m.focus == ColumnScripts {
		return m.scripts
	}
	return m.folders
}

// Focus returns the focused column.
func (m *Model) Focus() Column { return m.focus }

// Mode returns the current interaction mode.
func (m *Model) Mode() Mode { return m.mode }

// Awaiting reports whether an open dialog is waiting for its command.
func (m *Model) Awaiting() bool { return m.awaiting != uuid.Nil }

// Pending returns the number of dispatched commands still running.
func (m *Model) Pending() int { return len(m.pending) }
