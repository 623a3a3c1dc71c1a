package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	uistate "github.com/atomicstack/shell-script-manager/internal/ui/state"
)

const (
	defaultViewWidth   = 80
	folderColumnMin    = 16
	folderColumnMax    = 40
	columnSeparator    = " │ "
	activeFolderMarker = "●"
	headerTitle        = "shell scripts"
	infoLifetime       = 5 * time.Second
)

const footerText = "↑/↓ move  tab switch  enter select/run  / filter  n folder  a script  e edit  y copy  r rename  d delete  J/K reorder  q quit"

// View implements tea.Model.
func (m *Model) View() string {
	width := m.viewWidth()
	rows := make([]string, 0, 16)
	rows = append(rows, styles.Header.Render(fitText(headerTitle, width)))
	rows = append(rows, m.renderColumns(width))
	if line := m.filterLine(); line != "" {
		rows = append(rows, fitText(line, width))
	}
	if detail := m.detailLine(); detail != "" {
		rows = append(rows, styles.Detail.Render(fitText(detail, width)))
	}
	rows = append(rows, m.dialogLines(width)...)
	rows = append(rows, m.statusLine(width))
	if m.showFooter {
		rows = append(rows, styles.Footer.Render(fitText(footerText, width)))
	}
	return strings.Join(rows, "\n")
}

func (m *Model) viewWidth() int {
	if m.width <= 0 {
		return defaultViewWidth
	}
	return m.width
}

func (m *Model) columnWidths(width int) (int, int) {
	left := width / 3
	if left < folderColumnMin {
		left = folderColumnMin
	}
	if left > folderColumnMax {
		left = folderColumnMax
	}
	right := width - left - lipgloss.Width(columnSeparator)
	if right < 1 {
		right = 1
	}
	return left, right
}

// renderColumns draws the folder list beside the scripts of the selected
// folder. Both columns are padded to the same number of rows.
func (m *Model) renderColumns(width int) string {
	leftW, rightW := m.columnWidths(width)
	rows := m.maxVisibleItems()
	if rows <= 0 {
		rows = max(len(m.folders.Items), len(m.scripts.Items), 1)
	}

	selected, hasSelection := m.selectedFolder()
	left := make([]string, 0, rows+1)
	left = append(left, m.columnTitle(ColumnFolders, "Folders", leftW))
	left = append(left, m.renderLevel(m.folders, ColumnFolders, leftW, rows, func(item uistate.Item) string {
		if id, ok := item.Int64ID(); ok && hasSelection && id == selected {
			return activeFolderMarker
		}
		return " "
	})...)

	scriptsTitle := "Scripts"
	if hasSelection {
		if folder, ok := m.findFolder(selected); ok {
			scriptsTitle = "Scripts · " + folder.Name
		}
	}
	right := make([]string, 0, rows+1)
	right = append(right, m.columnTitle(ColumnScripts, scriptsTitle, rightW))
	if hasSelection {
		right = append(right, m.renderLevel(m.scripts, ColumnScripts, rightW, rows, nil)...)
	} else {
		right = append(right, styles.Info.Render(fitText("Select a folder", rightW)))
		for len(right) < rows+1 {
			right = append(right, strings.Repeat(" ", rightW))
		}
	}

	sep := make([]string, len(left))
	for i := range sep {
		sep[i] = styles.Separator.Render(columnSeparator)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		strings.Join(left, "\n"),
		strings.Join(sep, "\n"),
		strings.Join(right, "\n"),
	)
}

func (m *Model) columnTitle(column Column, title string, width int) string {
	style := styles.ColumnTitle
	if m.focus == column {
		style = styles.FocusedColumnTitle
	}
	return style.Render(fitText(title, width))
}

// renderLevel returns exactly rows lines for lvl's visible window. marker,
// when set, supplies a one-cell mark drawn after the cursor indicator.
func (m *Model) renderLevel(lvl *level, column Column, width, rows int, marker func(uistate.Item) string) []string {
	lines := make([]string, 0, rows)
	if len(lvl.Items) == 0 {
		msg := "(empty)"
		if lvl.Filter != "" {
			msg = fmt.Sprintf("No matches for %q", lvl.Filter)
		}
		lines = append(lines, styles.Info.Render(fitText(msg, width)))
	}
	start := lvl.ViewportOffset
	if start < 0 || start >= len(lvl.Items) {
		start = 0
	}
	for idx := start; idx < len(lvl.Items) && len(lines) < rows; idx++ {
		lines = append(lines, m.renderItem(lvl, column, idx, width, marker))
	}
	for len(lines) < rows {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return lines
}

func (m *Model) renderItem(lvl *level, column Column, idx, width int, marker func(uistate.Item) string) string {
	item := lvl.Items[idx]
	focused := idx == lvl.Cursor && m.focus == column
	indicatorStyle, lineStyle := styles.ItemIndicator, styles.Item
	if focused {
		indicatorStyle, lineStyle = styles.SelectedItemIndicator, styles.SelectedItem
	}

	head := indicatorStyle.Render("▌")
	used := 1
	if marker != nil {
		mark := marker(item)
		if mark == activeFolderMarker {
			head += styles.ActiveFolderMarker.Render(mark)
		} else {
			head += lineStyle.Render(mark)
		}
		used += lipgloss.Width(mark)
	}

	text := " " + item.Label
	remain := width - used
	if item.Detail == "" {
		return head + lineStyle.Render(fitText(text, remain))
	}
	labelW := min(lipgloss.Width(text)+2, remain)
	body := lineStyle.Render(fitText(text, labelW))
	if rest := remain - labelW; rest > 0 {
		body += styles.Detail.Render(fitText(item.Detail, rest))
	}
	return head + body
}

func (m *Model) filterLine() string {
	lvl := m.activeLevel()
	if m.mode != ModeFilter && lvl.Filter == "" {
		return ""
	}
	prompt := styles.FilterPrompt.Render("/")
	text := styles.Filter.Render(lvl.Filter)
	if m.mode == ModeFilter {
		text += styles.Cursor.Render(" ")
	}
	return prompt + " " + text
}

// detailLine shows the full command of the script under the cursor.
func (m *Model) detailLine() string {
	if m.mode != ModeBrowse && m.mode != ModeFilter {
		return ""
	}
	script, ok := m.currentScript()
	if !ok {
		return ""
	}
	return "$ " + script.Detail
}

func (m *Model) dialogLines(width int) []string {
	switch {
	case m.mode == ModeConfirm && m.confirm != nil:
		help := "y/enter confirm  n/esc cancel"
		if m.Awaiting() {
			help = "working…"
		}
		return []string{
			styles.DialogTitle.Render(fitText(m.confirm.prompt, width)),
			styles.DialogHelp.Render(fitText(help, width)),
		}
	case m.mode == ModeForm && m.form != nil:
		lines := []string{styles.DialogTitle.Render(fitText(m.form.Title(), width))}
		for _, field := range m.form.fields {
			label := styles.DialogLabel.Render(field.label + ": ")
			lines = append(lines, label+field.input.View())
		}
		if err := m.form.Error(); err != "" {
			lines = append(lines, styles.Error.Render(fitText(err, width)))
		} else if m.Awaiting() {
			lines = append(lines, styles.DialogHelp.Render(fitText("working…", width)))
		} else {
			lines = append(lines, styles.DialogHelp.Render(fitText(m.form.Help(), width)))
		}
		return lines
	}
	return nil
}

func (m *Model) statusLine(width int) string {
	switch {
	case m.errMsg != "":
		return styles.Error.Render(fitText("Error: "+m.errMsg, width))
	case m.watchErr != "":
		return styles.Error.Render(fitText("Watch: "+m.watchErr, width))
	}
	if info := m.currentInfo(); info != "" {
		return styles.Info.Render(fitText(info, width))
	}
	if n := len(m.pending); n > 0 {
		return styles.Pending.Render(fitText(fmt.Sprintf("working… (%d)", n), width))
	}
	return ""
}

func (m *Model) handleWindowSizeMsg(msg tea.Msg) tea.Cmd {
	resize, ok := msg.(tea.WindowSizeMsg)
	if !ok {
		return nil
	}
	if !m.fixedWidth {
		m.width = resize.Width
	}
	if !m.fixedHeight {
		m.height = resize.Height
	}
	m.syncViewport()
	return nil
}

// maxVisibleItems is the number of list rows that fit under the fixed
// chrome. Without a known height every row is shown.
func (m *Model) maxVisibleItems() int {
	if m.height <= 0 {
		return -1
	}
	used := 3 // header, column titles, status
	if m.showFooter {
		used++
	}
	if m.mode == ModeFilter || m.activeLevel().Filter != "" {
		used++
	}
	if m.focus == ColumnScripts && (m.mode == ModeBrowse || m.mode == ModeFilter) {
		used++
	}
	switch {
	case m.mode == ModeConfirm && m.confirm != nil:
		used += 2
	case m.mode == ModeForm && m.form != nil:
		used += 2 + len(m.form.fields)
	}
	remain := m.height - used
	if remain < 1 {
		return 1
	}
	return remain
}

func (m *Model) setInfo(message string) {
	m.infoMsg = message
	m.infoExpire = time.Now().Add(infoLifetime)
}

func (m *Model) forceClearInfo() {
	m.infoMsg = ""
	m.infoExpire = time.Time{}
}

func (m *Model) currentInfo() string {
	if m.infoMsg != "" && !m.infoExpire.IsZero() && time.Now().After(m.infoExpire) {
		m.forceClearInfo()
	}
	return m.infoMsg
}

// fitText truncates text to width display cells and pads it with spaces so
// the result is exactly width cells wide.
func fitText(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(text) > width {
		text = truncate.StringWithTail(text, uint(width), "…")
	}
	if pad := width - lipgloss.Width(text); pad > 0 {
		text += strings.Repeat(" ", pad)
	}
	return text
}
