package events

import "github.com/atomicstack/shell-script-manager/internal/logging"

type UITracer struct{}

type FilterTracer struct{}

type CommandTracer struct{}

type DialogReason string

const (
	ReasonEscape  DialogReason = "escape"
	ReasonEmpty   DialogReason = "empty"
	ReasonConfirm DialogReason = "confirm"
	ReasonFailed  DialogReason = "failed"
	// ReasonGone closes a dialog whose target disappeared underneath it.
	ReasonGone DialogReason = "gone"
)

var (
	UI      = UITracer{}
	Filter  = FilterTracer{}
	Command = CommandTracer{}
)

func (UITracer) Focus(column string) {
	logging.Trace("ui.focus", map[string]interface{}{"column": column})
}

func (UITracer) Cursor(column string, cursor int) {
	logging.Trace("ui.cursor", map[string]interface{}{"column": column, "cursor": cursor})
}

func (UITracer) DialogOpen(kind string, target int64) {
	logging.Trace("ui.dialog.open", map[string]interface{}{"kind": kind, "target": target})
}

func (UITracer) DialogClose(kind string, reason DialogReason) {
	logging.Trace("ui.dialog.close", map[string]interface{}{"kind": kind, "reason": string(reason)})
}

func (UITracer) DialogWait(kind string, id string) {
	logging.Trace("ui.dialog.wait", map[string]interface{}{"kind": kind, "id": id})
}

func (UITracer) Drain(messages int) {
	logging.Trace("ui.drain", map[string]interface{}{"messages": messages})
}

func (FilterTracer) Cleared(column string) {
	logging.Trace("filter.clear", map[string]interface{}{"column": column})
}

func (FilterTracer) Append(column, filter string) {
	logging.Trace("filter.append", map[string]interface{}{"column": column, "filter": filter})
}

func (FilterTracer) Backspace(column, filter string) {
	logging.Trace("filter.backspace", map[string]interface{}{"column": column, "filter": filter})
}

func (CommandTracer) Queue(id, label string) {
	logging.Trace("command.queue", map[string]interface{}{"id": id, "label": label})
}

func (CommandTracer) Start(id, label string) {
	logging.Trace("command.start", map[string]interface{}{"id": id, "label": label})
}

func (CommandTracer) Skip(id, label, reason string) {
	logging.Trace("command.skip", map[string]interface{}{"id": id, "label": label, "reason": reason})
}

func (CommandTracer) Event(id, name string) {
	logging.Trace("command.event", map[string]interface{}{"id": id, "event": name})
}

func (CommandTracer) Result(id, label string, err error) {
	payload := map[string]interface{}{"id": id, "label": label}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("command.result", payload)
}
