package events

import "github.com/atomicstack/shell-script-manager/internal/logging"

type StoreTracer struct{}

var Store = StoreTracer{}

func (StoreTracer) Patch(event string, applied bool) {
	logging.Trace("store.patch", map[string]interface{}{"event": event, "applied": applied})
}

func (StoreTracer) Requery(event, scope string) {
	logging.Trace("store.requery", map[string]interface{}{"event": event, "scope": scope})
}

func (StoreTracer) RevisionGap(event string, err error) {
	logging.Trace("store.revision-gap", map[string]interface{}{"event": event, "error": err.Error()})
}

func (StoreTracer) ExternalChange(path, op string) {
	logging.Trace("store.external-change", map[string]interface{}{"path": path, "op": op})
}
