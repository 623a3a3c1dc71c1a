package events

import "github.com/atomicstack/shell-script-manager/internal/logging"

type ScriptTracer struct{}

var Script = ScriptTracer{}

func (ScriptTracer) Add(folderID, scriptID int64, name string) {
	logging.Trace("script.add", map[string]interface{}{"folder": folderID, "id": scriptID, "name": name})
}

func (ScriptTracer) UpdateCommand(id int64) {
	logging.Trace("script.update", map[string]interface{}{"id": id})
}

func (ScriptTracer) Rename(id int64, name string) {
	logging.Trace("script.rename", map[string]interface{}{"id": id, "name": name})
}

func (ScriptTracer) Delete(id int64) {
	logging.Trace("script.delete", map[string]interface{}{"id": id})
}

func (ScriptTracer) Copy(id string) {
	logging.Trace("script.copy", map[string]interface{}{"id": id})
}
