package events

import "github.com/atomicstack/shell-script-manager/internal/logging"

type FolderTracer struct{}

var Folder = FolderTracer{}

func (FolderTracer) Create(name string, ordering int) {
	logging.Trace("folder.create", map[string]interface{}{"name": name, "ordering": ordering})
}

func (FolderTracer) Select(id int64) {
	logging.Trace("folder.select", map[string]interface{}{"id": id})
}

func (FolderTracer) Delete(id int64, remaining int) {
	logging.Trace("folder.delete", map[string]interface{}{"id": id, "remaining": remaining})
}

func (FolderTracer) Rename(id int64, name string) {
	logging.Trace("folder.rename", map[string]interface{}{"id": id, "name": name})
}

func (FolderTracer) Reorder(from, to int) {
	logging.Trace("folder.reorder", map[string]interface{}{"from": from, "to": to})
}
