package message

import (
	"github.com/google/uuid"

	"github.com/atomicstack/shell-script-manager/internal/logging/events"
)

// Dispatcher is the fire-and-forget entry point for commands and events.
type Dispatcher struct {
	queue *Queue
}

// NewDispatcher returns a dispatcher that feeds q.
func NewDispatcher(q *Queue) *Dispatcher {
	return &Dispatcher{queue: q}
}

// Queue exposes the queue fed by d.
func (d *Dispatcher) Queue() *Queue {
	return d.queue
}

// DispatchCommand enqueues cmd and returns its correlation id.
func (d *Dispatcher) DispatchCommand(cmd Command) uuid.UUID {
	env := CommandEnvelope{ID: uuid.New(), Command: cmd}
	d.push(env)
	return env.ID
}

// DispatchCommandWithReply is DispatchCommand plus a channel that receives the
// Completion once it has been drained.
func (d *Dispatcher) DispatchCommandWithReply(cmd Command) (uuid.UUID, <-chan Completion) {
	reply := make(chan Completion, 1)
	env := CommandEnvelope{ID: uuid.New(), Command: cmd, reply: reply}
	d.push(env)
	return env.ID, reply
}

func (d *Dispatcher) push(env CommandEnvelope) {
	events.Command.Queue(env.ID.String(), env.Command.Label())
	d.queue.Push(env)
}

// DispatchEvent enqueues an event not tied to any command.
func (d *Dispatcher) DispatchEvent(evt Event) {
	d.DispatchEventFor(uuid.Nil, evt)
}

// DispatchEventFor enqueues evt on behalf of command id.
func (d *Dispatcher) DispatchEventFor(id uuid.UUID, evt Event) {
	events.Command.Event(id.String(), evt.Kind())
	d.queue.Push(EventEnvelope{Event: evt, CommandID: id})
}

// Complete enqueues c.
func (d *Dispatcher) Complete(c Completion) {
	d.queue.Push(c)
}
