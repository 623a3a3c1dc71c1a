package message

import (
	"sync"

	"github.com/google/uuid"
)

// Message is anything that travels through the Queue.
type Message interface {
	isMessage()
}

// CommandEnvelope correlates a queued command with its eventual Completion.
type CommandEnvelope struct {
	ID      uuid.UUID
	Command Command
	reply   chan Completion
}

// EventEnvelope carries an event and, when raised by a command, that
// command's correlation id.
type EventEnvelope struct {
	Event     Event
	CommandID uuid.UUID
}

// Completion reports that the task for command ID finished. Err is nil on
// success. It is always queued after any event the task raised.
type Completion struct {
	ID      uuid.UUID
	Command Command
	Err     error
	reply   chan Completion
}

func (CommandEnvelope) isMessage() {}
func (EventEnvelope) isMessage()   {}
func (Completion) isMessage()      {}

// Complete builds the Completion for this envelope.
func (e CommandEnvelope) Complete(err error) Completion {
	return Completion{ID: e.ID, Command: e.Command, Err: err, reply: e.reply}
}

// Deliver hands c to whoever asked for a reply. It never blocks.
func (c Completion) Deliver() {
	if c.reply == nil {
		return
	}
	select {
	case c.reply <- c:
	default:
	}
}

// Queue is an unbounded FIFO. Push never blocks.
type Queue struct {
	mu     sync.Mutex
	items  []Message
	notify chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Push appends m.
func (q *Queue) Push(m Message) {
	q.mu.Lock()
	q.items = append(q.items, m)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// TakeAll removes and returns everything queued so far, oldest first.
func (q *Queue) TakeAll() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	taken := q.items
	q.items = nil
	return taken
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Ready is signalled after a Push. A single signal may cover several pushes.
func (q *Queue) Ready() <-chan struct{} {
	return q.notify
}
