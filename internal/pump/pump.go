// Package pump drains the message queue once per UI frame.
package pump

import (
	"context"
	"time"

	"github.com/atomicstack/shell-script-manager/internal/data/dispatcher"
	"github.com/atomicstack/shell-script-manager/internal/logging/events"
	"github.com/atomicstack/shell-script-manager/internal/message"
)

// Executor runs commands. *command.Bus satisfies it.
type Executor interface {
	Execute(env message.CommandEnvelope)
}

// Handler applies events. *dispatcher.Dispatcher satisfies it.
type Handler interface {
	Handle(evt message.Event) dispatcher.Result
}

// Waiter reports when background work has finished. *worker.Pool satisfies it.
type Waiter interface {
	Wait()
}

// Report summarises one drain.
type Report struct {
	Commands    int
	Events      int
	Completions []message.Completion
	Results     []dispatcher.Result
}

// Empty reports whether nothing was drained.
func (r Report) Empty() bool {
	return r.Commands == 0 && r.Events == 0 && len(r.Completions) == 0
}

// Pump routes queued messages. It never performs I/O itself.
type Pump struct {
	queue    *message.Queue
	commands Executor
	events   Handler
	work     Waiter
}

func New(queue *message.Queue, commands Executor, handler Handler, work Waiter) *Pump {
	return &Pump{queue: queue, commands: commands, events: handler, work: work}
}

// Drain processes every message queued before the call, oldest first.
// Messages queued while draining wait for the next call.
func (p *Pump) Drain() Report {
	var rep Report
	msgs := p.queue.TakeAll()
	if len(msgs) == 0 {
		return rep
	}
	for _, msg := range msgs {
		switch m := msg.(type) {
		case message.CommandEnvelope:
			rep.Commands++
			p.commands.Execute(m)
		case message.EventEnvelope:
			rep.Events++
			rep.Results = append(rep.Results, p.events.Handle(m.Event))
		case message.Completion:
			rep.Completions = append(rep.Completions, m)
			m.Deliver()
		}
	}
	events.UI.Drain(len(msgs))
	return rep
}

// Settle drains repeatedly until the queue is empty and no background work
// remains, merging the reports. It is meant for headless callers and tests.
func (p *Pump) Settle(ctx context.Context) (Report, error) {
	var total Report
	for {
		rep := p.Drain()
		total.Commands += rep.Commands
		total.Events += rep.Events
		total.Completions = append(total.Completions, rep.Completions...)
		total.Results = append(total.Results, rep.Results...)

		if err := p.waitIdle(ctx); err != nil {
			return total, err
		}
		if p.queue.Len() == 0 {
			return total, nil
		}
	}
}

func (p *Pump) waitIdle(ctx context.Context) error {
	if p.work == nil {
		return ctx.Err()
	}
	done := make(chan struct{})
	go func() {
		p.work.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains every interval until ctx is cancelled, passing each non-empty
// report to onDrain.
func (p *Pump) Run(ctx context.Context, interval time.Duration, onDrain func(Report)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if rep := p.Drain(); !rep.Empty() && onDrain != nil {
				onDrain(rep)
			}
		}
	}
}
