// Package worker runs asynchronous tasks with bounded concurrency.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/atomicstack/shell-script-manager/internal/logging"
)

// ErrClosed is returned by Go after Close.
var ErrClosed = errors.New("worker pool closed")

// Task is a unit of work. ctx is cancelled when the pool closes.
type Task func(ctx context.Context)

// Pool runs tasks on goroutines, at most size at a time. Go never blocks.
type Pool struct {
	sem *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New returns a pool running at most size tasks concurrently.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Go schedules task. Tasks still waiting for a slot when the pool closes are
// dropped.
func (p *Pool) Go(label string, task Task) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			logging.Error(fmt.Errorf("task %s dropped: %w", label, err))
			return
		}
		defer p.sem.Release(1)
		if err := p.ctx.Err(); err != nil {
			logging.Error(fmt.Errorf("task %s dropped: %w", label, err))
			return
		}
		task(p.ctx)
	}()
	return nil
}

// Wait blocks until every scheduled task has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Close stops accepting tasks, cancels the pool context and waits for running
// tasks to return.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.cancel()
	p.wg.Wait()
}
