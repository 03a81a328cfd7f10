// Package workerpool bounds the number of external processes spawned at
// once during the provider check fan-out.
package workerpool

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/updeck/updeck/internal/logging"
)

var log = logging.L("workerpool")

// Task is a unit of work submitted to the pool.
type Task func()

// Pool is a bounded goroutine pool. Tasks run in submission order subject
// to worker availability; a panicking task is contained and logged.
type Pool struct {
	queue     chan Task
	wg        sync.WaitGroup
	accepting atomic.Bool
	closeOnce sync.Once
}

// New creates a pool running at most maxWorkers tasks concurrently.
func New(maxWorkers int) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	p := &Pool{
		queue: make(chan Task),
	}
	p.accepting.Store(true)

	for i := 0; i < maxWorkers; i++ {
		go p.worker()
	}

	return p
}

// Submit enqueues a task, blocking until a worker can take it. Returns
// false if the pool has been closed.
func (p *Pool) Submit(task Task) bool {
	if !p.accepting.Load() {
		return false
	}

	p.wg.Add(1)
	p.queue <- task
	return true
}

// Wait blocks until every submitted task has finished or ctx expires.
func (p *Pool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and lets workers exit once the queue drains.
func (p *Pool) Close() {
	p.accepting.Store(false)
	p.closeOnce.Do(func() {
		go func() {
			p.wg.Wait()
			close(p.queue)
		}()
	})
}

func (p *Pool) worker() {
	for task := range p.queue {
		p.run(task)
	}
}

// run executes one task with panic containment. wg.Done pairs with the
// wg.Add in Submit.
func (p *Pool) run(task Task) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Error("task panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	task()
}
