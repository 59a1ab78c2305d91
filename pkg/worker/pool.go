package worker

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolClosed is returned when a task is submitted after shutdown began.
var ErrPoolClosed = errors.New("worker pool is closed")

// Pool runs submitted tasks on a fixed set of goroutines. Tasks are executed
// in submission order per worker, but concurrently across workers.
type Pool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewPool creates a Pool with the given number of workers. A size below 1 is
// treated as 1.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}

	p := &Pool{
		tasks: make(chan func(), size*2),
		done:  make(chan struct{}),
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}

	go func() {
		p.wg.Wait()
		close(p.done)
	}()

	return p
}

// Submit enqueues a task for execution. It blocks while all workers are busy
// and the queue is full, and returns ErrPoolClosed once shutdown has begun.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.tasks <- task
	return nil
}

// Shutdown rejects new work and waits for in-flight tasks to finish, up to
// the context deadline. Workers still running after the deadline are
// abandoned, not interrupted.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
