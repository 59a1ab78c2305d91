package sqs

import (
	"context"
	"sync"
)

// Future is a deferred result. It is resolved exactly once; later
// completions are ignored.
type Future struct {
	done  chan struct{}
	once  sync.Once
	value any
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// resolvedFuture returns a Future already completed with the given outcome.
func resolvedFuture(value any, err error) *Future {
	f := newFuture()
	f.complete(value, err)
	return f
}

func (f *Future) complete(value any, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Done returns a channel closed when the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Get blocks until the result is available and returns it.
func (f *Future) Get() (any, error) {
	<-f.done
	return f.value, f.err
}

// GetWithContext blocks until the result is available or the context ends.
func (f *Future) GetWithContext(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
