// Package workpool runs CPU-bound work on a fixed number of goroutines.
//
// Submission blocks while every worker is busy, which gives callers
// natural back-pressure. The pool is independent of the inference gate.
package workpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned when submitting to a closed pool.
var ErrClosed = errors.New("workpool: closed")

type task func()

// Pool is a fixed-size set of worker goroutines.
type Pool struct {
	size  int
	tasks chan task
	g     errgroup.Group

	mu     sync.RWMutex
	closed bool
}

// New starts a pool with the given number of workers; non-positive sizes
// default to runtime.NumCPU().
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{size: workers, tasks: make(chan task)}
	for i := 0; i < workers; i++ {
		p.g.Go(func() error {
			for t := range p.tasks {
				t()
			}
			return nil
		})
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Submit hands fn to an idle worker, blocking until one is free or ctx is
// done.
func (p *Pool) Submit(ctx context.Context, fn func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.tasks <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and waits for running tasks to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	_ = p.g.Wait()
}

type outcome[T any] struct {
	val T
	err error
}

// Run executes fn on the pool and waits for its result. If ctx is done
// before a worker picks fn up, fn never runs. If ctx is done while fn is
// running, Run returns ctx.Err() and fn's result is discarded.
func Run[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (T, error) {
	done := make(chan outcome[T], 1)
	err := p.Submit(ctx, func() {
		var o outcome[T]
		defer func() {
			if r := recover(); r != nil {
				o.err = &PanicError{Value: r}
			}
			done <- o
		}()
		o.val, o.err = fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	select {
	case o := <-done:
		return o.val, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("workpool: task panicked: %v", e.Value)
}
