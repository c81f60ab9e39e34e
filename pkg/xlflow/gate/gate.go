// Package gate provides the job-scoped permit pool that bounds how many
// expensive inference calls may be outstanding at once.
package gate

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultPermits is used when a non-positive size is requested.
const DefaultPermits = 2

// Gate is a counting permit pool. It is safe for concurrent use.
type Gate struct {
	size int64
	sem  *semaphore.Weighted

	inFlight atomic.Int64
	peak     atomic.Int64
	acquired atomic.Int64
	released atomic.Int64

	// onChange, if set, observes the in-flight count after every change.
	// Calls are serialized by notifyMu so the last one reports the final count.
	onChange func(inFlight int64)
	notifyMu sync.Mutex
}

// Option configures a Gate.
type Option func(*Gate)

// WithObserver registers fn to be called with the in-flight count after
// every acquire and release. Calls are serialized; fn must not block.
func WithObserver(fn func(inFlight int64)) Option {
	return func(g *Gate) { g.onChange = fn }
}

// New returns a gate holding size permits.
func New(size int, opts ...Option) *Gate {
	if size <= 0 {
		size = DefaultPermits
	}
	g := &Gate{size: int64(size), sem: semaphore.NewWeighted(int64(size))}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Permit is one unit of gate capacity held by a caller.
type Permit struct {
	g    *Gate
	once sync.Once
}

// Acquire blocks until a permit is free or ctx is done. On error no permit
// is held.
func (g *Gate) Acquire(ctx context.Context) (*Permit, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	n := g.inFlight.Add(1)
	g.acquired.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	g.notify()
	return &Permit{g: g}, nil
}

// Release returns the permit to its gate. It never blocks; calls after the
// first are no-ops, as are calls on a nil permit.
func (p *Permit) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		p.g.inFlight.Add(-1)
		p.g.released.Add(1)
		p.g.sem.Release(1)
		p.g.notify()
	})
}

func (g *Gate) notify() {
	if g.onChange == nil {
		return
	}
	g.notifyMu.Lock()
	g.onChange(g.inFlight.Load())
	g.notifyMu.Unlock()
}

// Size returns the number of permits.
func (g *Gate) Size() int { return int(g.size) }

// InFlight returns the number of permits currently held.
func (g *Gate) InFlight() int { return int(g.inFlight.Load()) }

// Peak returns the highest InFlight value observed.
func (g *Gate) Peak() int { return int(g.peak.Load()) }

// Acquired returns the total number of successful acquisitions.
func (g *Gate) Acquired() int { return int(g.acquired.Load()) }

// Released returns the total number of releases.
func (g *Gate) Released() int { return int(g.released.Load()) }
