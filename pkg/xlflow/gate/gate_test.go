package gate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewDefaultsSize(t *testing.T) {
	if got := New(0).Size(); got != DefaultPermits {
		t.Errorf("New(0).Size() = %d, expected %d", got, DefaultPermits)
	}
	if got := New(5).Size(); got != 5 {
		t.Errorf("New(5).Size() = %d, expected 5", got)
	}
}

func TestGateNeverExceedsSize(t *testing.T) {
	const size = 3
	var over atomic.Bool
	g := New(size, WithObserver(func(n int64) {
		if n > size {
			over.Store(true)
		}
	}))

	var running atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := g.Acquire(context.Background())
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			defer p.Release()
			if n := running.Add(1); n > size {
				over.Store(true)
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
		}()
	}
	wg.Wait()

	if over.Load() {
		t.Fatalf("more than %d permits were held at once", size)
	}
	if g.Peak() > size {
		t.Errorf("Peak() = %d, expected <= %d", g.Peak(), size)
	}
	if g.Acquired() != 50 || g.Released() != 50 {
		t.Errorf("Acquired/Released = %d/%d, expected 50/50", g.Acquired(), g.Released())
	}
	if g.InFlight() != 0 {
		t.Errorf("InFlight() = %d after all releases", g.InFlight())
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	g := New(1)
	p, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	p.Release()
	p.Release()
	if g.Released() != 1 {
		t.Errorf("Released() = %d, expected 1", g.Released())
	}

	// A double release must not have minted a second permit.
	p1, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer p1.Release()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Acquire(ctx); err == nil {
		t.Fatalf("second Acquire on a size-1 gate should block until ctx expires")
	}

	var nilPermit *Permit
	nilPermit.Release()
}

func TestAcquireCanceled(t *testing.T) {
	g := New(1)
	held, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	if _, err := g.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Acquire error = %v, expected context.Canceled", err)
	}
	if g.InFlight() != 1 {
		t.Errorf("canceled Acquire must not hold a permit; InFlight() = %d", g.InFlight())
	}

	held.Release()
	p, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after release failed: %v", err)
	}
	p.Release()
}

func TestObserverReportsFinalCount(t *testing.T) {
	var last atomic.Int64
	last.Store(-1)
	g := New(4, WithObserver(func(n int64) { last.Store(n) }))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := g.Acquire(context.Background())
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			p.Release()
		}()
	}
	wg.Wait()
	if got := last.Load(); got != 0 {
		t.Errorf("last observed in-flight = %d, expected 0", got)
	}
}
