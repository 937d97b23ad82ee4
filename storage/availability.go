package storage

import (
	"context"
	"sync"
	"time"
)

const DefaultProbeInterval = 15 * time.Second

// availability is the connection-alive flag of a networked backend. Once marked
// down it is re-probed with ping at most once per interval.
type availability struct {
	mu        sync.Mutex
	up        bool
	lastProbe time.Time
	lastErr   error
	interval  time.Duration
	ping      func(ctx context.Context) error
	now       func() time.Time
}

func newAvailability(interval time.Duration, ping func(ctx context.Context) error) *availability {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &availability{
		up:       true,
		interval: interval,
		ping:     ping,
		now:      time.Now,
	}
}

func (a *availability) check(ctx context.Context) bool {
	a.mu.Lock()
	if a.up {
		a.mu.Unlock()
		return true
	}
	if a.now().Sub(a.lastProbe) < a.interval {
		a.mu.Unlock()
		return false
	}
	a.lastProbe = a.now()
	a.mu.Unlock()

	err := a.pingWithin(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.lastErr = err
		return false
	}
	a.up = true
	a.lastErr = nil
	return true
}

func (a *availability) markDown(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.up = false
	a.lastErr = err
	a.lastProbe = a.now()
}

// pingWithin returns once ctx is done even if the driver ignores it. A late
// answer from such a ping is dropped; the next probe decides.
func (a *availability) pingWithin(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- a.ping(ctx) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// probe runs ping right away, used once at startup.
func (a *availability) probe(ctx context.Context) error {
	err := a.pingWithin(ctx)
	if err != nil {
		a.markDown(err)
	}
	return err
}
