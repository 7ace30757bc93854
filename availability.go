package goSession

import (
	"context"
	"sync"
	"time"
)

// availability caches the result of a cache liveness probe for one interval.
// Concurrent callers share a single in-flight probe.
type availability struct {
	mu        sync.Mutex
	ping      func(ctx context.Context) error
	now       func() time.Time
	interval  time.Duration
	timeout   time.Duration
	checked   bool
	available bool
	checkedAt time.Time
	onChange  func(available bool)
}

func newAvailability(ping func(ctx context.Context) error, now func() time.Time, cfg AvailabilityConfig) *availability {
	return &availability{
		ping:     ping,
		now:      now,
		interval: cfg.CheckInterval,
		timeout:  cfg.ProbeTimeout,
	}
}

// Check returns the cached status, probing again once the interval elapsed.
// The probe ignores cancellation of ctx; only the probe timeout bounds it.
func (a *availability) Check(ctx context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if a.checked && now.Sub(a.checkedAt) < a.interval {
		return a.available
	}

	if ctx == nil {
		ctx = context.Background()
	}
	probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	err := a.ping(probeCtx)
	cancel()

	a.record(err == nil, now)
	return a.available
}

// MarkDown records an observed transport failure. The cache stays
// unavailable until the interval elapses from now.
func (a *availability) MarkDown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record(false, a.now())
}

// Status returns the last recorded state without probing.
func (a *availability) Status() (available bool, checkedAt time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.available, a.checkedAt
}

func (a *availability) record(available bool, at time.Time) {
	changed := a.checked && a.available != available
	a.checked = true
	a.available = available
	a.checkedAt = at
	if changed && a.onChange != nil {
		a.onChange(available)
	}
}
