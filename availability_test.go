package goSession

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakePing struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakePing) ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakePing) set(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func newTestAvailability(p *fakePing, clock *testClock) *availability {
	return newAvailability(p.ping, clock.Now, AvailabilityConfig{
		CheckInterval: 30 * time.Second,
		ProbeTimeout:  time.Second,
	})
}

func TestAvailabilityCachesResult(t *testing.T) {
	p := &fakePing{}
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	a := newTestAvailability(p, clock)
	ctx := context.Background()

	if !a.Check(ctx) {
		t.Fatal("expected available")
	}
	p.set(errors.New("down"))
	clock.advance(29 * time.Second)
	if !a.Check(ctx) {
		t.Fatal("cached result must hold within the interval")
	}
	if p.calls != 1 {
		t.Fatalf("probe calls = %d, want 1", p.calls)
	}

	clock.advance(time.Second)
	if a.Check(ctx) {
		t.Fatal("expected unavailable after re-probe")
	}
	if p.calls != 2 {
		t.Fatalf("probe calls = %d, want 2", p.calls)
	}
}

func TestAvailabilityMarkDownHoldsForInterval(t *testing.T) {
	p := &fakePing{}
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	a := newTestAvailability(p, clock)
	ctx := context.Background()

	a.Check(ctx)
	clock.advance(10 * time.Second)
	a.MarkDown()

	clock.advance(29 * time.Second)
	if a.Check(ctx) {
		t.Fatal("mark down must hold for a full interval")
	}
	clock.advance(time.Second)
	if !a.Check(ctx) {
		t.Fatal("expected recovery after the interval")
	}

	available, checkedAt := a.Status()
	if !available || !checkedAt.Equal(clock.Now()) {
		t.Fatalf("Status = %v, %v", available, checkedAt)
	}
}

func TestAvailabilityOnChangeFiresOnTransitions(t *testing.T) {
	p := &fakePing{}
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	a := newTestAvailability(p, clock)
	var changes []bool
	a.onChange = func(available bool) { changes = append(changes, available) }
	ctx := context.Background()

	a.Check(ctx)
	a.MarkDown()
	a.MarkDown()
	clock.advance(30 * time.Second)
	a.Check(ctx)
	clock.advance(30 * time.Second)
	a.Check(ctx)

	if len(changes) != 2 || changes[0] || !changes[1] {
		t.Fatalf("changes = %v, want [false true]", changes)
	}
}
