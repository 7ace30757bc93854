package session

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// cmdCounter is a go-redis hook counting commands sent to Redis.
type cmdCounter struct {
	commands atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.commands.Add(int64(len(cmds)))
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset()          { h.commands.Store(0) }
func (h *cmdCounter) Commands() int64 { return h.commands.Load() }

func newCountedStore(t *testing.T) (*Store, *cmdCounter, *testClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	// Warm the connection so handshake commands are not counted.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}
	counter := &cmdCounter{}
	rdb.AddHook(counter)

	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	return NewStore(rdb, "smsf_session", "user_sessions", clock.Now), counter, clock
}

// Script calls may cost EVALSHA plus an EVAL fallback on first use.
func TestStoreRedisBudget(t *testing.T) {
	store, counter, clock := newCountedStore(t)
	ctx := context.Background()

	counter.Reset()
	saveTestSession(t, store, clock, "tok-budget", "alice", time.Hour)
	if got := counter.Commands(); got > 2 {
		t.Errorf("Save used %d commands; budget is 2", got)
	}

	counter.Reset()
	if _, err := store.Get(ctx, "tok-budget"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := counter.Commands(); got > 3 {
		t.Errorf("Get used %d commands; budget is 3 (GET + rewrite script)", got)
	}

	counter.Reset()
	if _, _, err := store.Renew(ctx, "tok-budget", time.Hour, 12*time.Hour); err != nil {
		t.Fatalf("renew: %v", err)
	}
	if got := counter.Commands(); got > 2 {
		t.Errorf("Renew used %d commands; budget is 2 once scripts are cached", got)
	}

	counter.Reset()
	if _, err := store.Delete(ctx, "tok-budget"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := counter.Commands(); got > 3 {
		t.Errorf("Delete used %d commands; budget is 3 (GET + delete script)", got)
	}

	saveTestSession(t, store, clock, "tok-a", "bob", time.Hour)
	saveTestSession(t, store, clock, "tok-b", "bob", time.Hour)
	counter.Reset()
	if _, err := store.DeleteAll(ctx, "bob"); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if got := counter.Commands(); got > 2 {
		t.Errorf("DeleteAll used %d commands; budget is 2 regardless of session count", got)
	}
}
