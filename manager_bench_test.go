package goSession

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newBenchManager(b *testing.B) *Manager {
	b.Helper()
	mr := miniredis.RunT(b)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b.Cleanup(func() { _ = rdb.Close() })

	m, err := New().WithRedis(rdb).Build()
	if err != nil {
		b.Fatalf("Build: %v", err)
	}
	b.Cleanup(m.Close)
	return m
}

func BenchmarkManagerCreate(b *testing.B) {
	m := newBenchManager(b)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.Create(ctx, "bench", time.Hour); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkManagerGet(b *testing.B) {
	m := newBenchManager(b)
	ctx := context.Background()
	token, err := m.Create(ctx, "bench", time.Hour)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := m.Get(ctx, token); !ok {
			b.Fatal("session lost")
		}
	}
}

func BenchmarkManagerRenew(b *testing.B) {
	m := newBenchManager(b)
	ctx := context.Background()
	token, err := m.Create(ctx, "bench", time.Hour)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !m.Renew(ctx, token, time.Minute) {
			b.Fatal("renew failed")
		}
	}
}
