package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/redis/go-redis/v9"
)

var nonAccountChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

type seeded struct {
	account string
	token   string
}

func main() {
	var (
		sessions    = flag.Int("sessions", 20000, "number of sessions to seed")
		accounts    = flag.Int("accounts", 2000, "number of distinct accounts owning the sessions")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (get + renew + count)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, SMSF_REDIS_ADDR env or miniredis is used")
		seed        = flag.Int64("seed", 42, "fake data seed")
	)
	flag.Parse()

	if *sessions <= 0 || *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("SMSF_REDIS_ADDR")
	}

	var (
		cleanup func()
		client  *redis.Client
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewClient(&redis.Options{Addr: mr.Addr(), PoolSize: *concurrency})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr, PoolSize: *concurrency})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	manager, err := goSession.New().WithRedis(client).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build manager: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()
	if !manager.IsAvailable(ctx) {
		fmt.Fprintln(os.Stderr, "session cache unreachable")
		os.Exit(1)
	}

	faker := gofakeit.New(*seed)
	names := make([]string, *accounts)
	for i := range names {
		names[i] = fmt.Sprintf("%s_%d", nonAccountChars.ReplaceAllString(faker.Username(), ""), i)
	}

	states := make([]seeded, *sessions)
	fmt.Printf("seeding %d sessions over %d accounts...\n", *sessions, *accounts)
	startSeed := time.Now()
	for i := range states {
		account := names[i%len(names)]
		sctx := goSession.WithUserAgent(goSession.WithClientIP(ctx, faker.IPv4Address()), faker.UserAgent())
		token, err := manager.Create(sctx, account, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create failed: %v\n", err)
			os.Exit(1)
		}
		states[i] = seeded{account: account, token: token}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	getStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand) bool {
		_, ok := manager.Get(ctx, states[r.Intn(len(states))].token)
		return ok
	})
	renewStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand) bool {
		return manager.Renew(ctx, states[r.Intn(len(states))].token, 0)
	})
	countStats := runPhase(*ops/10+1, *concurrency, 104729, func(r *rand.Rand) bool {
		return manager.ActiveSessionCount(ctx, names[r.Intn(len(names))]) > 0
	})

	fmt.Println("---- results ----")
	printStats("get", getStats)
	printStats("renew", renewStats)
	printStats("count", countStats)
}

// runPhase spreads ops calls of op over concurrency workers. op reports
// success; failures are counted but do not stop the phase.
func runPhase(ops, concurrency int, salt int64, op func(r *rand.Rand) bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*salt))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				ok := op(r)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
