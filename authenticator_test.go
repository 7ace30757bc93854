package goSession

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/fallback"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type stubCredentials struct {
	passwords map[string]string
	err       error
	calls     int
}

func (s *stubCredentials) Authenticate(_ context.Context, account, password string) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	want, ok := s.passwords[account]
	return ok && want == password, nil
}

func newAuthTest(t *testing.T, withFallback bool) (*managerTest, *Authenticator, *stubCredentials) {
	t.Helper()
	mt := newManagerTest(t)
	creds := &stubCredentials{passwords: map[string]string{"alice": "correct horse"}}
	limiter := rate.New(mt.rdb, rate.Config{
		EnableIPThrottle: true,
		MaxLoginAttempts: 3,
		LoginCooldown:    time.Minute,
	})

	var fb fallback.Store
	if withFallback {
		fb = fallback.NewMemory(time.Hour, 0)
	}
	return mt, NewAuthenticator(mt.m, creds, fb, limiter), creds
}

func TestLoginIssuesCacheSession(t *testing.T) {
	mt, auth, _ := newAuthTest(t, true)
	ctx := context.Background()

	res, err := auth.Login(ctx, " alice ", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Degraded || res.Account != "alice" || res.TTL != 24*time.Hour {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !mt.mr.Exists("smsf_session:" + res.Token) {
		t.Fatal("session record not written")
	}

	id, ok := auth.Resolve(ctx, res.Token)
	if !ok || id.Account != "alice" || id.Degraded {
		t.Fatalf("Resolve = %+v, %v", id, ok)
	}
	if got := mt.m.MetricsSnapshot().Counters[MetricLoginSuccess]; got != 1 {
		t.Fatalf("login success counter = %d, want 1", got)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	mt, auth, _ := newAuthTest(t, false)
	ctx := WithClientIP(context.Background(), "198.51.100.4")

	if _, err := auth.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := auth.Login(ctx, "", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("empty account: expected ErrInvalidCredentials, got %v", err)
	}
	if got, _ := mt.mr.Get("smsf_rl:login:alice"); got != "1" {
		t.Fatalf("attempt counter = %q, want 1", got)
	}
}

func TestLoginRateLimitedAfterFailures(t *testing.T) {
	_, auth, creds := newAuthTest(t, false)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := auth.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	before := creds.calls
	if _, err := auth.Login(ctx, "alice", "correct horse"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
	if creds.calls != before {
		t.Fatal("credentials must not be checked while limited")
	}
}

func TestSuccessfulLoginResetsAttempts(t *testing.T) {
	mt, auth, _ := newAuthTest(t, false)
	ctx := context.Background()

	_, _ = auth.Login(ctx, "alice", "wrong")
	if _, err := auth.Login(ctx, "alice", "correct horse"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if mt.mr.Exists("smsf_rl:login:alice") {
		t.Fatal("attempt counter must be reset")
	}
}

func TestLoginCredentialBackendError(t *testing.T) {
	_, auth, creds := newAuthTest(t, true)
	creds.err = errors.New("db down")

	if _, err := auth.Login(context.Background(), "alice", "correct horse"); !errors.Is(err, ErrCredentialBackend) {
		t.Fatalf("expected ErrCredentialBackend, got %v", err)
	}
}

func TestLoginFallsBackWhenCacheDown(t *testing.T) {
	mt, auth, _ := newAuthTest(t, true)
	ctx := context.Background()

	mt.mr.Close()
	res, err := auth.Login(ctx, "alice", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.Degraded {
		t.Fatal("expected a degraded login")
	}

	id, ok := auth.Resolve(ctx, res.Token)
	if !ok || id.Account != "alice" || !id.Degraded {
		t.Fatalf("Resolve = %+v, %v", id, ok)
	}

	snap := mt.m.MetricsSnapshot()
	if snap.Counters[MetricFallbackIssued] != 1 || snap.Counters[MetricFallbackResolved] != 1 {
		t.Fatalf("fallback counters = %d/%d, want 1/1",
			snap.Counters[MetricFallbackIssued], snap.Counters[MetricFallbackResolved])
	}

	if auth.Logout(ctx, res.Token) {
		t.Fatal("fallback logout reports no cache deletion")
	}
	if _, ok := auth.Resolve(ctx, res.Token); ok {
		t.Fatal("revoked fallback token must not resolve")
	}
}

func TestLoginWithoutFallbackFailsWhenCacheDown(t *testing.T) {
	mt, auth, _ := newAuthTest(t, false)
	mt.mr.Close()

	if _, err := auth.Login(context.Background(), "alice", "correct horse"); !errors.Is(err, ErrNoSessionBackend) {
		t.Fatalf("expected ErrNoSessionBackend, got %v", err)
	}
}

func TestResolveRenewsNearExpiry(t *testing.T) {
	mt, auth, _ := newAuthTest(t, false)
	ctx := context.Background()

	res, err := auth.Login(ctx, "alice", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	mt.elapse(20 * time.Hour)

	if _, ok := auth.Resolve(ctx, res.Token); !ok {
		t.Fatal("Resolve failed")
	}
	info, _ := mt.m.Get(ctx, res.Token)
	if want := mt.clock.Now().Add(28 * time.Hour); !info.ExpiresAt.Equal(want) {
		t.Fatalf("expires_at = %v, want %v", info.ExpiresAt, want)
	}
}

func TestLogoutAndForceLogout(t *testing.T) {
	mt, auth, _ := newAuthTest(t, false)
	ctx := context.Background()

	first, _ := auth.Login(ctx, "alice", "correct horse")
	second, _ := auth.Login(ctx, "alice", "correct horse")

	if !auth.Logout(ctx, first.Token) {
		t.Fatal("Logout returned false")
	}
	if auth.Logout(ctx, first.Token) {
		t.Fatal("second Logout must be false")
	}
	if auth.Logout(ctx, "") {
		t.Fatal("empty token Logout must be false")
	}

	mustCreate(t, mt.m, "alice", time.Hour)
	if got := auth.ForceLogout(ctx, "alice"); got != 2 {
		t.Fatalf("ForceLogout = %d, want 2", got)
	}
	if _, ok := auth.Resolve(ctx, second.Token); ok {
		t.Fatal("session survived ForceLogout")
	}
}

func TestLoginSucceedsWhenLimiterResetFails(t *testing.T) {
	var logs bytes.Buffer
	mt := newManagerTest(t, func(b *Builder) {
		b.WithLogger(slog.New(slog.NewTextHandler(&logs, nil)))
	})

	limiterRedis := miniredis.RunT(t)
	limiterClient := redis.NewClient(&redis.Options{Addr: limiterRedis.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = limiterClient.Close() })
	limiter := rate.New(limiterClient, rate.Config{MaxLoginAttempts: 3, LoginCooldown: time.Minute})
	limiterRedis.Close()

	creds := &stubCredentials{passwords: map[string]string{"alice": "correct horse"}}
	auth := NewAuthenticator(mt.m, creds, nil, limiter)

	res, err := auth.Login(context.Background(), "alice", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Degraded || !mt.mr.Exists("smsf_session:"+res.Token) {
		t.Fatalf("expected a cache session, got %+v", res)
	}
	if !strings.Contains(logs.String(), "login limiter reset failed") {
		t.Fatalf("reset failure not logged: %s", logs.String())
	}
}
