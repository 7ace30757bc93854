package fallback

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/jwt"
)

func TestMemoryIssueResolveRevoke(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour, time.Minute)

	token, err := m.Issue(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	account, ok := m.Resolve(ctx, token)
	if !ok || account != "alice" {
		t.Fatalf("resolve = %q %v, want alice true", account, ok)
	}

	m.Revoke(ctx, token)
	if _, ok := m.Resolve(ctx, token); ok {
		t.Fatal("revoked token still resolves")
	}
}

func TestMemoryEntriesExpire(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour, time.Minute)

	token, err := m.Issue(ctx, "alice", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	if _, ok := m.Resolve(ctx, token); ok {
		t.Fatal("expired token still resolves")
	}
}

func TestMemoryRejectsEmptyAccount(t *testing.T) {
	if _, err := NewMemory(time.Hour, 0).Issue(context.Background(), "", 0); err == nil {
		t.Fatal("expected error for empty account")
	}
}

func TestSignedRoundTrip(t *testing.T) {
	ctx := context.Background()
	manager, err := jwt.NewManager(jwt.Config{TTL: time.Hour, PrivateKey: []byte("0123456789abcdef0123456789abcdef")})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	s := NewSigned(manager)

	token, err := s.Issue(ctx, "bob", 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	account, ok := s.Resolve(ctx, token)
	if !ok || account != "bob" {
		t.Fatalf("resolve = %q %v, want bob true", account, ok)
	}

	// Signed tokens outlive Revoke.
	s.Revoke(ctx, token)
	if _, ok := s.Resolve(ctx, token); !ok {
		t.Fatal("signed token should still resolve after revoke")
	}
	if _, ok := s.Resolve(ctx, "not-a-token"); ok {
		t.Fatal("garbage resolved")
	}
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Signed)(nil)
)
