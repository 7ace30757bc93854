package accounts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration tests are opt-in and require SMSF_TEST_DATABASE_URL.

func mustOpenTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("SMSF_TEST_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: SMSF_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	pool, err := NewPool(ctx, PoolConfig{DatabaseURL: raw, MaxConns: 4})
	if err != nil {
		t.Skipf("integration test skipped: Postgres unreachable: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func mustCreateTestSchema(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	schema := fmt.Sprintf("smsf_test_%d", time.Now().UnixNano())
	ctx := context.Background()
	if _, err := pool.Exec(ctx, `CREATE SCHEMA `+pgx.Identifier{schema}.Sanitize()); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DROP SCHEMA `+pgx.Identifier{schema}.Sanitize()+` CASCADE`)
	})
	return schema
}

func TestPostgresCreateAndAuthenticate(t *testing.T) {
	pool := mustOpenTestPool(t)
	schema := mustCreateTestSchema(t, pool)
	hasher := testHasher(t)

	store, err := NewPostgres(pool, hasher, WithSchema(schema))
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := Register(ctx, store, hasher, "alice", "alice@example.com", "s3cret-pass"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := Register(ctx, store, hasher, "alice", "other@example.com", "s3cret-pass"); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("duplicate: expected ErrAccountExists, got %v", err)
	}

	ok, err := store.Authenticate(ctx, "alice", "s3cret-pass")
	if err != nil || !ok {
		t.Fatalf("Authenticate = %v, %v; want true", ok, err)
	}
	ok, err = store.Authenticate(ctx, "nobody", "s3cret-pass")
	if err != nil || ok {
		t.Fatalf("Authenticate unknown = %v, %v; want false", ok, err)
	}
}

func TestWithSchemaRejectsBadIdentifier(t *testing.T) {
	p := &Postgres{}
	if err := WithSchema(`public"; DROP`)(p); err == nil {
		t.Fatal("expected invalid schema to be rejected")
	}
}
