package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	if cfg.RedisPoolSize != 20 {
		t.Fatalf("RedisPoolSize = %d, want 20", cfg.RedisPoolSize)
	}
	opts := cfg.RedisOptions()
	if opts.DialTimeout != 3*time.Second || opts.ReadTimeout != 3*time.Second || opts.WriteTimeout != 3*time.Second {
		t.Fatalf("unexpected redis timeouts: %+v", opts)
	}
	sess := cfg.Session()
	if sess.Session.DefaultTTL != 24*time.Hour || sess.Availability.CheckInterval != 30*time.Second {
		t.Fatalf("unexpected session config: %+v", sess)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SMSF_SESSION_TTL", "2h")
	t.Setenv("SMSF_SESSION_RENEW_LOW_WATER", "1h")
	t.Setenv("SMSF_REDIS_POOL_SIZE", "not-a-number")
	t.Setenv("SMSF_CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("SMSF_FALLBACK_MODE", "SIGNED")
	t.Setenv("SMSF_FALLBACK_SECRET", "0123456789abcdef0123456789abcdef")

	cfg := FromEnv()
	if cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.RedisPoolSize != 20 {
		t.Fatalf("malformed pool size must fall back to default, got %d", cfg.RedisPoolSize)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.FallbackMode != FallbackSigned {
		t.Fatalf("FallbackMode = %q", cfg.FallbackMode)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsShortSigningSecret(t *testing.T) {
	cfg := FromEnv()
	cfg.FallbackMode = FallbackSigned
	cfg.FallbackSecret = "short"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected short secret to be rejected")
	}

	cfg.FallbackMode = "cookie"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unknown fallback mode to be rejected")
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smsf.env")
	if err := os.WriteFile(path, []byte("SMSF_HTTP_ADDR=127.0.0.1:9090\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("SMSF_ENV_FILE", path)
	t.Setenv("SMSF_HTTP_ADDR", "")
	os.Unsetenv("SMSF_HTTP_ADDR")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9090" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
}

func TestLoadWithoutEnvFile(t *testing.T) {
	t.Setenv("SMSF_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	if _, err := Load(); err != nil {
		t.Fatalf("missing env file must be ignored: %v", err)
	}
}
