// Package config loads process configuration from SMSF_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// Fallback modes for sessions issued while the cache is down.
const (
	FallbackMemory = "memory"
	FallbackSigned = "signed"
	FallbackNone   = "none"
)

// Config contains all runtime configuration.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration

	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RedisPoolSize     int
	RedisDialTimeout  time.Duration
	RedisReadTimeout  time.Duration
	RedisWriteTimeout time.Duration

	// DatabaseURL selects the Postgres account store. Empty uses an
	// in-memory store.
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	SessionTTL         time.Duration
	RenewLowWater      time.Duration
	AvailabilityCheck  time.Duration
	SweepInterval      time.Duration
	LoginMaxAttempts   int
	LoginCooldown      time.Duration
	VerificationTTL    time.Duration
	VerificationSends  int
	VerificationWindow time.Duration
	AuditLog           bool
	LatencyHistograms  bool

	FallbackMode   string
	FallbackSecret string

	CookieSecure bool
	CORSOrigins  []string

	// OTelMetrics publishes session counters and HTTP spans through the
	// global OpenTelemetry providers.
	OTelMetrics bool
}

// Load reads .env (when present) and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(EnvString("SMSF_ENV_FILE", ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	cfg := FromEnv()
	return cfg, cfg.Validate()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	return Config{
		HTTPAddr:  EnvString("SMSF_HTTP_ADDR", "0.0.0.0:5000"),
		LogLevel:  EnvString("SMSF_LOG_LEVEL", "info"),
		LogFormat: EnvString("SMSF_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("SMSF_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("SMSF_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("SMSF_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("SMSF_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   EnvDuration("SMSF_HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),

		RedisAddr:         EnvString("SMSF_REDIS_ADDR", "localhost:6379"),
		RedisPassword:     EnvString("SMSF_REDIS_PASSWORD", ""),
		RedisDB:           EnvInt("SMSF_REDIS_DB", 0),
		RedisPoolSize:     EnvInt("SMSF_REDIS_POOL_SIZE", 20),
		RedisDialTimeout:  EnvDuration("SMSF_REDIS_DIAL_TIMEOUT", 3*time.Second),
		RedisReadTimeout:  EnvDuration("SMSF_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWriteTimeout: EnvDuration("SMSF_REDIS_WRITE_TIMEOUT", 3*time.Second),

		DatabaseURL: EnvString("SMSF_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("SMSF_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("SMSF_DB_MIN_CONNS", 0),

		SessionTTL:         EnvDuration("SMSF_SESSION_TTL", 24*time.Hour),
		RenewLowWater:      EnvDuration("SMSF_SESSION_RENEW_LOW_WATER", 12*time.Hour),
		AvailabilityCheck:  EnvDuration("SMSF_CACHE_CHECK_INTERVAL", 30*time.Second),
		SweepInterval:      EnvDuration("SMSF_SWEEP_INTERVAL", 10*time.Minute),
		LoginMaxAttempts:   EnvInt("SMSF_LOGIN_MAX_ATTEMPTS", 5),
		LoginCooldown:      EnvDuration("SMSF_LOGIN_COOLDOWN", 15*time.Minute),
		VerificationTTL:    EnvDuration("SMSF_VERIFICATION_TTL", 10*time.Minute),
		VerificationSends:  EnvInt("SMSF_VERIFICATION_MAX_SENDS", 3),
		VerificationWindow: EnvDuration("SMSF_VERIFICATION_WINDOW", 10*time.Minute),
		AuditLog:           EnvBool("SMSF_AUDIT_LOG", true),
		LatencyHistograms:  EnvBool("SMSF_LATENCY_HISTOGRAMS", false),

		FallbackMode:   strings.ToLower(EnvString("SMSF_FALLBACK_MODE", FallbackMemory)),
		FallbackSecret: EnvString("SMSF_FALLBACK_SECRET", ""),

		CookieSecure: EnvBool("SMSF_COOKIE_SECURE", false),
		CORSOrigins:  EnvList("SMSF_CORS_ORIGINS", nil),

		OTelMetrics: EnvBool("SMSF_OTEL_METRICS", false),
	}
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	switch c.FallbackMode {
	case FallbackMemory, FallbackNone:
	case FallbackSigned:
		if len(c.FallbackSecret) < 32 {
			return errors.New("SMSF_FALLBACK_SECRET must be at least 32 bytes in signed mode")
		}
	default:
		return fmt.Errorf("unknown SMSF_FALLBACK_MODE %q", c.FallbackMode)
	}
	if c.RedisPoolSize <= 0 {
		return errors.New("SMSF_REDIS_POOL_SIZE must be > 0")
	}
	sess := c.Session()
	return sess.Validate()
}

// RedisOptions returns client options for the session cache.
func (c Config) RedisOptions() *redis.Options {
	return &redis.Options{
		Addr:         c.RedisAddr,
		Password:     c.RedisPassword,
		DB:           c.RedisDB,
		PoolSize:     c.RedisPoolSize,
		DialTimeout:  c.RedisDialTimeout,
		ReadTimeout:  c.RedisReadTimeout,
		WriteTimeout: c.RedisWriteTimeout,
		MaxRetries:   1,
	}
}

// Session maps the process settings onto the session layer's Config.
func (c Config) Session() goSession.Config {
	cfg := goSession.DefaultConfig()
	cfg.Session.DefaultTTL = c.SessionTTL
	cfg.Session.RenewLowWater = c.RenewLowWater
	cfg.Availability.CheckInterval = c.AvailabilityCheck
	cfg.Sweeper.Interval = c.SweepInterval
	cfg.Login.MaxAttempts = c.LoginMaxAttempts
	cfg.Login.Cooldown = c.LoginCooldown
	cfg.Login.FallbackTTL = c.SessionTTL
	cfg.Audit.Enabled = c.AuditLog
	cfg.Metrics.EnableLatencyHistograms = c.LatencyHistograms
	return cfg
}
