package goSession

import (
	"errors"
	"strings"
	"time"
)

// Config holds every tunable of the session layer.
//
// Config values are copied at Build time; later changes have no effect on a running Manager.
type Config struct {
	Session      SessionConfig
	Availability AvailabilityConfig
	Sweeper      SweeperConfig
	Login        LoginConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls record layout and lifetime.
type SessionConfig struct {
	RedisPrefix       string
	IndexPrefix       string
	DefaultTTL        time.Duration
	RenewIncrement    time.Duration
	MaxRenewIncrement time.Duration
	// RenewLowWater is the remaining lifetime at or below which Renew extends expiry.
	RenewLowWater time.Duration
}

/*
====================================
AVAILABILITY CONFIG
====================================
*/

// AvailabilityConfig controls the cached liveness probe.
type AvailabilityConfig struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
}

/*
====================================
SWEEPER CONFIG
====================================
*/

// SweeperConfig controls the periodic expired-session sweep.
type SweeperConfig struct {
	Interval time.Duration
}

/*
====================================
LOGIN CONFIG
====================================
*/

// LoginConfig controls the Authenticator.
type LoginConfig struct {
	MaxAttempts      int
	Cooldown         time.Duration
	EnableIPThrottle bool
	// FallbackTTL is the lifetime of tokens issued while the cache is down.
	FallbackTTL time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RedisPrefix:       "smsf_session",
			IndexPrefix:       "user_sessions",
			DefaultTTL:        24 * time.Hour,
			RenewIncrement:    24 * time.Hour,
			MaxRenewIncrement: 24 * time.Hour,
			RenewLowWater:     12 * time.Hour,
		},
		Availability: AvailabilityConfig{
			CheckInterval: 30 * time.Second,
			ProbeTimeout:  2 * time.Second,
		},
		Sweeper: SweeperConfig{
			Interval: 10 * time.Minute,
		},
		Login: LoginConfig{
			MaxAttempts:      5,
			Cooldown:         15 * time.Minute,
			EnableIPThrottle: true,
			FallbackTTL:      24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the Manager cannot run with.
func (c *Config) Validate() error {
	// Session
	if strings.TrimSpace(c.Session.RedisPrefix) == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if strings.TrimSpace(c.Session.IndexPrefix) == "" {
		return errors.New("Session IndexPrefix must not be empty")
	}
	if c.Session.RedisPrefix == c.Session.IndexPrefix ||
		strings.HasPrefix(c.Session.IndexPrefix, c.Session.RedisPrefix+":") {
		return errors.New("Session IndexPrefix must not overlap RedisPrefix")
	}
	if c.Session.DefaultTTL <= 0 {
		return errors.New("Session DefaultTTL must be > 0")
	}
	if c.Session.RenewIncrement <= 0 {
		return errors.New("Session RenewIncrement must be > 0")
	}
	if c.Session.MaxRenewIncrement <= 0 {
		return errors.New("Session MaxRenewIncrement must be > 0")
	}
	if c.Session.RenewIncrement > c.Session.MaxRenewIncrement {
		return errors.New("Session RenewIncrement must be <= MaxRenewIncrement")
	}
	if c.Session.RenewLowWater < 0 {
		return errors.New("Session RenewLowWater must be >= 0")
	}

	// Availability
	if c.Availability.CheckInterval <= 0 {
		return errors.New("Availability CheckInterval must be > 0")
	}
	if c.Availability.ProbeTimeout <= 0 {
		return errors.New("Availability ProbeTimeout must be > 0")
	}

	// Sweeper
	if c.Sweeper.Interval <= 0 {
		return errors.New("Sweeper Interval must be > 0")
	}

	// Login
	if c.Login.MaxAttempts <= 0 {
		return errors.New("Login MaxAttempts must be > 0")
	}
	if c.Login.Cooldown <= 0 {
		return errors.New("Login Cooldown must be > 0")
	}
	if c.Login.FallbackTTL <= 0 {
		return errors.New("Login FallbackTTL must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
