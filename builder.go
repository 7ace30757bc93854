package goSession

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a Manager. A Builder can be used once.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	logger    *slog.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the cache client. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the structured logger. Nil discards log output.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit sink and enables the audit dispatcher.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithClock overrides the time source. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the lookup latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a Manager. The first
// availability probe runs here; an unreachable cache does not fail Build.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store := session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.IndexPrefix, now)

	m := &Manager{
		config:   cfg,
		store:    store,
		metrics:  NewMetrics(cfg.Metrics),
		audit:    newAuditDispatcher(cfg.Audit, b.auditSink),
		logger:   logger.With(slog.String("component", "session")),
		now:      now,
		newToken: newUUIDToken,
	}

	m.probe = newAvailability(func(ctx context.Context) error {
		_, err := store.Ping(ctx)
		return err
	}, now, cfg.Availability)
	m.probe.onChange = m.onAvailabilityChange

	if !m.probe.Check(context.Background()) {
		m.logger.Warn("session cache unreachable at startup; logins will use the fallback session mechanism")
	}

	b.built = true
	return m, nil
}
