package goSession

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper runs CleanupExpired on a fixed interval.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
}

// NewSweeper returns a Sweeper for m. An interval <= 0 uses the configured one.
func NewSweeper(m *Manager, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = m.config.Sweeper.Interval
	}
	return &Sweeper{manager: m, interval: interval}
}

// Run sweeps every interval until ctx is cancelled. It returns nil on
// cancellation so it can share an errgroup with a server.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.manager.logger.InfoContext(ctx, "session sweeper started", slog.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.manager.logger.Info("session sweeper stopped")
			return nil
		case <-ticker.C:
			s.manager.CleanupExpired(ctx)
		}
	}
}
