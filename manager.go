package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/google/uuid"
)

// Manager is the public session facade. Cache failures never escape as
// errors from lookups: they degrade to "absent", false, or zero and mark
// the cache unavailable for the rest of the probe interval.
//
// Manager is safe for concurrent use once built.
type Manager struct {
	config   Config
	store    *session.Store
	probe    *availability
	metrics  *Metrics
	audit    *auditDispatcher
	logger   *slog.Logger
	now      func() time.Time
	newToken func() (string, error)
}

// SessionInfo is the caller-visible view of a live session.
type SessionInfo struct {
	Token        string    `json:"-"`
	UserAccount  string    `json:"user_account"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastActivity time.Time `json:"last_activity"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
}

func toSessionInfo(s *session.Session) *SessionInfo {
	return &SessionInfo{
		Token:        s.Token,
		UserAccount:  s.UserAccount,
		CreatedAt:    s.CreatedAt,
		ExpiresAt:    s.ExpiresAt,
		LastActivity: s.LastActivity,
		IPAddress:    s.IPAddress,
		UserAgent:    s.UserAgent,
	}
}

func newUUIDToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Close flushes pending audit events. The Redis client is owned by the caller.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	if m.audit != nil {
		m.audit.Close()
	}
}

// Config returns a copy of the active configuration.
func (m *Manager) Config() Config {
	return m.config
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (m *Manager) AuditDropped() uint64 {
	if m == nil || m.audit == nil {
		return 0
	}
	return m.audit.Dropped()
}

// Metrics returns the live counters. Collaborators such as HTTP handlers
// record their own events through it.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// MetricsSnapshot returns a copy of every session counter.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil || m.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return m.metrics.Snapshot()
}

// IsAvailable reports whether the cache is reachable. The answer is cached
// for the configured check interval; a transport error seen by any other
// operation counts as a failed probe.
func (m *Manager) IsAvailable(ctx context.Context) bool {
	return m.probe.Check(ctx)
}

// cacheError classifies err from the store. Transport failures mark the
// cache down. It reports whether err was a transport failure.
//
// A failure caused by the caller's own context (client gone, request
// deadline) says nothing about the cache and leaves its status alone.
func (m *Manager) cacheError(ctx context.Context, op string, err error) bool {
	if !errors.Is(err, session.ErrRedisUnavailable) {
		return false
	}
	if callerCancelled(ctx, err) {
		m.logger.DebugContext(ctx, "session cache call abandoned by caller", slog.String("op", op), slog.Any("error", err))
		return true
	}
	m.metrics.Inc(MetricCacheUnavailable)
	m.probe.MarkDown()
	m.logger.WarnContext(ctx, "session cache unavailable", slog.String("op", op), slog.Any("error", err))
	return true
}

func callerCancelled(ctx context.Context, err error) bool {
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (m *Manager) onAvailabilityChange(available bool) {
	if available {
		m.logger.Info("session cache available")
		m.emitAudit(context.Background(), auditEventCacheRecovered, true, "", "", nil, nil)
		return
	}
	m.logger.Warn("session cache marked unavailable",
		slog.Duration("retry_after", m.config.Availability.CheckInterval))
	m.emitAudit(context.Background(), auditEventCacheUnavailable, false, "", "", nil, nil)
}

// Create stores a new session for account and returns its token.
//
// A ttl <= 0 uses the configured default. An empty account returns
// ErrInvalidArgument. When the cache is unavailable, Create returns
// ErrSessionCreationFailed and the caller is expected to fall back.
func (m *Manager) Create(ctx context.Context, account string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(account) == "" {
		return "", fmt.Errorf("%w: empty account", ErrInvalidArgument)
	}
	if ttl <= 0 {
		ttl = m.config.Session.DefaultTTL
	}

	if !m.IsAvailable(ctx) {
		m.metrics.Inc(MetricSessionCreateFailed)
		m.emitAudit(ctx, auditEventSessionCreateFailed, false, account, "", session.ErrRedisUnavailable, nil)
		return "", fmt.Errorf("%w: %v", ErrSessionCreationFailed, session.ErrRedisUnavailable)
	}

	token, err := m.newToken()
	if err != nil {
		m.metrics.Inc(MetricSessionCreateFailed)
		return "", fmt.Errorf("%w: token generation: %v", ErrSessionCreationFailed, err)
	}

	now := m.now()
	sess := &session.Session{
		Token:        token,
		UserAccount:  account,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(ttl),
		IPAddress:    clientIPFromContext(ctx),
		UserAgent:    userAgentFromContext(ctx),
	}

	if err := m.store.Save(ctx, sess, ttl); err != nil {
		m.cacheError(ctx, "create", err)
		m.metrics.Inc(MetricSessionCreateFailed)
		m.emitAudit(ctx, auditEventSessionCreateFailed, false, account, "", err, nil)
		return "", fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	m.metrics.Inc(MetricSessionCreated)
	m.emitAudit(ctx, auditEventSessionCreated, true, account, token, nil, map[string]string{
		"ttl": ttl.String(),
	})
	m.logger.DebugContext(ctx, "session created", slog.String("account", account), slog.Duration("ttl", ttl))
	return token, nil
}

// Get returns the live session for token. Missing, expired, corrupt, or
// unreachable all yield (nil, false). Get never extends expiry.
func (m *Manager) Get(ctx context.Context, token string) (*SessionInfo, bool) {
	if token == "" {
		return nil, false
	}
	if !m.IsAvailable(ctx) {
		return nil, false
	}

	start := time.Now()
	sess, err := m.store.Get(ctx, token)
	m.metrics.Observe(MetricLookupLatency, time.Since(start))
	if err != nil {
		m.lookupFailed(ctx, "get", token, err)
		return nil, false
	}

	m.metrics.Inc(MetricSessionHit)
	return toSessionInfo(sess), true
}

func (m *Manager) lookupFailed(ctx context.Context, op, token string, err error) {
	switch {
	case errors.Is(err, session.ErrSessionExpired):
		m.metrics.Inc(MetricSessionExpired)
		m.emitAudit(ctx, auditEventSessionExpired, true, "", token, nil, nil)
	case errors.Is(err, session.ErrSessionNotFound):
		m.metrics.Inc(MetricSessionMiss)
	case errors.Is(err, session.ErrSessionCorrupt):
		m.metrics.Inc(MetricSessionCorrupt)
		m.logger.WarnContext(ctx, "corrupt session record removed",
			slog.String("op", op), slog.String("token_hint", tokenHint(token)), slog.Any("error", err))
	case errors.Is(err, session.ErrSessionConflict):
		m.logger.WarnContext(ctx, "session kept changing during write",
			slog.String("op", op), slog.String("token_hint", tokenHint(token)))
	default:
		m.cacheError(ctx, op, err)
	}
}

// Renew extends the session by additional when its remaining lifetime is at
// or below the low-water mark; above it only last activity is refreshed.
// additional <= 0 uses the configured increment and is capped at
// MaxRenewIncrement. Renew reports false when the session is missing or
// the cache is unreachable.
func (m *Manager) Renew(ctx context.Context, token string, additional time.Duration) bool {
	if token == "" {
		return false
	}
	if additional <= 0 {
		additional = m.config.Session.RenewIncrement
	}
	if additional > m.config.Session.MaxRenewIncrement {
		additional = m.config.Session.MaxRenewIncrement
	}
	if !m.IsAvailable(ctx) {
		return false
	}

	sess, extended, err := m.store.Renew(ctx, token, additional, m.config.Session.RenewLowWater)
	if err != nil {
		m.lookupFailed(ctx, "renew", token, err)
		return false
	}

	if extended {
		m.metrics.Inc(MetricSessionRenewed)
		m.emitAudit(ctx, auditEventSessionRenewed, true, sess.UserAccount, token, nil, map[string]string{
			"expires_at": sess.ExpiresAt.UTC().Format(time.RFC3339),
		})
	} else {
		m.metrics.Inc(MetricSessionTouched)
	}
	return true
}

// Delete removes one session. It reports false when nothing was deleted.
func (m *Manager) Delete(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	if !m.IsAvailable(ctx) {
		return false
	}

	deleted, err := m.store.Delete(ctx, token)
	if err != nil {
		m.cacheError(ctx, "delete", err)
		return false
	}
	if deleted {
		m.metrics.Inc(MetricSessionDeleted)
		m.emitAudit(ctx, auditEventSessionDeleted, true, "", token, nil, nil)
	}
	return deleted
}

// DeleteAll removes every session of account and returns how many existed.
func (m *Manager) DeleteAll(ctx context.Context, account string) int {
	if account == "" {
		return 0
	}
	if !m.IsAvailable(ctx) {
		return 0
	}

	removed, err := m.store.DeleteAll(ctx, account)
	if err != nil {
		m.cacheError(ctx, "delete_all", err)
		return 0
	}

	m.metrics.Add(MetricSessionForceDeleted, uint64(removed))
	m.emitAudit(ctx, auditEventSessionsForceLogout, true, account, "", nil, map[string]string{
		"removed": strconv.Itoa(removed),
	})
	m.logger.InfoContext(ctx, "sessions force-deleted", slog.String("account", account), slog.Int("removed", removed))
	return removed
}

// ActiveSessionCount counts the live sessions of account. Each indexed
// token is re-validated; stale index entries are dropped on the way.
func (m *Manager) ActiveSessionCount(ctx context.Context, account string) int {
	if account == "" {
		return 0
	}
	if !m.IsAvailable(ctx) {
		return 0
	}

	tokens, err := m.store.Tokens(ctx, account)
	if err != nil {
		m.cacheError(ctx, "count", err)
		return 0
	}

	active := 0
	for _, token := range tokens {
		sess, err := m.store.Get(ctx, token)
		switch {
		case err == nil && sess.UserAccount == account:
			active++
		case err == nil:
			// Token indexed under the wrong account.
			if uerr := m.store.Unindex(ctx, account, token); uerr != nil {
				m.cacheError(ctx, "count", uerr)
				return active
			}
		case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionCorrupt):
			if uerr := m.store.Unindex(ctx, account, token); uerr != nil {
				m.cacheError(ctx, "count", uerr)
				return active
			}
		case errors.Is(err, session.ErrSessionExpired):
			m.metrics.Inc(MetricSessionExpired)
		default:
			m.cacheError(ctx, "count", err)
			return active
		}
	}
	return active
}

// CleanupExpired scans all session records and removes the expired and the
// undecodable ones. It returns how many were removed. The scan is
// incremental and never blocks the cache.
func (m *Manager) CleanupExpired(ctx context.Context) int {
	if !m.IsAvailable(ctx) {
		return 0
	}

	start := time.Now()
	removed, err := m.store.Cleanup(ctx)
	if err != nil {
		m.cacheError(ctx, "cleanup", err)
	}

	m.metrics.Add(MetricCleanupRemoved, uint64(removed))
	m.emitAudit(ctx, auditEventCleanup, err == nil, "", "", err, map[string]string{
		"removed": strconv.Itoa(removed),
	})
	m.logger.InfoContext(ctx, "expired sessions cleaned",
		slog.Int("removed", removed), slog.Duration("elapsed", time.Since(start)))
	return removed
}
