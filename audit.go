package goSession

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"
)

const (
	auditEventSessionCreated      = "session_created"
	auditEventSessionCreateFailed = "session_create_failed"
	auditEventSessionExpired      = "session_expired"
	auditEventSessionRenewed      = "session_renewed"
	auditEventSessionDeleted      = "session_deleted"
	auditEventSessionsForceLogout = "sessions_force_logout"
	auditEventCacheUnavailable    = "cache_unavailable"
	auditEventCacheRecovered      = "cache_recovered"
	auditEventCleanup             = "sessions_cleanup"
	auditEventLoginSuccess        = "login_success"
	auditEventLoginFailure        = "login_failure"
	auditEventLoginFallback       = "login_fallback"
)

// tokenHintLength is how much of a token audit events carry.
const tokenHintLength = 8

// AuditEvent is one session lifecycle record. Tokens are never carried in
// full; TokenHint holds a short prefix for correlation.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Account   string            `json:"account,omitempty"`
	TokenHint string            `json:"token_hint,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink forwards events to a buffered channel.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON document per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// SlogSink logs events through a structured logger at info level.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.logger == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
	}
	if event.Account != "" {
		attrs = append(attrs, slog.String("account", event.Account))
	}
	if event.TokenHint != "" {
		attrs = append(attrs, slog.String("token_hint", event.TokenHint))
	}
	if event.IP != "" {
		attrs = append(attrs, slog.String("ip", event.IP))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.String(k, v))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
}

func tokenHint(token string) string {
	if len(token) <= tokenHintLength {
		return token
	}
	return token[:tokenHintLength]
}

func (m *Manager) emitAudit(ctx context.Context, eventType string, success bool, account, token string, err error, metadata map[string]string) {
	if m == nil || m.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: m.now().UTC(),
		EventType: eventType,
		Account:   account,
		TokenHint: tokenHint(token),
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}

	m.audit.Emit(ctx, event)
}
