package fallback

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const defaultCleanupInterval = 10 * time.Minute

// Memory keeps fallback sessions in process memory with per-entry expiry.
type Memory struct {
	entries *cache.Cache
	ttl     time.Duration
}

// NewMemory returns a Memory store. ttl is used when Issue is given none;
// expired entries are purged every cleanupInterval.
func NewMemory(ttl, cleanupInterval time.Duration) *Memory {
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	return &Memory{
		entries: cache.New(ttl, cleanupInterval),
		ttl:     ttl,
	}
}

func (m *Memory) Issue(_ context.Context, account string, ttl time.Duration) (string, error) {
	if account == "" {
		return "", errors.New("empty account")
	}
	if ttl <= 0 {
		ttl = m.ttl
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	token := id.String()
	m.entries.Set(token, account, ttl)
	return token, nil
}

func (m *Memory) Resolve(_ context.Context, token string) (string, bool) {
	if token == "" {
		return "", false
	}
	v, ok := m.entries.Get(token)
	if !ok {
		return "", false
	}
	account, ok := v.(string)
	return account, ok
}

func (m *Memory) Revoke(_ context.Context, token string) {
	m.entries.Delete(token)
}

// Len returns the number of entries, including expired ones not yet purged.
func (m *Memory) Len() int {
	return m.entries.ItemCount()
}
