package accounts

import (
	"context"
	"sync"

	"github.com/MrEthical07/goSession/password"
)

// Memory is an in-process Store for development and tests.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]Account
	hasher   *password.PBKDF2
}

// NewMemory returns an empty Memory store.
func NewMemory(hasher *password.PBKDF2) *Memory {
	return &Memory{
		accounts: make(map[string]Account),
		hasher:   hasher,
	}
}

func (m *Memory) Create(_ context.Context, a Account) error {
	a, err := normalize(a)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[a.ID]; exists {
		return ErrAccountExists
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) Authenticate(ctx context.Context, account, plain string) (bool, error) {
	m.mu.RLock()
	a, found := m.accounts[account]
	m.mu.RUnlock()
	if !found {
		return false, nil
	}

	ok, upgrade := checkPassword(m.hasher, a, plain)
	if ok && upgrade {
		if encoded, err := m.hasher.Hash(plain); err == nil {
			m.mu.Lock()
			a.PasswordHash, a.LegacySalt = encoded, ""
			m.accounts[account] = a
			m.mu.Unlock()
		}
	}
	return ok, nil
}

// Get returns a copy of the stored account.
func (m *Memory) Get(_ context.Context, id string) (Account, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, found := m.accounts[id]
	return a, found, nil
}
