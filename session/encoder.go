package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

const maxAccountLength = 255

// Encode serializes a session record as a single JSON document with
// RFC 3339 timestamps.
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}
	if s.UserAccount == "" {
		return nil, errors.New("session user account is empty")
	}
	if len(s.UserAccount) > maxAccountLength {
		return nil, errors.New("session user account too long")
	}
	if s.ExpiresAt.IsZero() {
		return nil, errors.New("session expiry is not set")
	}

	return json.Marshal(s)
}

// Decode parses a stored record. Any record that cannot serve as a session
// (bad JSON, missing owner or expiry) yields ErrSessionCorrupt.
func Decode(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	if s.UserAccount == "" {
		return nil, fmt.Errorf("%w: missing user_account", ErrSessionCorrupt)
	}
	if s.ExpiresAt.IsZero() {
		return nil, fmt.Errorf("%w: missing expires_at", ErrSessionCorrupt)
	}
	return &s, nil
}
