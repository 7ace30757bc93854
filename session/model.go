package session

import "time"

// Session is the stored login session for one token.
//
// Token is not part of the encoded record; the store fills it from the key.
type Session struct {
	Token        string    `json:"-"`
	UserAccount  string    `json:"user_account"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastActivity time.Time `json:"last_activity"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
}

// ExpiredAt reports whether the session is past its expiry at the given instant.
func (s *Session) ExpiredAt(now time.Time) bool {
	if s == nil {
		return true
	}
	return !now.Before(s.ExpiresAt)
}

// Remaining returns the time left before expiry, never negative.
func (s *Session) Remaining(now time.Time) time.Duration {
	if s == nil {
		return 0
	}
	d := s.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
