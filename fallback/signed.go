package fallback

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/jwt"
)

// Signed issues stateless signed tokens. Revoke is a no-op; clients drop
// the token when the cookie is cleared.
type Signed struct {
	manager *jwt.Manager
}

// NewSigned wraps a jwt.Manager.
func NewSigned(manager *jwt.Manager) *Signed {
	return &Signed{manager: manager}
}

func (s *Signed) Issue(_ context.Context, account string, ttl time.Duration) (string, error) {
	return s.manager.Issue(account, ttl)
}

func (s *Signed) Resolve(_ context.Context, token string) (string, bool) {
	if token == "" {
		return "", false
	}
	claims, err := s.manager.Parse(token)
	if err != nil {
		return "", false
	}
	return claims.Account, true
}

func (s *Signed) Revoke(context.Context, string) {}
