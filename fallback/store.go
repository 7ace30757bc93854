package fallback

import (
	"context"
	"time"
)

// Store issues and resolves fallback session tokens.
type Store interface {
	// Issue returns a token identifying account for ttl.
	Issue(ctx context.Context, account string, ttl time.Duration) (string, error)
	// Resolve returns the account of a valid token.
	Resolve(ctx context.Context, token string) (string, bool)
	// Revoke invalidates token where the mechanism allows it.
	Revoke(ctx context.Context, token string)
}
