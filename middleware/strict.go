package middleware

import (
	"net/http"
)

// RequireStrict accepts only sessions held in the cache. Fallback sessions
// are answered with 503 because they cannot be listed or revoked.
func RequireStrict(resolver Resolver, cookieName string) func(http.Handler) http.Handler {
	return Guard(resolver, cookieName, ModeStrict)
}
