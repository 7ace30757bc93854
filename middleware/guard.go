package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// HeaderSessionToken carries the session token for non-browser clients.
const HeaderSessionToken = "X-Session-Token"

// Mode selects which identities a guard accepts.
type Mode int

const (
	// ModeAny accepts cache and fallback sessions.
	ModeAny Mode = iota
	// ModeStrict accepts cache sessions only.
	ModeStrict
)

// Resolver maps a token to its owner.
type Resolver interface {
	Resolve(ctx context.Context, token string) (goSession.Identity, bool)
}

type identityContextKey struct{}

// WithIdentity stores id on ctx.
func WithIdentity(ctx context.Context, id goSession.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity placed by a guard.
func IdentityFromContext(ctx context.Context) (goSession.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(goSession.Identity)
	return id, ok
}

// Guard rejects requests without a resolvable session token.
func Guard(resolver Resolver, cookieName string, mode Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}

			token, ok := TokenFromRequest(r, cookieName)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}

			id, ok := resolver.Resolve(r.Context(), token)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "session expired or invalid")
				return
			}
			if mode == ModeStrict && id.Degraded {
				writeError(w, http.StatusServiceUnavailable, "session_cache_unavailable",
					"this action needs the session cache")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireSession accepts any resolvable session.
func RequireSession(resolver Resolver, cookieName string) func(http.Handler) http.Handler {
	return Guard(resolver, cookieName, ModeAny)
}

// TokenFromRequest returns the session token from the cookie, the
// X-Session-Token header, or a bearer Authorization header, in that order.
func TokenFromRequest(r *http.Request, cookieName string) (string, bool) {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	if v := strings.TrimSpace(r.Header.Get(HeaderSessionToken)); v != "" {
		return v, true
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

type errorBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
