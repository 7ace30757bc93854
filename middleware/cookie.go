package middleware

import (
	"net/http"
	"time"
)

// DefaultCookieName is the session cookie name.
const DefaultCookieName = "session_id"

// CookieConfig controls the session cookie attributes.
type CookieConfig struct {
	Name   string
	Path   string
	Secure bool
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

func (c CookieConfig) path() string {
	if c.Path == "" {
		return "/"
	}
	return c.Path
}

// SetSessionCookie writes the session cookie with Max-Age = ttl.
func SetSessionCookie(w http.ResponseWriter, cfg CookieConfig, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.name(),
		Value:    token,
		Path:     cfg.path(),
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.name(),
		Value:    "",
		Path:     cfg.path(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
