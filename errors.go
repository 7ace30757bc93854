package goSession

import "errors"

var (
	// ErrInvalidArgument is returned for caller mistakes such as an empty account.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrSessionCreationFailed is returned when the cache could not store a new session.
	// Callers fall back to a weaker session mechanism.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrInvalidCredentials is returned when the account or password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginRateLimited is returned when too many failed logins were recorded.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrCredentialBackend is returned when the credential store cannot be queried.
	ErrCredentialBackend = errors.New("credential backend unavailable")
	// ErrUnauthorized is returned when a token resolves to no identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoSessionBackend is returned when neither the cache nor a fallback can issue a session.
	ErrNoSessionBackend = errors.New("no session backend available")
)
