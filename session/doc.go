// Package session provides Redis-backed persistence for login sessions.
//
// # Layout
//
// Each session is one JSON record under "<prefix>:<token>" whose Redis TTL always equals
// ExpiresAt minus now. Writes set the value and its expiry in a single command. A secondary
// set "user_sessions:<account>" indexes the live tokens of an account for bulk invalidation;
// membership changes go through Lua scripts so concurrent logins never lose updates.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] record. It reports
// failures as error values (ErrRedisUnavailable, ErrSessionNotFound, ErrSessionExpired,
// ErrSessionCorrupt). Absorbing those into boolean results and deciding on fallbacks
// belongs to the root package's Manager.
//
// # What this package must NOT do
//
//   - Import goSession or any HTTP package (no upward imports).
//   - Check credentials or issue cookies.
//   - Extend a session on a plain read.
package session
