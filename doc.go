// Package goSession provides Redis-backed login sessions for the SMSF learning platform:
// TTL-based expiry, renewal on access, an owner index for force-logout, a cached
// liveness check, and a fallback to a weaker local session mechanism while the cache
// is down.
//
// [Manager] methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Manager], [Authenticator], [Builder],
// [Config], and value types (SessionInfo, Identity, MetricsSnapshot). Redis layout
// and scripts live in the session package; fallback mechanisms in the fallback
// package.
//
// # Failure semantics
//
// Lookups never return cache errors. Get reports absent, Renew and Delete report
// false, DeleteAll and ActiveSessionCount report zero. Create is the exception: it
// returns ErrSessionCreationFailed so the caller can switch to a fallback session,
// and ErrInvalidArgument for an empty account.
//
// # What this package must NOT do
//
//   - Expose Redis clients or record encoding in its public API.
//   - Extend a session on Get; only Renew moves expiry.
//   - Import any sub-package that re-imports goSession (no import cycles).
package goSession
