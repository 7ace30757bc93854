// Package fallback provides the session mechanisms used when the session
// cache cannot be reached.
//
// Both implementations are weaker than the cache: [Memory] is local to one
// process and lost on restart, and [Signed] tokens cannot be revoked before
// they expire. Tokens from either are unknown to the cache, so force-logout
// and session counts do not see them.
package fallback
