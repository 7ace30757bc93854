// Package middleware adapts the session Authenticator to net/http.
//
// # Guards
//
//   - [RequireSession] accepts cache sessions and fallback sessions.
//   - [RequireStrict] accepts cache sessions only; degraded sessions get 503.
//
// Guards read the session cookie, the X-Session-Token header, or a bearer
// Authorization header, resolve the token, and place the [goSession.Identity]
// in the request context.
//
// [ClientInfo] records the caller's IP and User-Agent on the request context
// so new sessions and the login limiter can see them.
package middleware
