// Package rate provides Redis-backed fixed-window counters for login
// attempts and verification-code sends.
//
// # Window semantics
//
// INCR + EXPIRE on the first hit of a window. Key prefixes:
//   - smsf_rl:login:    failed logins per account
//   - smsf_rl:login_ip: failed logins per client IP
//   - smsf_rl:send:     verification sends per email
//   - smsf_rl:send_ip:  verification sends per client IP
//
// Callers decide whether a Redis failure fails open or closed.
package rate
