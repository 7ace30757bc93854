// Package jwt signs and verifies the stateless session tokens used while the
// session cache is unavailable. Tokens carry the owner account and an expiry
// and cannot be revoked before they expire.
package jwt
