// Package password implements PBKDF2-HMAC password hashing and verification.
//
// # Output format
//
// Hashes are encoded as
//
//	pbkdf2_<sha256|sha512>$<iterations>$<salt base64>$<hash base64>
//
// [PBKDF2.NeedsUpgrade] reports hashes produced with a weaker digest or fewer
// iterations so callers can re-hash after the next successful login.
// [VerifyLegacy] checks the hex hash plus hex-salt pairs stored by earlier
// deployments.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Log plaintext passwords.
package password
