// Package accounts stores platform login accounts and checks their passwords.
//
// All accounts live in a single table keyed by account id. Password hashes
// use the password package's encoded PBKDF2 format; rows imported from the
// earlier layout carry a hex hash plus a separate salt and are upgraded to
// the encoded format on the first successful login.
package accounts
