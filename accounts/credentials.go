package accounts

import (
	"context"

	"github.com/MrEthical07/goSession/password"
)

// checkPassword verifies password against a stored row and reports whether
// the stored hash should be rewritten with the current hasher settings.
func checkPassword(hasher *password.PBKDF2, a Account, plain string) (ok, upgrade bool) {
	if a.LegacySalt != "" {
		ok = password.VerifyLegacy(plain, a.PasswordHash, a.LegacySalt)
		return ok, ok
	}

	ok, err := hasher.Verify(plain, a.PasswordHash)
	if err != nil || !ok {
		return false, false
	}
	upgrade, err = hasher.NeedsUpgrade(a.PasswordHash)
	return true, err == nil && upgrade
}

// Register hashes plain with hasher and creates the account in s.
func Register(ctx context.Context, s Store, hasher *password.PBKDF2, id, email, plain string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	encoded, err := hasher.Hash(plain)
	if err != nil {
		return err
	}
	return s.Create(ctx, Account{ID: id, Email: email, PasswordHash: encoded})
}
