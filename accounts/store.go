package accounts

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	ErrAccountExists  = errors.New("account already exists")
	ErrInvalidAccount = errors.New("invalid account")
)

var accountIDRe = regexp.MustCompile(`^[a-zA-Z0-9_]{1,64}$`)

// Account is one row of the accounts table.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	// LegacySalt is set only for hashes in the pre-encoding layout.
	LegacySalt string
	CreatedAt  time.Time
}

// Store persists accounts.
type Store interface {
	// Authenticate reports whether password matches account. An unknown
	// account is (false, nil).
	Authenticate(ctx context.Context, account, password string) (bool, error)
	// Create inserts a new account. Duplicate ids return ErrAccountExists.
	Create(ctx context.Context, a Account) error
}

// ValidateID checks that id is a legal account id: letters, digits and
// underscore, at most 64 characters.
func ValidateID(id string) error {
	if !accountIDRe.MatchString(id) {
		return ErrInvalidAccount
	}
	return nil
}

func normalize(a Account) (Account, error) {
	a.ID = strings.TrimSpace(a.ID)
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	if err := ValidateID(a.ID); err != nil {
		return Account{}, err
	}
	if a.PasswordHash == "" {
		return Account{}, ErrInvalidAccount
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return a, nil
}
