// Package verification issues and checks short-lived email verification codes.
//
// A code lives in a Redis hash under "<prefix>:<email>" with fields code_hash,
// attempts and created_at, and expires with the key. Only a SHA-256 digest of
// the code is stored. Checking a code is a single Lua call, so concurrent
// guesses cannot exceed the attempt limit.
package verification

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrNotFound         = errors.New("verification code not found")
	ErrCodeMismatch     = errors.New("verification code mismatch")
	ErrAttemptsExceeded = errors.New("verification attempts exceeded")
	ErrRedisUnavailable = errors.New("verification redis unavailable")
	ErrInvalidEmail     = errors.New("invalid email")
)

// consumeCodeLua checks a code against the stored digest.
// KEYS[1] = record key
// ARGV[1] = provided digest (hex)
// ARGV[2] = max attempts
//
// Returns the stored digest on success, or an error reply:
// "not_found", "code_mismatch", "attempts_exceeded".
var consumeCodeLua = redis.NewScript(`
local stored = redis.call('HGET', KEYS[1], 'code_hash')
if not stored then
  return {err='not_found'}
end

if stored ~= ARGV[1] then
  local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
  if attempts >= tonumber(ARGV[2]) then
    redis.call('DEL', KEYS[1])
    return {err='attempts_exceeded'}
  end
  return {err='code_mismatch'}
end

redis.call('DEL', KEYS[1])
return stored
`)

// Config configures a Store.
type Config struct {
	Prefix      string
	TTL         time.Duration
	MaxAttempts int
	Digits      int
}

// DefaultConfig returns ten-minute, six-digit codes with five attempts.
func DefaultConfig() Config {
	return Config{
		Prefix:      "smsf_verify",
		TTL:         10 * time.Minute,
		MaxAttempts: 5,
		Digits:      6,
	}
}

// Store keeps verification codes in Redis.
type Store struct {
	redis  redis.UniversalClient
	config Config
	now    func() time.Time
}

// NewStore returns a Store. Zero fields of cfg take DefaultConfig values.
func NewStore(client redis.UniversalClient, cfg Config) *Store {
	def := DefaultConfig()
	if cfg.Prefix == "" {
		cfg.Prefix = def.Prefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Digits < 4 || cfg.Digits > 10 {
		cfg.Digits = def.Digits
	}
	return &Store{redis: client, config: cfg, now: time.Now}
}

// NormalizeEmail lower-cases and trims an address and checks its shape.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndexByte(email, '@')
	if at < 1 || at == len(email)-1 || len(email) > 254 || strings.ContainsAny(email, " \t\r\n") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func (s *Store) key(email string) string {
	return s.config.Prefix + ":" + email
}

func digest(email, code string) string {
	sum := sha256.Sum256([]byte(email + ":" + code))
	return hex.EncodeToString(sum[:])
}

func (s *Store) generateCode() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(s.config.Digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", s.config.Digits, n), nil
}

// Issue creates a fresh code for email, replacing any earlier one, and
// returns it in plain text for delivery.
func (s *Store) Issue(ctx context.Context, email string) (string, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return "", err
	}

	code, err := s.generateCode()
	if err != nil {
		return "", err
	}

	key := s.key(email)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"code_hash", digest(email, code),
			"attempts", 0,
			"created_at", s.now().UTC().Format(time.RFC3339),
		)
		pipe.PExpire(ctx, key, s.config.TTL)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return code, nil
}

// Verify consumes the code for email. A match deletes the record. A
// mismatch counts an attempt; reaching MaxAttempts deletes the record.
func (s *Store) Verify(ctx context.Context, email, code string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrCodeMismatch
	}

	provided := digest(email, code)
	result, err := consumeCodeLua.Run(ctx, s.redis,
		[]string{s.key(email)},
		provided,
		s.config.MaxAttempts,
	).Text()
	if err != nil {
		msg := err.Error()
		switch {
		case strings.HasSuffix(msg, "not_found"):
			return ErrNotFound
		case strings.HasSuffix(msg, "code_mismatch"):
			return ErrCodeMismatch
		case strings.HasSuffix(msg, "attempts_exceeded"):
			return ErrAttemptsExceeded
		default:
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if subtle.ConstantTimeCompare([]byte(result), []byte(provided)) != 1 {
		return ErrCodeMismatch
	}
	return nil
}

// TTL returns the lifetime of issued codes.
func (s *Store) TTL() time.Duration {
	return s.config.TTL
}
