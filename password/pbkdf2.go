package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	minIterations = 10000
	minSaltLength = 16
	minKeyLength  = 16
	minPassBytes  = 6
	maxPassBytes  = 1024
)

// Digest names the HMAC hash used by PBKDF2.
type Digest string

const (
	SHA256 Digest = "sha256"
	SHA512 Digest = "sha512"
)

// ErrInvalidHash is returned for stored hashes that cannot be parsed.
var ErrInvalidHash = errors.New("invalid password hash")

// Config sets the PBKDF2 work factor for new hashes.
type Config struct {
	Digest     Digest
	Iterations int
	SaltLength int
	KeyLength  int
}

// DefaultConfig returns SHA-256, 100000 iterations, 16-byte salt and 32-byte key.
func DefaultConfig() Config {
	return Config{
		Digest:     SHA256,
		Iterations: 100000,
		SaltLength: 16,
		KeyLength:  32,
	}
}

// PBKDF2 hashes and verifies passwords.
type PBKDF2 struct {
	config Config
}

type parsedHash struct {
	digest     Digest
	iterations int
	salt       []byte
	hash       []byte
}

// NewPBKDF2 validates cfg and returns a hasher.
func NewPBKDF2(cfg Config) (*PBKDF2, error) {
	if _, err := hashFunc(cfg.Digest); err != nil {
		return nil, err
	}
	if cfg.Iterations < minIterations {
		return nil, fmt.Errorf("iterations must be >= %d", minIterations)
	}
	if cfg.SaltLength < minSaltLength {
		return nil, fmt.Errorf("salt length must be >= %d", minSaltLength)
	}
	if cfg.KeyLength < minKeyLength {
		return nil, fmt.Errorf("key length must be >= %d", minKeyLength)
	}
	return &PBKDF2{config: cfg}, nil
}

func hashFunc(d Digest) (func() hash.Hash, error) {
	switch d {
	case SHA256:
		return sha256.New, nil
	case SHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("unsupported digest %q", d)
	}
}

// CheckLength enforces the accepted password length in bytes.
func CheckLength(password string) error {
	if len(password) < minPassBytes {
		return fmt.Errorf("password must be at least %d bytes", minPassBytes)
	}
	if len(password) > maxPassBytes {
		return fmt.Errorf("password must be at most %d bytes", maxPassBytes)
	}
	return nil
}

// Hash returns the encoded hash of password with a fresh random salt.
func (p *PBKDF2) Hash(password string) (string, error) {
	if err := CheckLength(password); err != nil {
		return "", err
	}

	salt := make([]byte, p.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	h, _ := hashFunc(p.config.Digest)
	key := pbkdf2.Key([]byte(password), salt, p.config.Iterations, p.config.KeyLength, h)

	return fmt.Sprintf(
		"pbkdf2_%s$%d$%s$%s",
		p.config.Digest,
		p.config.Iterations,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encodedHash. Hashes produced
// with any supported digest verify regardless of the hasher's own config.
func (p *PBKDF2) Verify(password, encodedHash string) (bool, error) {
	parsed, err := parse(encodedHash)
	if err != nil {
		return false, err
	}
	if len(password) > maxPassBytes {
		return false, nil
	}

	h, _ := hashFunc(parsed.digest)
	computed := pbkdf2.Key([]byte(password), parsed.salt, parsed.iterations, len(parsed.hash), h)
	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

// NeedsUpgrade reports whether encodedHash uses a different digest, fewer
// iterations, or a different key length than the hasher's config.
func (p *PBKDF2) NeedsUpgrade(encodedHash string) (bool, error) {
	parsed, err := parse(encodedHash)
	if err != nil {
		return false, err
	}
	return parsed.digest != p.config.Digest ||
		parsed.iterations < p.config.Iterations ||
		len(parsed.hash) != p.config.KeyLength, nil
}

func parse(encodedHash string) (*parsedHash, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 4 || !strings.HasPrefix(parts[0], "pbkdf2_") {
		return nil, ErrInvalidHash
	}

	digest := Digest(strings.TrimPrefix(parts[0], "pbkdf2_"))
	if _, err := hashFunc(digest); err != nil {
		return nil, ErrInvalidHash
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations < 1 {
		return nil, ErrInvalidHash
	}

	salt, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil || len(salt) == 0 {
		return nil, ErrInvalidHash
	}
	key, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil || len(key) == 0 {
		return nil, ErrInvalidHash
	}

	return &parsedHash{
		digest:     digest,
		iterations: iterations,
		salt:       salt,
		hash:       key,
	}, nil
}

// VerifyLegacy checks a hex-encoded PBKDF2 hash stored with a separate
// salt string, the layout of accounts created before encoded hashes.
// The salt string's bytes are the salt. The digest is inferred from the
// hash length: 64 bytes for SHA-512, 32 for SHA-256. 100000 iterations.
func VerifyLegacy(password, hexHash, salt string) bool {
	stored, err := hex.DecodeString(hexHash)
	if err != nil || salt == "" {
		return false
	}

	var h func() hash.Hash
	switch len(stored) {
	case sha512.Size:
		h = sha512.New
	case sha256.Size:
		h = sha256.New
	default:
		return false
	}

	computed := pbkdf2.Key([]byte(password), []byte(salt), 100000, len(stored), h)
	return subtle.ConstantTimeCompare(computed, stored) == 1
}
