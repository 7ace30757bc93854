package password

import (
	"crypto/sha512"
	"encoding/hex"
	"strings"
	"testing"

	"golang.org/x/crypto/pbkdf2"
)

func fastConfig() Config {
	return Config{Digest: SHA256, Iterations: minIterations, SaltLength: 16, KeyLength: 32}
}

func TestHashAndVerify(t *testing.T) {
	hasher, err := NewPBKDF2(fastConfig())
	if err != nil {
		t.Fatalf("NewPBKDF2 error: %v", err)
	}

	hash, err := hasher.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "pbkdf2_sha256$10000$") {
		t.Fatalf("unexpected prefix: %s", hash)
	}

	ok, err := hasher.Verify("correct horse", hash)
	if err != nil || !ok {
		t.Fatalf("Verify = %v, %v; want true", ok, err)
	}
	ok, err = hasher.Verify("wrong horse", hash)
	if err != nil || ok {
		t.Fatalf("Verify wrong = %v, %v; want false", ok, err)
	}
}

func TestHashUsesRandomSalt(t *testing.T) {
	hasher, _ := NewPBKDF2(fastConfig())
	a, _ := hasher.Hash("same password")
	b, _ := hasher.Hash("same password")
	if a == b {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestVerifySHA512Encoding(t *testing.T) {
	sha512Hasher, _ := NewPBKDF2(Config{Digest: SHA512, Iterations: minIterations, SaltLength: 16, KeyLength: 64})
	hash, err := sha512Hasher.Hash("staff-pass")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	hasher, _ := NewPBKDF2(fastConfig())
	ok, err := hasher.Verify("staff-pass", hash)
	if err != nil || !ok {
		t.Fatalf("Verify sha512 = %v, %v", ok, err)
	}
	upgrade, err := hasher.NeedsUpgrade(hash)
	if err != nil || !upgrade {
		t.Fatalf("NeedsUpgrade = %v, %v; want true", upgrade, err)
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	hasher, _ := NewPBKDF2(fastConfig())
	for _, h := range []string{"", "plain", "pbkdf2_md5$1$AA==$AA==", "pbkdf2_sha256$x$AA==$AA==", "pbkdf2_sha256$10$%%$AA=="} {
		if _, err := hasher.Verify("whatever", h); err == nil {
			t.Fatalf("expected error for %q", h)
		}
	}
}

func TestNewPBKDF2RejectsWeakConfig(t *testing.T) {
	if _, err := NewPBKDF2(Config{Digest: SHA256, Iterations: 1, SaltLength: 16, KeyLength: 32}); err == nil {
		t.Fatal("expected low iteration count to be rejected")
	}
	if _, err := NewPBKDF2(Config{Digest: "md5", Iterations: minIterations, SaltLength: 16, KeyLength: 32}); err == nil {
		t.Fatal("expected unknown digest to be rejected")
	}
}

func TestHashRejectsShortPassword(t *testing.T) {
	hasher, _ := NewPBKDF2(fastConfig())
	if _, err := hasher.Hash("abc"); err == nil {
		t.Fatal("expected short password to be rejected")
	}
}

func TestVerifyLegacy(t *testing.T) {
	salt := "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	stored := hex.EncodeToString(pbkdf2.Key([]byte("legacy-pass"), []byte(salt), 100000, sha512.Size, sha512.New))

	if !VerifyLegacy("legacy-pass", stored, salt) {
		t.Fatal("expected legacy hash to verify")
	}
	if VerifyLegacy("other", stored, salt) {
		t.Fatal("wrong password verified")
	}
	if VerifyLegacy("legacy-pass", "zz", salt) {
		t.Fatal("non-hex hash verified")
	}
}
