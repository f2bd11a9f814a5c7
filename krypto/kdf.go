package krypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltLengthBytes is the salt length used for the master credential.
	SaltLengthBytes = 16
	// DefaultIterations is the PBKDF2 work factor for the master credential.
	DefaultIterations = 100_000
	// MinIterations is the lowest accepted PBKDF2 work factor.
	MinIterations = 100_000
)

// PBKDF2Params captures tunable parameters for PBKDF2-HMAC-SHA256.
type PBKDF2Params struct {
	Iterations int
	KeyLen     int
}

// DefaultPBKDF2Params returns the parameters used for new master credentials.
func DefaultPBKDF2Params() PBKDF2Params {
	return PBKDF2Params{
		Iterations: DefaultIterations,
		KeyLen:     sha256.Size,
	}
}

// DeriveKeyPBKDF2 derives a key from the passphrase using PBKDF2-HMAC-SHA256.
func DeriveKeyPBKDF2(passphrase, salt []byte, p PBKDF2Params) ([]byte, error) {
	if len(salt) == 0 {
		return nil, errors.New("salt is required")
	}
	if p.Iterations <= 0 {
		return nil, errors.New("iteration count must be positive")
	}
	if p.KeyLen <= 0 {
		return nil, errors.New("key length must be positive")
	}

	key := pbkdf2.Key(passphrase, salt, p.Iterations, p.KeyLen, sha256.New)
	if len(key) != p.KeyLen {
		return nil, fmt.Errorf("derived key has unexpected length %d", len(key))
	}
	return key, nil
}

// NewRandomSalt returns a cryptographically secure random salt of SaltLengthBytes.
func NewRandomSalt() ([]byte, error) {
	salt := make([]byte, SaltLengthBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}
