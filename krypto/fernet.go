package krypto

import (
	"crypto/aes"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/fernet/fernet-go"
)

const (
	fernetVersion byte = 0x80
	// version | timestamp | iv | at least one ciphertext block | hmac
	fernetMinSize = 1 + 8 + aes.BlockSize + aes.BlockSize + sha256.Size
	// A negative TTL disables the token age check.
	noTTL = -1
)

var (
	// ErrInvalidToken is returned when a token is malformed, fails HMAC
	// verification, or was produced under a different key.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidKey is returned when encoded key material cannot be decoded.
	ErrInvalidKey = errors.New("invalid fernet key")

	// Strict mode rejects non-zero trailing bits so every byte of a token is authenticated.
	tokenEncoding = base64.URLEncoding.Strict()
)

// FernetKey holds the signing key (first half) and the AES-128 encryption key (second half).
type FernetKey [32]byte

// GenerateFernetKey returns a new random key.
func GenerateFernetKey() (FernetKey, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return FernetKey{}, fmt.Errorf("generate key: %w", err)
	}
	return FernetKey(k), nil
}

// DecodeFernetKey parses the base64 key text written by Encode or by
// Python's Fernet.generate_key.
func DecodeFernetKey(s string) (FernetKey, error) {
	k, err := fernet.DecodeKey(strings.TrimSpace(s))
	if err != nil {
		return FernetKey{}, ErrInvalidKey
	}
	return FernetKey(*k), nil
}

// Encode returns the URL-safe base64 form of the key.
func (k FernetKey) Encode() string {
	fk := fernet.Key(k)
	return fk.Encode()
}

// Fernet encrypts and authenticates messages under a single key.
type Fernet struct {
	keys []*fernet.Key
}

// NewFernet returns a Fernet bound to key.
func NewFernet(key FernetKey) *Fernet {
	fk := fernet.Key(key)
	return &Fernet{keys: []*fernet.Key{&fk}}
}

// Encrypt returns the base64url token for plaintext.
func (f *Fernet) Encrypt(plaintext []byte) ([]byte, error) {
	token, err := fernet.EncryptAndSign(plaintext, f.keys[0])
	if err != nil {
		return nil, fmt.Errorf("encrypt token: %w", err)
	}
	return token, nil
}

// Decrypt verifies token and returns its plaintext. Every failure is reported
// as ErrInvalidToken. Token age is not checked.
func (f *Fernet) Decrypt(token []byte) ([]byte, error) {
	raw, err := tokenEncoding.DecodeString(string(token))
	if err != nil || len(raw) < fernetMinSize || raw[0] != fernetVersion {
		return nil, ErrInvalidToken
	}

	msg := fernet.VerifyAndDecrypt(token, noTTL, f.keys)
	if msg == nil {
		return nil, ErrInvalidToken
	}
	return msg, nil
}
