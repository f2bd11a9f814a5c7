package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/Hussein-Mazeh/credvault/krypto"
	"github.com/Hussein-Mazeh/credvault/store"
)

var (
	// ErrInvalidPassphrase is returned when the supplied passphrase does not
	// match the stored master credential.
	ErrInvalidPassphrase = errors.New("invalid master passphrase")
	// ErrEmptyPassphrase is returned when creating a master credential from an empty passphrase.
	ErrEmptyPassphrase = errors.New("master passphrase cannot be empty")
)

// MasterCredential is the salted PBKDF2 hash of the master passphrase.
type MasterCredential struct {
	Salt []byte
	Hash []byte
}

// Encode returns base64(salt || hash), the on-disk text form.
func (m MasterCredential) Encode() string {
	buf := make([]byte, 0, len(m.Salt)+len(m.Hash))
	buf = append(buf, m.Salt...)
	buf = append(buf, m.Hash...)
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeMasterCredential parses the text written by Encode.
func DecodeMasterCredential(s string) (MasterCredential, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return MasterCredential{}, fmt.Errorf("decode master credential: %w", err)
	}
	if len(raw) <= krypto.SaltLengthBytes {
		return MasterCredential{}, errors.New("master credential is truncated")
	}
	return MasterCredential{
		Salt: raw[:krypto.SaltLengthBytes],
		Hash: raw[krypto.SaltLengthBytes:],
	}, nil
}

// Gate verifies the master passphrase before the vault may be opened.
type Gate struct {
	paths  store.Paths
	params krypto.PBKDF2Params
}

// NewGate returns a gate for the vault directory. iterations <= 0 selects the default.
func NewGate(paths store.Paths, iterations int) *Gate {
	params := krypto.DefaultPBKDF2Params()
	if iterations > 0 {
		params.Iterations = iterations
	}
	return &Gate{paths: paths, params: params}
}

// Initialized reports whether a master credential has been persisted.
func (g *Gate) Initialized() (bool, error) {
	_, err := store.LoadMasterHash(g.paths)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// InitializeOrVerify creates the master credential on first run and verifies
// the passphrase against it afterwards. created is true only when the
// credential file was written by this call.
func (g *Gate) InitializeOrVerify(passphrase string) (created bool, err error) {
	encoded, err := store.LoadMasterHash(g.paths)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := g.initialize(passphrase); err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("load master credential: %w", err)
	}

	cred, err := DecodeMasterCredential(encoded)
	if err != nil {
		return false, err
	}

	pw := []byte(passphrase)
	defer wipe(pw)

	derived, err := krypto.DeriveKeyPBKDF2(pw, cred.Salt, krypto.PBKDF2Params{
		Iterations: g.params.Iterations,
		KeyLen:     len(cred.Hash),
	})
	if err != nil {
		return false, fmt.Errorf("derive master hash: %w", err)
	}
	defer wipe(derived)

	if subtle.ConstantTimeCompare(derived, cred.Hash) != 1 {
		return false, ErrInvalidPassphrase
	}
	return false, nil
}

func (g *Gate) initialize(passphrase string) error {
	if passphrase == "" {
		return ErrEmptyPassphrase
	}

	salt, err := krypto.NewRandomSalt()
	if err != nil {
		return err
	}

	pw := []byte(passphrase)
	defer wipe(pw)

	hash, err := krypto.DeriveKeyPBKDF2(pw, salt, g.params)
	if err != nil {
		return fmt.Errorf("derive master hash: %w", err)
	}

	if err := store.SaveMasterHash(g.paths, MasterCredential{Salt: salt, Hash: hash}.Encode()); err != nil {
		return fmt.Errorf("persist master credential: %w", err)
	}
	return nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
