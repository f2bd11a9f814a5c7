package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// PasswordAlphabet is the character set drawn from by Generate.
const PasswordAlphabet = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789" +
	"!@#$%^&*()-_=+"

// DefaultPasswordLength is used when the caller does not request a length.
const DefaultPasswordLength = 16

// ErrInvalidLength is returned when a non-positive password length is requested.
var ErrInvalidLength = errors.New("password length must be positive")

var alphabetSize = big.NewInt(int64(len(PasswordAlphabet)))

// Generate returns length characters drawn independently and uniformly from
// PasswordAlphabet using crypto/rand.
func Generate(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}

	out := make([]byte, length)
	for i := range out {
		idx, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("draw random index: %w", err)
		}
		out[i] = PasswordAlphabet[idx.Int64()]
	}
	return string(out), nil
}
