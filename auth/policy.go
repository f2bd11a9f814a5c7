package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	specialChars      = "!\"#$%&'()*+,-./:;<=>?@[\\]^_{|}~`"
	minMasterPassword = 12
)

// ErrWeakPassphrase wraps every master passphrase policy violation.
var ErrWeakPassphrase = errors.New("master passphrase does not meet policy")

// ValidateMasterPassword applies the master passphrase policy: minimum length,
// an uppercase letter, a digit and a special character.
func ValidateMasterPassword(pw string) error {
	var missing []string
	if len([]rune(pw)) < minMasterPassword {
		missing = append(missing, fmt.Sprintf("at least %d characters", minMasterPassword))
	}
	if !strings.ContainsFunc(pw, unicode.IsUpper) {
		missing = append(missing, "an uppercase letter")
	}
	if !strings.ContainsFunc(pw, unicode.IsDigit) {
		missing = append(missing, "a digit")
	}
	if !strings.ContainsAny(pw, specialChars) {
		missing = append(missing, "a special character")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: needs %s", ErrWeakPassphrase, strings.Join(missing, ", "))
	}
	return nil
}
