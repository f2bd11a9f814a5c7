package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrMasterExists indicates a master credential is already persisted.
var ErrMasterExists = errors.New("master credential already exists")

// LoadMasterHash returns the encoded master credential. A missing file is
// reported as os.ErrNotExist.
func LoadMasterHash(p Paths) (string, error) {
	data, err := readFile(p.MasterHashPath())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveMasterHash persists the encoded master credential. It refuses to
// overwrite an existing file.
func SaveMasterHash(p Paths, encoded string) error {
	if err := createExclusive(p, p.MasterHashPath(), []byte(encoded)); err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrMasterExists
		}
		return fmt.Errorf("save master hash: %w", err)
	}
	return nil
}
