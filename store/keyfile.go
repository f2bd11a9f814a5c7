package store

import (
	"errors"
	"fmt"
	"os"

	"github.com/Hussein-Mazeh/credvault/krypto"
)

// LoadOrCreateKey loads the encryption key, generating and persisting a new
// one when the key file does not exist yet. The boolean reports creation.
func LoadOrCreateKey(p Paths) (krypto.FernetKey, bool, error) {
	data, err := readFile(p.KeyPath())
	switch {
	case err == nil:
		key, err := krypto.DecodeFernetKey(string(data))
		if err != nil {
			return key, false, fmt.Errorf("decode key file: %w", err)
		}
		return key, false, nil
	case !errors.Is(err, os.ErrNotExist):
		return krypto.FernetKey{}, false, err
	}

	key, err := krypto.GenerateFernetKey()
	if err != nil {
		return key, false, err
	}
	// Never replace a key that appeared since the read; that would orphan every stored token.
	if err := createExclusive(p, p.KeyPath(), []byte(key.Encode())); err != nil {
		return krypto.FernetKey{}, false, fmt.Errorf("save key file: %w", err)
	}
	return key, true, nil
}

func createExclusive(p Paths, path string, data []byte) error {
	if err := p.ensureDir(); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
