// Package vault holds the named credential records and keeps them encrypted at rest.
package vault

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Hussein-Mazeh/credvault/store"
)

var (
	// ErrNotFound is returned by Delete when the service has no entry.
	ErrNotFound = errors.New("service not found")
	// ErrServiceRequired is returned when an entry is added without a service name.
	ErrServiceRequired = errors.New("service name is required")
)

// Cipher encrypts and decrypts entry secrets.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Entry is the decrypted view of a stored credential.
type Entry struct {
	Service  string
	Username string
	Secret   string
}

// Vault is the in-memory copy of the data file. Every mutation rewrites the
// whole file.
type Vault struct {
	paths   store.Paths
	cipher  Cipher
	mode    store.WriteMode
	records map[string]store.Record
}

// Open loads the data file located by paths.
func Open(paths store.Paths, c Cipher, mode store.WriteMode) (*Vault, error) {
	if c == nil {
		return nil, errors.New("cipher is required")
	}
	records, err := store.LoadRecords(paths)
	if err != nil {
		return nil, fmt.Errorf("load vault: %w", err)
	}
	return &Vault{paths: paths, cipher: c, mode: mode, records: records}, nil
}

// Add encrypts secret and stores it under service, replacing any previous entry.
func (v *Vault) Add(service, username, secret string) error {
	if strings.TrimSpace(service) == "" {
		return ErrServiceRequired
	}

	token, err := v.cipher.Encrypt([]byte(secret))
	if err != nil {
		return fmt.Errorf("encrypt secret: %w", err)
	}

	prev, existed := v.records[service]
	v.records[service] = store.Record{Username: username, Password: string(token)}

	if err := store.SaveRecords(v.paths, v.records, v.mode); err != nil {
		if existed {
			v.records[service] = prev
		} else {
			delete(v.records, service)
		}
		return err
	}
	return nil
}

// Get returns the decrypted entry for service. ok is false when no entry exists.
func (v *Vault) Get(service string) (entry Entry, ok bool, err error) {
	rec, ok := v.records[service]
	if !ok {
		return Entry{}, false, nil
	}

	plain, err := v.cipher.Decrypt([]byte(rec.Password))
	if err != nil {
		return Entry{}, true, fmt.Errorf("decrypt %q: %w", service, err)
	}
	return Entry{Service: service, Username: rec.Username, Secret: string(plain)}, true, nil
}

// Delete removes the entry for service.
func (v *Vault) Delete(service string) error {
	prev, ok := v.records[service]
	if !ok {
		return ErrNotFound
	}

	delete(v.records, service)
	if err := store.SaveRecords(v.paths, v.records, v.mode); err != nil {
		v.records[service] = prev
		return err
	}
	return nil
}

// Services returns the stored service names in sorted order.
func (v *Vault) Services() []string {
	return slices.Sorted(maps.Keys(v.records))
}

// Len returns the number of stored entries.
func (v *Vault) Len() int {
	return len(v.records)
}
