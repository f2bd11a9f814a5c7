package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	keyFilename    = "secret.key"
	masterFilename = "master.hash"
	dataFilename   = "passwords.json"
)

// Paths locates vault artifacts on disk.
type Paths struct {
	Dir string
}

func (p Paths) dir() string {
	if p.Dir == "" {
		return "."
	}
	return p.Dir
}

// KeyPath resolves the encryption key file path.
func (p Paths) KeyPath() string {
	return filepath.Join(p.dir(), keyFilename)
}

// MasterHashPath resolves the master credential file path.
func (p Paths) MasterHashPath() string {
	return filepath.Join(p.dir(), masterFilename)
}

// DataPath resolves the credential data file path.
func (p Paths) DataPath() string {
	return filepath.Join(p.dir(), dataFilename)
}

func (p Paths) ensureDir() error {
	if err := os.MkdirAll(p.dir(), 0o700); err != nil {
		return fmt.Errorf("create vault directory: %w", err)
	}
	return nil
}

// WriteMode selects how a file is replaced on disk.
type WriteMode int

const (
	// WriteAtomic writes a temp file in the same directory and renames it over the target.
	WriteAtomic WriteMode = iota
	// WriteInPlace truncates and rewrites the target. A crash mid-write can
	// leave the file corrupted.
	WriteInPlace
)

func writeFile(p Paths, path string, data []byte, mode WriteMode) error {
	if err := p.ensureDir(); err != nil {
		return err
	}

	if mode == WriteInPlace {
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(path), err)
		}
		return nil
	}

	tmp, err := os.CreateTemp(p.dir(), filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}

	return nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return data, nil
}
