package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Hussein-Mazeh/credvault/auth"
	"github.com/Hussein-Mazeh/credvault/internal/db"
	"github.com/Hussein-Mazeh/credvault/internal/logger"
	"github.com/Hussein-Mazeh/credvault/internal/vault"
	"github.com/Hussein-Mazeh/credvault/krypto"
	"github.com/Hussein-Mazeh/credvault/store"
)

var (
	// ErrLocked is returned by vault operations before a successful Unlock.
	ErrLocked = errors.New("vault locked")
	// ErrNotFound is returned when no entry exists for a service.
	ErrNotFound = vault.ErrNotFound
	// ErrAuditDisabled is returned by RecentEvents when no audit log is configured.
	ErrAuditDisabled = errors.New("audit log disabled")
)

// Options tunes a Service. The zero value uses default KDF iterations,
// atomic writes, no policy, no breach checks and no audit log.
type Options struct {
	Iterations    int
	WriteMode     store.WriteMode
	EnforcePolicy bool
	Breach        *auth.BreachChecker
	Audit         *db.DB
	Logger        *logger.Logger
}

// Service exposes high-level vault operations for the CLI.
type Service struct {
	paths store.Paths
	gate  *auth.Gate
	vault *vault.Vault // nil until Unlock succeeds
	opts  Options
	log   *logger.Logger
}

// New returns a locked service bound to a vault directory holding the key,
// master hash and data files.
func New(vaultDir string, opts Options) *Service {
	if vaultDir == "" {
		vaultDir = "."
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	paths := store.Paths{Dir: vaultDir}
	return &Service{
		paths: paths,
		gate:  auth.NewGate(paths, opts.Iterations),
		opts:  opts,
		log:   log,
	}
}

// Close releases the audit log and drops the decrypted vault from memory.
func (s *Service) Close() error {
	s.vault = nil
	return db.Close(s.opts.Audit)
}

// Paths returns the vault file locations.
func (s *Service) Paths() store.Paths { return s.paths }

// IsUnlocked reports whether Unlock has succeeded.
func (s *Service) IsUnlocked() bool { return s.vault != nil }

// NeedsMasterSetup returns true when no master credential exists yet.
func (s *Service) NeedsMasterSetup() (bool, error) {
	ok, err := s.gate.Initialized()
	if err != nil {
		return false, fmt.Errorf("check master credential: %w", err)
	}
	return !ok, nil
}

// Unlock verifies master (creating the master credential on first run),
// then loads or creates the encryption key and opens the vault. The vault is
// left locked on any error.
func (s *Service) Unlock(ctx context.Context, master string) (created bool, err error) {
	if s.opts.EnforcePolicy {
		needs, err := s.NeedsMasterSetup()
		if err != nil {
			return false, err
		}
		if needs {
			if err := auth.ValidateMasterPassword(master); err != nil {
				return false, err
			}
		}
	}

	created, err = s.gate.InitializeOrVerify(master)
	if err != nil {
		s.record(ctx, db.EventUnlock, "", false)
		if errors.Is(err, auth.ErrInvalidPassphrase) {
			s.log.Warn("master passphrase rejected", "dir", s.paths.Dir)
		}
		return false, err
	}

	key, keyCreated, err := store.LoadOrCreateKey(s.paths)
	if err != nil {
		return created, fmt.Errorf("load encryption key: %w", err)
	}
	if keyCreated {
		s.log.Info("encryption key created", "path", s.paths.KeyPath())
	}

	v, err := vault.Open(s.paths, krypto.NewFernet(key), s.opts.WriteMode)
	if err != nil {
		return created, fmt.Errorf("open vault: %w", err)
	}
	s.vault = v

	if created {
		s.record(ctx, db.EventSetup, "", true)
		s.log.Info("master credential created", "path", s.paths.MasterHashPath())
	} else {
		s.record(ctx, db.EventUnlock, "", true)
	}
	s.log.Info("vault unlocked", "entries", v.Len())
	return created, nil
}

// Add stores (service, username, secret), replacing any previous entry for service.
func (s *Service) Add(ctx context.Context, service, username, secret string) error {
	if s.vault == nil {
		return ErrLocked
	}
	err := s.vault.Add(service, username, secret)
	s.record(ctx, db.EventAdd, service, err == nil)
	if err != nil {
		s.log.Warn("store credential failed", "service", service, "err", err)
		return fmt.Errorf("add %q: %w", service, err)
	}
	s.log.Info("credential stored", "service", service)
	return nil
}

// Get returns the decrypted entry for service, or ErrNotFound.
// A corrupted or foreign token yields an error wrapping krypto.ErrInvalidToken.
func (s *Service) Get(ctx context.Context, service string) (vault.Entry, error) {
	if s.vault == nil {
		return vault.Entry{}, ErrLocked
	}
	entry, ok, err := s.vault.Get(service)
	s.record(ctx, db.EventGet, service, ok && err == nil)
	if err != nil {
		s.log.Warn("decrypt credential failed", "service", service, "err", err)
		return vault.Entry{}, err
	}
	if !ok {
		return vault.Entry{}, ErrNotFound
	}
	return entry, nil
}

// Delete removes the entry for service, or returns ErrNotFound.
func (s *Service) Delete(ctx context.Context, service string) error {
	if s.vault == nil {
		return ErrLocked
	}
	err := s.vault.Delete(service)
	s.record(ctx, db.EventDelete, service, err == nil)
	if err != nil {
		return err
	}
	s.log.Info("credential deleted", "service", service)
	return nil
}

// List returns the stored service names in sorted order.
func (s *Service) List() ([]string, error) {
	if s.vault == nil {
		return nil, ErrLocked
	}
	return s.vault.Services(), nil
}

// Generate returns a random password of length characters. It does not
// require an unlocked vault.
func (s *Service) Generate(ctx context.Context, length int) (string, error) {
	pw, err := auth.Generate(length)
	s.record(ctx, db.EventGenerate, "", err == nil)
	return pw, err
}

// Strength estimates how hard pw is to guess.
func (s *Service) Strength(pw string) auth.StrengthReport {
	return auth.Strength(pw)
}

// BreachCheckEnabled reports whether CheckBreach will query the range API.
func (s *Service) BreachCheckEnabled() bool { return s.opts.Breach != nil }

// CheckBreach looks pw up in the breach corpus. With checks disabled it
// returns a zero result and no error.
func (s *Service) CheckBreach(ctx context.Context, pw string) (auth.HIBPResult, error) {
	if s.opts.Breach == nil {
		return auth.HIBPResult{}, nil
	}
	res, err := s.opts.Breach.Check(ctx, pw)
	if err != nil {
		s.log.Warn("breach check failed", "err", err)
		return res, err
	}
	return res, nil
}

// RecentEvents returns up to limit audit events, newest first.
func (s *Service) RecentEvents(ctx context.Context, limit int) ([]db.Event, error) {
	if s.opts.Audit == nil {
		return nil, ErrAuditDisabled
	}
	return db.RecentEvents(ctx, s.opts.Audit, limit)
}

// record writes an audit event when auditing is enabled. Failures are logged only.
func (s *Service) record(ctx context.Context, kind db.EventKind, service string, ok bool) {
	if s.opts.Audit == nil {
		return
	}
	if _, err := db.InsertEvent(ctx, s.opts.Audit, db.Event{Kind: kind, Service: service, OK: ok}); err != nil {
		s.log.Warn("audit write failed", "kind", string(kind), "err", err)
	}
}
