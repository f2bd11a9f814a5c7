package service_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hussein-Mazeh/credvault/auth"
	"github.com/Hussein-Mazeh/credvault/internal/db"
	"github.com/Hussein-Mazeh/credvault/internal/logger"
	"github.com/Hussein-Mazeh/credvault/internal/service"
	"github.com/Hussein-Mazeh/credvault/internal/vault"
	"github.com/Hussein-Mazeh/credvault/krypto"
	"github.com/Hussein-Mazeh/credvault/store"
)

const master = "Sup3r-Secret-Master!"

func newService(t *testing.T, dir string, opts service.Options) *service.Service {
	t.Helper()
	svc := service.New(dir, opts)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func unlocked(t *testing.T, dir string, opts service.Options) *service.Service {
	t.Helper()
	svc := newService(t, dir, opts)
	_, err := svc.Unlock(context.Background(), master)
	require.NoError(t, err)
	return svc
}

func TestUnlockFirstRunCreatesFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	svc := newService(t, dir, service.Options{})

	needs, err := svc.NeedsMasterSetup()
	require.NoError(t, err)
	assert.True(t, needs)
	assert.False(t, svc.IsUnlocked())

	created, err := svc.Unlock(ctx, master)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, svc.IsUnlocked())

	paths := store.Paths{Dir: dir}
	for _, p := range []string{paths.KeyPath(), paths.MasterHashPath()} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}

	again := newService(t, dir, service.Options{})
	created, err = again.Unlock(ctx, master)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestUnlockWrongPassphraseKeepsVaultLocked(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	unlocked(t, dir, service.Options{})

	var logs bytes.Buffer
	svc := newService(t, dir, service.Options{Logger: logger.NewWithWriter(&logs, 0)})
	_, err := svc.Unlock(ctx, "not-the-master")
	assert.ErrorIs(t, err, auth.ErrInvalidPassphrase)
	assert.False(t, svc.IsUnlocked())
	assert.Contains(t, logs.String(), "master passphrase rejected")
	assert.NotContains(t, logs.String(), "not-the-master")

	assert.ErrorIs(t, svc.Add(ctx, "svc", "u", "s"), service.ErrLocked)
	_, err = svc.Get(ctx, "svc")
	assert.ErrorIs(t, err, service.ErrLocked)
	_, err = svc.List()
	assert.ErrorIs(t, err, service.ErrLocked)
	assert.ErrorIs(t, svc.Delete(ctx, "svc"), service.ErrLocked)
}

func TestUnlockWrongPassphraseDoesNotCreateKey(t *testing.T) {
	dir := t.TempDir()
	paths := store.Paths{Dir: dir}

	svc := unlocked(t, dir, service.Options{})
	require.NoError(t, svc.Close())
	require.NoError(t, os.Remove(paths.KeyPath()))

	_, err := newService(t, dir, service.Options{}).Unlock(context.Background(), "wrong")
	require.ErrorIs(t, err, auth.ErrInvalidPassphrase)

	_, statErr := os.Stat(paths.KeyPath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestAddGetLastWriteWins(t *testing.T) {
	ctx := context.Background()
	svc := unlocked(t, t.TempDir(), service.Options{})

	require.NoError(t, svc.Add(ctx, "svc", "u", "s1"))
	require.NoError(t, svc.Add(ctx, "svc", "u2", "s2"))

	entry, err := svc.Get(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, vault.Entry{Service: "svc", Username: "u2", Secret: "s2"}, entry)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	svc := unlocked(t, t.TempDir(), service.Options{})

	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestGetWithReplacedKeyReportsInvalidToken(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	paths := store.Paths{Dir: dir}

	svc := unlocked(t, dir, service.Options{})
	require.NoError(t, svc.Add(ctx, "svc", "u", "s"))

	key, err := krypto.GenerateFernetKey()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(paths.KeyPath(), []byte(key.Encode()), 0o600))

	reopened := unlocked(t, dir, service.Options{})
	_, err = reopened.Get(ctx, "svc")
	assert.ErrorIs(t, err, krypto.ErrInvalidToken)
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := unlocked(t, t.TempDir(), service.Options{WriteMode: store.WriteInPlace})

	require.NoError(t, svc.Add(ctx, "zulu", "u", "s"))
	require.NoError(t, svc.Add(ctx, "alpha", "u", "s"))

	names, err := svc.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zulu"}, names)

	require.NoError(t, svc.Delete(ctx, "zulu"))
	assert.ErrorIs(t, svc.Delete(ctx, "zulu"), service.ErrNotFound)

	names, err = svc.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, names)
}

func TestEnforcePolicyOnFirstRunOnly(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	opts := service.Options{EnforcePolicy: true}

	_, err := newService(t, dir, opts).Unlock(ctx, "short")
	assert.ErrorIs(t, err, auth.ErrWeakPassphrase)

	_, err = newService(t, dir, opts).Unlock(ctx, master)
	require.NoError(t, err)

	_, err = newService(t, dir, opts).Unlock(ctx, "short")
	assert.ErrorIs(t, err, auth.ErrInvalidPassphrase)
}

func TestGenerate(t *testing.T) {
	svc := newService(t, t.TempDir(), service.Options{})

	pw, err := svc.Generate(context.Background(), 20)
	require.NoError(t, err)
	assert.Len(t, pw, 20)

	_, err = svc.Generate(context.Background(), 0)
	assert.ErrorIs(t, err, auth.ErrInvalidLength)

	assert.GreaterOrEqual(t, svc.Strength(pw).Score, 3)
}

func TestCheckBreach(t *testing.T) {
	ctx := context.Background()

	disabled := newService(t, t.TempDir(), service.Options{})
	assert.False(t, disabled.BreachCheckEnabled())
	res, err := disabled.CheckBreach(ctx, "password")
	require.NoError(t, err)
	assert.False(t, res.Found)

	// SHA-1("password") = 5BAA61E4C9B93F3F0682250B6CF8331B7EE68FD8
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "1E4C9B93F3F0682250B6CF8331B7EE68FD8:42")
	}))
	defer srv.Close()

	enabled := newService(t, t.TempDir(), service.Options{Breach: auth.NewBreachChecker(srv.URL, time.Second)})
	assert.True(t, enabled.BreachCheckEnabled())
	res, err = enabled.CheckBreach(ctx, "password")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, 42, res.Count)
}

func TestAuditTrail(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	audit, err := db.Open(filepath.Join(dir, "audit.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(audit))

	svc := newService(t, dir, service.Options{Audit: audit})
	_, err = svc.Unlock(ctx, master)
	require.NoError(t, err)
	require.NoError(t, svc.Add(ctx, "mail", "ana", "s"))
	_, err = svc.Get(ctx, "missing")
	require.ErrorIs(t, err, service.ErrNotFound)

	events, err := svc.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, db.EventGet, events[0].Kind)
	assert.False(t, events[0].OK)
	assert.Equal(t, "missing", events[0].Service)
	assert.Equal(t, db.EventAdd, events[1].Kind)
	assert.Equal(t, "mail", events[1].Service)
	assert.Equal(t, db.EventSetup, events[2].Kind)

	_, err = newService(t, t.TempDir(), service.Options{}).RecentEvents(ctx, 1)
	assert.ErrorIs(t, err, service.ErrAuditDisabled)
}
