package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hussein-Mazeh/credvault/store"
)

func TestPathsUseFixedNames(t *testing.T) {
	p := store.Paths{Dir: "/tmp/v"}
	assert.Equal(t, filepath.Join("/tmp/v", "secret.key"), p.KeyPath())
	assert.Equal(t, filepath.Join("/tmp/v", "master.hash"), p.MasterHashPath())
	assert.Equal(t, filepath.Join("/tmp/v", "passwords.json"), p.DataPath())

	assert.Equal(t, "secret.key", store.Paths{}.KeyPath())
}

func TestLoadOrCreateKeyIsIdempotent(t *testing.T) {
	p := store.Paths{Dir: filepath.Join(t.TempDir(), "vault")}

	first, created, err := store.LoadOrCreateKey(p)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := store.LoadOrCreateKey(p)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(p.KeyPath())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestLoadOrCreateKeyRejectsCorruptKey(t *testing.T) {
	p := store.Paths{Dir: t.TempDir()}
	require.NoError(t, os.WriteFile(p.KeyPath(), []byte("garbage"), 0o600))

	_, _, err := store.LoadOrCreateKey(p)
	require.Error(t, err)
}

func TestMasterHashRoundTrip(t *testing.T) {
	p := store.Paths{Dir: t.TempDir()}

	_, err := store.LoadMasterHash(p)
	require.True(t, errors.Is(err, os.ErrNotExist))

	require.NoError(t, store.SaveMasterHash(p, "c2FsdGFuZGhhc2g="))

	got, err := store.LoadMasterHash(p)
	require.NoError(t, err)
	assert.Equal(t, "c2FsdGFuZGhhc2g=", got)

	err = store.SaveMasterHash(p, "b3RoZXI=")
	assert.ErrorIs(t, err, store.ErrMasterExists)

	got, err = store.LoadMasterHash(p)
	require.NoError(t, err)
	assert.Equal(t, "c2FsdGFuZGhhc2g=", got)
}

func TestLoadRecordsMissingFileIsEmpty(t *testing.T) {
	records, err := store.LoadRecords(store.Paths{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
}

func TestSaveRecordsRewritesWholeFile(t *testing.T) {
	for _, mode := range []store.WriteMode{store.WriteAtomic, store.WriteInPlace} {
		p := store.Paths{Dir: t.TempDir()}

		require.NoError(t, store.SaveRecords(p, map[string]store.Record{
			"mail": {Username: "ana", Password: "tok1"},
			"bank": {Username: "ana", Password: "tok2"},
		}, mode))
		require.NoError(t, store.SaveRecords(p, map[string]store.Record{
			"mail": {Username: "bea", Password: "tok3"},
		}, mode))

		records, err := store.LoadRecords(p)
		require.NoError(t, err)
		assert.Equal(t, map[string]store.Record{"mail": {Username: "bea", Password: "tok3"}}, records)

		entries, err := os.ReadDir(p.Dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1, "no temp files should remain")
	}
}

func TestLoadRecordsReadsExistingFile(t *testing.T) {
	p := store.Paths{Dir: t.TempDir()}
	raw := `{"github": {"username": "luz", "password": "gAAAAA-token"}}`
	require.NoError(t, os.WriteFile(p.DataPath(), []byte(raw), 0o600))

	records, err := store.LoadRecords(p)
	require.NoError(t, err)
	assert.Equal(t, store.Record{Username: "luz", Password: "gAAAAA-token"}, records["github"])
}

func TestLoadRecordsRejectsCorruptFile(t *testing.T) {
	p := store.Paths{Dir: t.TempDir()}
	require.NoError(t, os.WriteFile(p.DataPath(), []byte(`{"half":`), 0o600))

	_, err := store.LoadRecords(p)
	require.Error(t, err)
}
