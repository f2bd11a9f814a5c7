package db_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hussein-Mazeh/credvault/internal/db"
)

func openAudit(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "logs", "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(d) })
	require.NoError(t, db.Migrate(d))
	return d
}

func TestOpenCreatesDatabaseFile(t *testing.T) {
	d := openAudit(t)
	_, err := os.Stat(d.Path())
	require.NoError(t, err)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := db.Open("")
	assert.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	d := openAudit(t)
	require.NoError(t, db.Migrate(d))
}

func TestInsertAndRecentEvents(t *testing.T) {
	ctx := context.Background()
	d := openAudit(t)

	base := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	for i, kind := range []db.EventKind{db.EventSetup, db.EventAdd, db.EventGet} {
		_, err := db.InsertEvent(ctx, d, db.Event{
			Kind:      kind,
			Service:   "mail",
			OK:        kind != db.EventGet,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	events, err := db.RecentEvents(ctx, d, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, db.EventGet, events[0].Kind)
	assert.False(t, events[0].OK)
	assert.Equal(t, "mail", events[0].Service)
	assert.True(t, events[0].CreatedAt.Equal(base.Add(2*time.Second)))
	assert.NotEmpty(t, events[0].ID)

	assert.Equal(t, db.EventAdd, events[1].Kind)
	assert.True(t, events[1].OK)
}

func TestInsertEventAssignsDefaults(t *testing.T) {
	ctx := context.Background()
	d := openAudit(t)

	e, err := db.InsertEvent(ctx, d, db.Event{Kind: db.EventUnlock, OK: true})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestNilHandle(t *testing.T) {
	_, err := db.InsertEvent(context.Background(), nil, db.Event{})
	assert.Error(t, err)
	_, err = db.RecentEvents(context.Background(), nil, 1)
	assert.Error(t, err)
	assert.NoError(t, db.Close(nil))
}
