package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind names an audited vault operation.
type EventKind string

const (
	EventSetup    EventKind = "setup"
	EventUnlock   EventKind = "unlock"
	EventAdd      EventKind = "add"
	EventGet      EventKind = "get"
	EventDelete   EventKind = "delete"
	EventGenerate EventKind = "generate"
)

// Fixed-width UTC layout so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Event is one audit row. It never carries usernames or secrets.
type Event struct {
	ID        string
	Kind      EventKind
	Service   string
	OK        bool
	CreatedAt time.Time
}

// InsertEvent stores e, assigning an ID and timestamp when they are unset.
func InsertEvent(ctx context.Context, d *DB, e Event) (Event, error) {
	if d == nil || d.sql == nil {
		return e, fmt.Errorf("database handle is nil")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO events (id, kind, service, ok, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, string(e.Kind), e.Service, boolToInt(e.OK), e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return e, fmt.Errorf("insert event: %w", err)
	}
	return e, nil
}

// RecentEvents returns up to limit events, newest first.
func RecentEvents(ctx context.Context, d *DB, limit int) ([]Event, error) {
	if d == nil || d.sql == nil {
		return nil, fmt.Errorf("database handle is nil")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, kind, service, ok, created_at
		 FROM events
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer rows.Close()

	var results []Event
	for rows.Next() {
		var (
			e         Event
			kind      string
			ok        int
			createdAt string
		)
		if err := rows.Scan(&e.ID, &kind, &e.Service, &ok, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		at, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse event time %q: %w", createdAt, err)
		}
		e.Kind = EventKind(kind)
		e.OK = ok != 0
		e.CreatedAt = at
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return results, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
