// Package journal persists received events to SQLite for replay and
// debugging. It is optional: the sync layer runs fully in memory and treats
// journal failures as log-worthy, not fatal.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ridewire/dispatchsync/internal/event"
)

// Entry is one journaled event row.
type Entry struct {
	ID         string
	Kind       string
	TenantID   string
	Payload    []byte
	ReceivedAt time.Time
}

// Journal is a SQLite-backed event log.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database at path.
func Open(path string) (*Journal, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to journal database: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running journal migrations: %w", err)
	}
	return j, nil
}

func (j *Journal) migrate() error {
	_, err := j.db.Exec(`
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	tenant_id TEXT,
	payload TEXT,
	received_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_events_received ON events(received_at DESC);
CREATE INDEX IF NOT EXISTS idx_events_kind_received ON events(kind, received_at DESC);
`)
	if err != nil {
		return fmt.Errorf("creating events table: %w", err)
	}
	return nil
}

// Append records one event. Called from the router's dispatch path, so it
// must stay cheap; the raw frame is stored as-is.
func (j *Journal) Append(ctx context.Context, evt event.Event) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events (id, kind, tenant_id, payload, received_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), string(evt.Kind), evt.TenantID, string(evt.Raw),
		evt.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, kind, tenant_id, payload, received_at FROM events ORDER BY received_at DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var payload, receivedAt string
		if err := rows.Scan(&e.ID, &e.Kind, &e.TenantID, &payload, &receivedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Payload = []byte(payload)
		e.ReceivedAt, _ = time.Parse(time.RFC3339Nano, receivedAt)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Prune deletes all but the newest max entries.
func (j *Journal) Prune(ctx context.Context, max int) (int64, error) {
	res, err := j.db.ExecContext(ctx, `
DELETE FROM events WHERE id NOT IN (
	SELECT id FROM events ORDER BY received_at DESC LIMIT ?
)`, max)
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}
