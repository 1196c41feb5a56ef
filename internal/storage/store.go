package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/glebarez/go-sqlite"

	"github.com/MantisClone/df-py/internal/event"
)

// AuditStore persists the settlement core's audit trail in SQLite.
// Events are appended only after their enclosing call commits, so the
// log never contains effects of aborted calls.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore opens (or creates) the audit database with WAL mode
// enabled.
func NewAuditStore(dbPath string) (*AuditStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	// Metadata table mirrors the key-value writes pushed through the
	// owning registry, for local queries.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_events (
			id INTEGER PRIMARY KEY,
			type INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			call_id TEXT NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit_events table: %w", err)
	}

	return &AuditStore{db: db}, nil
}

// SaveEvent appends an audit event.
func (s *AuditStore) SaveEvent(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO audit_events (id, type, ts, call_id, payload) VALUES (?, ?, ?, ?, ?)",
		ev.GetSeq(), ev.GetType(), ev.GetTs(), ev.GetCallID(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// StoredEvent is a raw audit-log row; the payload keeps the concrete
// event's JSON encoding.
type StoredEvent struct {
	Seq     uint64
	Type    event.Type
	Ts      int64
	CallID  string
	Payload []byte
}

// LoadEvents returns all events with seq >= fromSeq in log order.
func (s *AuditStore) LoadEvents(ctx context.Context, fromSeq uint64) ([]StoredEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, ts, call_id, payload FROM audit_events WHERE id >= ? ORDER BY id ASC",
		fromSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []StoredEvent
	for rows.Next() {
		var ev StoredEvent
		if err := rows.Scan(&ev.Seq, &ev.Type, &ev.Ts, &ev.CallID, &ev.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return events, nil
}

// LastSeq returns the highest stored sequence number, 0 if empty.
func (s *AuditStore) LastSeq(ctx context.Context) (uint64, error) {
	var last sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT MAX(id) FROM audit_events").Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("failed to get last seq: %w", err)
	}
	if !last.Valid {
		return 0, nil
	}
	return uint64(last.Int64), nil
}

// UpsertMetadata saves a key-value pair to the metadata table.
func (s *AuditStore) UpsertMetadata(ctx context.Context, key, value string, ts int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, ts,
	)
	return err
}

// GetMetadata retrieves a value from the metadata table ("" if absent).
func (s *AuditStore) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Close closes the database connection.
func (s *AuditStore) Close() error {
	return s.db.Close()
}
