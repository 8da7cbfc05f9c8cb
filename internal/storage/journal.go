// Package storage persists the session journal and account snapshots
// in SQLite, so any session can be replayed event by event afterwards.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/tradersatmichigan/zingers-redux/internal/event"
)

// Journal is the append-only event log for one or more sessions.
type Journal struct {
	db      *sql.DB
	session string
}

// NewJournal opens (or creates) the journal database with WAL mode
// enabled. session tags every event written through this handle.
func NewJournal(dbPath, session string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

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
		CREATE TABLE IF NOT EXISTS events (
			session TEXT NOT NULL,
			seq INTEGER NOT NULL,
			asset INTEGER NOT NULL,
			type INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (session, seq)
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}

	return &Journal{db: db, session: session}, nil
}

// Session returns the session tag this handle writes under.
func (j *Journal) Session() string {
	return j.session
}

// SaveEvent appends one event to the journal.
func (j *Journal) SaveEvent(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = j.db.ExecContext(ctx,
		"INSERT INTO events (session, seq, asset, type, ts, payload) VALUES (?, ?, ?, ?, ?, ?)",
		j.session, ev.GetSeq(), ev.GetAsset(), ev.GetType(), time.Now().UnixMilli(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

// UpsertMetadata saves a key-value pair to the metadata table.
func (j *Journal) UpsertMetadata(ctx context.Context, key, value string) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, time.Now().UnixMilli(),
	)
	return err
}

// GetMetadata retrieves a value from the metadata table. Missing keys
// return an empty string.
func (j *Journal) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := j.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// GetLastSeq returns the highest sequence number recorded for the
// given session, or 0 if the session has no events.
func (j *Journal) GetLastSeq(ctx context.Context, session string) (uint64, error) {
	var lastSeq sql.NullInt64
	err := j.db.QueryRowContext(ctx,
		"SELECT MAX(seq) FROM events WHERE session = ?", session).Scan(&lastSeq)
	if err != nil {
		return 0, fmt.Errorf("failed to get last seq: %w", err)
	}
	if !lastSeq.Valid {
		return 0, nil
	}
	return uint64(lastSeq.Int64), nil
}

// Sessions lists every session tag present in the journal, oldest
// first.
func (j *Journal) Sessions(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT session FROM events GROUP BY session ORDER BY MIN(ts) ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// LoadEvents reads a session's events from fromSeq (inclusive) in
// sequence order, reconstructing the typed event for each row.
func (j *Journal) LoadEvents(ctx context.Context, session string, fromSeq uint64) ([]event.Event, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT seq, type, payload FROM events WHERE session = ? AND seq >= ? ORDER BY seq ASC",
		session, fromSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var seq int64
		var evType int
		var payload []byte

		if err := rows.Scan(&seq, &evType, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		ev, err := decodeStored(event.Type(evType), payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode event %d: %w", seq, err)
		}
		if ev != nil {
			events = append(events, ev)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return events, nil
}

// decodeStored turns one journal row back into its concrete event.
// Unknown types are skipped, so old journals stay readable.
func decodeStored(t event.Type, payload []byte) (event.Event, error) {
	switch t {
	case event.EvRegister:
		var ev event.RegisterEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, err
		}
		return &ev, nil
	case event.EvOrder:
		var ev event.OrderEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, err
		}
		return &ev, nil
	case event.EvCancel:
		var ev event.CancelEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, err
		}
		return &ev, nil
	case event.EvError:
		var ev event.ErrorEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, err
		}
		return &ev, nil
	default:
		return nil, nil
	}
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}
