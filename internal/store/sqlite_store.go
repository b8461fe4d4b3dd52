// Package store provides SQLite-backed persistence for babylog.
// Uses ncruces/go-sqlite3/driver which provides a database/sql interface.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SQLiteStore is the SQLite-backed event store.
// Writers are serialized by mu; readers share it.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// schema defines the event log.
const schema = `
-- Events (append log with mutable end_time for intervals)
-- Times are unix milliseconds.
-- No foreign keys: events are independent rows.
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    type TEXT NOT NULL,
    subtype TEXT NOT NULL DEFAULT '',
    value REAL,
    value_secondary REAL,
    start_time INTEGER NOT NULL,
    end_time INTEGER,
    note TEXT,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_type_start ON events(type, start_time);
CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_time);
-- Partial index for open-interval lookups
CREATE INDEX IF NOT EXISTS idx_events_open ON events(type) WHERE end_time IS NULL;
`

const eventColumns = `id, type, subtype, value, value_secondary, start_time, end_time, note`

// NewSQLiteStore creates a new in-memory SQLite store.
func NewSQLiteStore() (*SQLiteStore, error) {
	return NewSQLiteStoreWithDSN(":memory:")
}

// NewSQLiteStoreWithDSN creates a store with a specific data source name.
// Use ":memory:" for in-memory or a file path for persistent storage.
func NewSQLiteStoreWithDSN(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: ":memory:" databases are per-connection, and SQLite
	// allows a single writer anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Create schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// =============================================================================
// Transactions
// =============================================================================

// Tx is a single database transaction over the event log.
// It is only valid inside the callback passed to Update or View.
type Tx struct {
	tx *sql.Tx
}

// Update runs fn inside one write transaction. Concurrent Update calls are
// serialized, so a read followed by a write inside fn is atomic.
// The transaction commits when fn returns nil and rolls back otherwise.
func (s *SQLiteStore) Update(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, fn)
}

// View runs fn inside one transaction so every query sees the same snapshot.
// fn must not write.
func (s *SQLiteStore) View(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.run(ctx, fn)
}

func (s *SQLiteStore) run(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(&Tx{tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// =============================================================================
// Event CRUD
// =============================================================================

// Insert stores e and assigns its ID. A non-zero e.ID is kept as-is (import path).
func (t *Tx) Insert(ctx context.Context, e *Event) error {
	if !e.Type.Valid() {
		return fmt.Errorf("insert: unknown event type %q", e.Type)
	}
	if e.StartTime.IsZero() {
		return fmt.Errorf("insert: start time is required")
	}

	var id any
	if e.ID != 0 {
		id = e.ID
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO events (id, type, subtype, value, value_secondary, start_time, end_time, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, string(e.Type), e.Subtype, nullFloat(e.Value), nullFloat(e.ValueSecondary),
		toMillis(e.StartTime), nullTime(e.EndTime), nullString(e.Note), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	if e.ID == 0 {
		if e.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("insert event id: %w", err)
		}
	}
	return nil
}

// Get retrieves an event by ID. Returns nil, nil if it does not exist.
func (t *Tx) Get(ctx context.Context, id int64) (*Event, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return e, nil
}

// Save writes the mutable fields of e. Type and ID never change.
// Reports false if no event with e.ID exists.
func (t *Tx) Save(ctx context.Context, e *Event) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE events SET subtype = ?, value = ?, value_secondary = ?, start_time = ?, end_time = ?, note = ?
		WHERE id = ?
	`, e.Subtype, nullFloat(e.Value), nullFloat(e.ValueSecondary),
		toMillis(e.StartTime), nullTime(e.EndTime), nullString(e.Note), e.ID)
	if err != nil {
		return false, fmt.Errorf("save event %d: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes an event by ID. Reports false if it did not exist.
func (t *Tx) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete event %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// =============================================================================
// Event Queries
// =============================================================================

// Latest returns the most recent event of a type, by start time then ID.
// Returns nil, nil if there is none.
func (t *Tx) Latest(ctx context.Context, typ EventType) (*Event, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE type = ?
		ORDER BY start_time DESC, id DESC
		LIMIT 1
	`, string(typ))
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest %s: %w", typ, err)
	}
	return e, nil
}

// OpenIntervals returns every event of typ without an end time, newest first.
func (t *Tx) OpenIntervals(ctx context.Context, typ EventType) ([]*Event, error) {
	return t.query(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE type = ? AND end_time IS NULL
		ORDER BY start_time DESC, id DESC
	`, string(typ))
}

// InRange returns events of typ whose start time lies in [from, to], oldest first.
func (t *Tx) InRange(ctx context.Context, typ EventType, from, to time.Time) ([]*Event, error) {
	return t.query(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE type = ? AND start_time >= ? AND start_time <= ?
		ORDER BY start_time ASC, id ASC
	`, string(typ), toMillis(from), toMillis(to))
}

// AllOfType returns every event of typ, oldest first.
func (t *Tx) AllOfType(ctx context.Context, typ EventType) ([]*Event, error) {
	return t.query(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE type = ?
		ORDER BY start_time ASC, id ASC
	`, string(typ))
}

// List returns events matching q, newest first.
func (t *Tx) List(ctx context.Context, q ListQuery) ([]*Event, error) {
	var (
		where []string
		args  []any
	)
	if !q.Since.IsZero() {
		where = append(where, "start_time >= ?")
		args = append(args, toMillis(q.Since))
	}
	if len(q.ExcludeTypes) > 0 {
		marks := make([]string, len(q.ExcludeTypes))
		for i, typ := range q.ExcludeTypes {
			marks[i] = "?"
			args = append(args, string(typ))
		}
		where = append(where, "type NOT IN ("+strings.Join(marks, ", ")+")")
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + eventColumns + ` FROM events`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY start_time DESC, id DESC")
	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}
	return t.query(ctx, b.String(), args...)
}

// Count returns the number of stored events.
func (t *Tx) Count(ctx context.Context) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

func (t *Tx) query(ctx context.Context, query string, args ...any) ([]*Event, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// =============================================================================
// Single-statement helpers
// =============================================================================

// Insert stores e in its own transaction.
func (s *SQLiteStore) Insert(ctx context.Context, e *Event) error {
	return s.Update(ctx, func(tx *Tx) error { return tx.Insert(ctx, e) })
}

// Get retrieves an event by ID. Returns nil, nil if it does not exist.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Event, error) {
	var e *Event
	err := s.View(ctx, func(tx *Tx) (err error) {
		e, err = tx.Get(ctx, id)
		return err
	})
	return e, err
}

// Delete removes an event by ID. Reports false if it did not exist.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := s.Update(ctx, func(tx *Tx) (err error) {
		ok, err = tx.Delete(ctx, id)
		return err
	})
	return ok, err
}

// List returns events matching q, newest first.
func (s *SQLiteStore) List(ctx context.Context, q ListQuery) ([]*Event, error) {
	var events []*Event
	err := s.View(ctx, func(tx *Tx) (err error) {
		events, err = tx.List(ctx, q)
		return err
	})
	return events, err
}

// Count returns the number of stored events.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.View(ctx, func(tx *Tx) (err error) {
		n, err = tx.Count(ctx)
		return err
	})
	return n, err
}

// =============================================================================
// Export / Import
// =============================================================================

// exportData is the JSON backup format.
type exportData struct {
	Events []*Event `json:"events"`
}

// Export serializes the whole event log to JSON, oldest first.
// This is a portable export that doesn't depend on sqlite3 serialization APIs.
func (s *SQLiteStore) Export(ctx context.Context) ([]byte, error) {
	data := exportData{Events: []*Event{}}
	err := s.View(ctx, func(tx *Tx) error {
		events, err := tx.query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY start_time ASC, id ASC`)
		if err != nil {
			return fmt.Errorf("export events: %w", err)
		}
		if events != nil {
			data.Events = events
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(data)
}

// legacyEntry is one record of the flat JSON array written by the previous
// file-based tracker. Only timestamp and type are guaranteed.
type legacyEntry struct {
	Type           EventType `json:"type"`
	Subtype        string    `json:"subtype"`
	Value          *float64  `json:"value"`
	ValueSecondary *float64  `json:"value_secondary"`
	Note           *string   `json:"note"`
	Timestamp      string    `json:"timestamp"`
	EndTime        string    `json:"end_time"`
}

// Import replaces the event log with the contents of data and returns the
// number of imported events. data is either an Export document, whose IDs are
// preserved, or a legacy flat array, whose entries get fresh IDs.
func (s *SQLiteStore) Import(ctx context.Context, data []byte) (int, error) {
	events, err := decodeImport(data)
	if err != nil {
		return 0, err
	}

	err = s.Update(ctx, func(tx *Tx) error {
		if _, err := tx.tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
			return fmt.Errorf("clear events: %w", err)
		}
		for _, e := range events {
			if err := tx.Insert(ctx, e); err != nil {
				return fmt.Errorf("import event %d: %w", e.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

func decodeImport(data []byte) ([]*Event, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}

	if !strings.HasPrefix(trimmed, "[") {
		var doc exportData
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("import unmarshal: %w", err)
		}
		return doc.Events, nil
	}

	var entries []legacyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("import legacy unmarshal: %w", err)
	}
	// The legacy file is newest first.
	events := make([]*Event, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		le := entries[i]
		start, err := parseLegacyTime(le.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("legacy entry %d: %w", i, err)
		}
		e := &Event{
			Type:           le.Type,
			Subtype:        le.Subtype,
			Value:          le.Value,
			ValueSecondary: le.ValueSecondary,
			StartTime:      start,
			Note:           le.Note,
		}
		if le.EndTime != "" {
			end, err := parseLegacyTime(le.EndTime)
			if err != nil {
				return nil, fmt.Errorf("legacy entry %d end time: %w", i, err)
			}
			e.EndTime = &end
		}
		events = append(events, e)
	}
	return events, nil
}

// parseLegacyTime accepts RFC 3339 or the naive ISO form written by the old
// tracker, which is interpreted in local time.
func parseLegacyTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05.999999999", v, time.Local)
}

// =============================================================================
// Helpers
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(r rowScanner) (*Event, error) {
	var (
		e                     Event
		typ                   string
		value, valueSecondary sql.NullFloat64
		start                 int64
		end                   sql.NullInt64
		note                  sql.NullString
	)
	if err := r.Scan(&e.ID, &typ, &e.Subtype, &value, &valueSecondary, &start, &end, &note); err != nil {
		return nil, err
	}
	e.Type = EventType(typ)
	e.StartTime = fromMillis(start)
	if value.Valid {
		e.Value = &value.Float64
	}
	if valueSecondary.Valid {
		e.ValueSecondary = &valueSecondary.Float64
	}
	if end.Valid {
		t := fromMillis(end.Int64)
		e.EndTime = &t
	}
	if note.Valid {
		e.Note = &note.String
	}
	return &e, nil
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms) }

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// Compile-time interface check
var _ Storer = (*SQLiteStore)(nil)
