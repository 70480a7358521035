// Package sink stores received payloads verbatim in SQLite.
//
// The collector does no processing: bodies are kept exactly as delivered,
// indexed by kind and session for inspection.
package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite
)

// Payload kinds.
const (
	KindFingerprint = "fingerprint"
	KindTrail       = "trail"
)

// Record is one stored payload.
type Record struct {
	ID         int64           `json:"id"`
	Kind       string          `json:"kind"`
	SessionID  string          `json:"session_id"`
	ReceivedAt time.Time       `json:"received_at"`
	Body       json.RawMessage `json:"body"`
}

// Counts summarizes the store.
type Counts struct {
	Fingerprints int64 `json:"fingerprints"`
	Trails       int64 `json:"trails"`
	Sessions     int64 `json:"sessions"`
}

// Store is a SQLite-backed payload store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the store at path.
func Open(ctx context.Context, path string) (*Store, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStore, path, err)
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS payloads(
	  id          INTEGER PRIMARY KEY,
	  kind        TEXT    NOT NULL CHECK (kind IN ('fingerprint','trail')),
	  session_id  TEXT    NOT NULL,
	  received_at INTEGER NOT NULL,
	  body        TEXT    NOT NULL CHECK (json_valid(body))
	);
	CREATE INDEX IF NOT EXISTS idx_payloads_session ON payloads(session_id);
	CREATE INDEX IF NOT EXISTS idx_payloads_kind    ON payloads(kind, id);
	`)
	if err != nil {
		return fmt.Errorf("%w: create tables: %w", ErrStore, err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert stores one payload body and returns its row id.
func (s *Store) Insert(ctx context.Context, kind, sessionID string, body []byte, receivedAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO payloads(kind, session_id, received_at, body) VALUES(?,?,?,json(?))`,
		kind, sessionID, receivedAt.UnixMilli(), string(body))
	if err != nil {
		return 0, fmt.Errorf("%w: insert %s: %w", ErrStore, kind, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: insert id: %w", ErrStore, err)
	}
	return id, nil
}

// Counts returns per-kind totals and the number of distinct sessions.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `
	SELECT
	  COALESCE(SUM(kind = 'fingerprint'), 0),
	  COALESCE(SUM(kind = 'trail'), 0),
	  COUNT(DISTINCT session_id)
	FROM payloads`).Scan(&c.Fingerprints, &c.Trails, &c.Sessions)
	if err != nil {
		return Counts{}, fmt.Errorf("%w: counts: %w", ErrStore, err)
	}
	return c, nil
}

// Recent returns up to limit payloads of kind, newest first. An empty kind
// matches every kind.
func (s *Store) Recent(ctx context.Context, kind string, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, kind, session_id, received_at, body
	FROM payloads
	WHERE (? = '' OR kind = ?)
	ORDER BY id DESC
	LIMIT ?`, kind, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: recent: %w", ErrStore, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r    Record
			ms   int64
			body string
		)
		if err := rows.Scan(&r.ID, &r.Kind, &r.SessionID, &ms, &body); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrStore, err)
		}
		r.ReceivedAt = time.UnixMilli(ms).UTC()
		r.Body = json.RawMessage(body)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %w", ErrStore, err)
	}
	return out, nil
}
