// Package postgres archives sessions in PostgreSQL through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"strongholdcore/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.SessionStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/strongholdcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists sessions to a Postgres table with a JSONB payload column.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres-backed store using dsn (falls back to defaultDSN)
// and ensures the sessions table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureSessionsTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSessionsTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		ended_at TIMESTAMPTZ NOT NULL,
		reason TEXT NOT NULL,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure sessions table: %w", err)
	}
	return nil
}

// SaveSession upserts session by ID.
func (s *Store) SaveSession(ctx context.Context, session domain.Session) error {
	if session.ID == "" {
		return errors.New("session id required")
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.ID, err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(id,ended_at,reason,payload) VALUES($1,$2,$3,$4) ON CONFLICT(id) DO UPDATE SET ended_at=EXCLUDED.ended_at, reason=EXCLUDED.reason, payload=EXCLUDED.payload`,
		session.ID, session.EndedAt, string(session.Reason), payload); err != nil {
		return fmt.Errorf("upsert session %s: %w", session.ID, err)
	}
	return nil
}

// GetSession loads one session.
func (s *Store) GetSession(ctx context.Context, id string) (domain.Session, bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM sessions WHERE id = $1`, id)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("select session %s: %w", id, err)
	}
	sessions, err := scanSessions(rows)
	if err != nil {
		return domain.Session{}, false, err
	}
	if len(sessions) == 0 {
		return domain.Session{}, false, nil
	}
	return sessions[0], true, nil
}

// ListSessions returns sessions newest first; limit <= 0 returns all.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, `SELECT payload FROM sessions ORDER BY ended_at DESC, id ASC LIMIT $1`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT payload FROM sessions ORDER BY ended_at DESC, id ASC`)
	}
	if err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	return scanSessions(rows)
}

func scanSessions(rows *sql.Rows) ([]domain.Session, error) {
	defer func() { _ = rows.Close() }()
	var out []domain.Session
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		var session domain.Session
		if err := json.Unmarshal(payload, &session); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
