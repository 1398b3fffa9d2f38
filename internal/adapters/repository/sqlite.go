package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/cyberguardian/internal/domain/model"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS progress (
	storage_key TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	blob        TEXT NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	user_id    TEXT NOT NULL,
	day        TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	record     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, seq);
`

// SQLiteStore persists blobs in an embedded SQLite database. Updates run in
// IMMEDIATE transactions, so concurrent writers from other processes queue on
// the database lock while writers in this process queue on mu.
type SQLiteStore struct {
	settings
	db *sql.DB
	mu sync.Mutex
}

// NewSQLite opens (creating if needed) the database at dbPath.
func NewSQLite(dbPath string, opts ...Option) (*SQLiteStore, error) {
	cfg := newSettings(opts)
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(%d)&_txlock=immediate",
		dbPath, cfg.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{settings: cfg, db: db}, nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, userID string) (*model.UserProgress, error) {
	defer observe(BackendSQLite, "load", time.Now())
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	blob, err := readBlob(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	return s.decode(ctx, BackendSQLite, userID, blob), nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readBlob(ctx context.Context, q queryRower, userID string) ([]byte, error) {
	var blob string
	err := q.QueryRowContext(ctx, `SELECT blob FROM progress WHERE storage_key = ?`, BlobKey(userID)).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}
	return []byte(blob), nil
}

// Update implements Store.
func (s *SQLiteStore) Update(ctx context.Context, userID string, record *model.TrainingSession, fn UpdateFunc) (*model.UserProgress, error) {
	defer observe(BackendSQLite, "update", time.Now())
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	blob, err := readBlob(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	p := s.decode(ctx, BackendSQLite, userID, blob)
	if err := fn(p); err != nil {
		return nil, err
	}
	out, err := Encode(p)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO progress (storage_key, user_id, blob, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(storage_key) DO UPDATE SET
			blob = excluded.blob,
			updated_at = excluded.updated_at`,
		BlobKey(userID), userID, string(out), now)
	if err != nil {
		return nil, fmt.Errorf("write progress: %w", err)
	}

	if record != nil {
		rec, err := encodeSession(record)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO sessions (id, user_id, day, created_at, record) VALUES (?, ?, ?, ?, ?)`,
			record.ID, userID, string(record.Date), int64(record.Timestamp), string(rec))
		if err != nil {
			return nil, fmt.Errorf("append session: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return p, nil
}

// Sessions implements Store.
func (s *SQLiteStore) Sessions(ctx context.Context, userID string) ([]model.TrainingSession, error) {
	defer observe(BackendSQLite, "sessions", time.Now())
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM sessions WHERE user_id = ? ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	out := []model.TrainingSession{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec, err := decodeSession([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// Reset implements Store.
func (s *SQLiteStore) Reset(ctx context.Context, userID string) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM progress WHERE storage_key = ?`, BlobKey(userID)); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	return nil
}

// Put stores a raw blob for userID. It exists to seed legacy or damaged data.
func (s *SQLiteStore) Put(ctx context.Context, userID string, blob []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress (storage_key, user_id, blob, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(storage_key) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`,
		BlobKey(userID), userID, string(blob), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("put progress: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
