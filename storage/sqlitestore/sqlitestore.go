// Package sqlitestore keeps slot blobs in a SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dailyyoga/savekit/logger"
	"github.com/dailyyoga/savekit/storage"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS save_slots (
    user_index INTEGER NOT NULL,
    slot TEXT NOT NULL,
    blob BLOB NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (user_index, slot)
);
`

// Store persists slot blobs in SQLite.
type Store struct {
	logger logger.Logger
	sqlDB  *sql.DB
}

var _ storage.BlobStore = (*Store)(nil)

// Open opens the database at path and creates the slot table.
func Open(log logger.Logger, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, storage.ErrInvalidConfig("path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := "file:" + cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlitestore: ping db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlitestore: create schema: %w", err)
	}

	log.Info("sqlite store opened", zap.String("path", cleanPath))
	return &Store{logger: log, sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Exists(ctx context.Context, key storage.Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var one int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT 1 FROM save_slots WHERE user_index = ? AND slot = ?`,
		key.User, key.Slot,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storage.ErrRead(key, err)
	}
	return true, nil
}

func (s *Store) Read(ctx context.Context, key storage.Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var blob []byte
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT blob FROM save_slots WHERE user_index = ? AND slot = ?`,
		key.User, key.Slot,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrMissing(key)
	}
	if err != nil {
		return nil, storage.ErrRead(key, err)
	}
	return blob, nil
}

func (s *Store) Write(ctx context.Context, key storage.Key, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key.Slot == "" {
		return storage.ErrInvalidSlot
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO save_slots (user_index, slot, blob, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_index, slot) DO UPDATE SET
		   blob = excluded.blob,
		   updated_at = excluded.updated_at`,
		key.User, key.Slot, blob, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return storage.ErrWrite(key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key storage.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM save_slots WHERE user_index = ? AND slot = ?`,
		key.User, key.Slot,
	)
	if err != nil {
		return storage.ErrWrite(key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.ErrWrite(key, err)
	}
	if n == 0 {
		return storage.ErrMissing(key)
	}
	return nil
}

func (s *Store) List(ctx context.Context, user int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT slot FROM save_slots WHERE user_index = ? ORDER BY slot`,
		user,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list user %d: %w", user, err)
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitestore: list user %d: %w", user, err)
	}
	return slots, nil
}
