package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soaringjerry/gradtrack/internal/kv"
)

// SQLiteStore persists KV entries in a single kv_entries table. Deleted keys stay as
// tombstone rows so their version keeps counting.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens the database file at path with the driver options the store expects.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(path))
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// shared-cache connections report SQLITE_LOCKED instead of waiting on busy_timeout
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return conn, nil
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *SQLiteStore) logErr(prefix string, err error) {
	if err != nil {
		log.Printf("sqlite store: %s: %v", prefix, err)
	}
}

func (s *SQLiteStore) stamp() string { return s.now().Format(time.RFC3339Nano) }

func (s *SQLiteStore) Get(ctx context.Context, key string) (kv.Entry, bool, error) {
	var e kv.Entry
	var deleted bool
	err := s.db.QueryRowContext(ctx,
		`SELECT value, version, deleted FROM kv_entries WHERE key = ?`, key).Scan(&e.Value, &e.Version, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return kv.Entry{}, false, nil
	}
	if err != nil {
		s.logErr("get "+key, err)
		return kv.Entry{}, false, err
	}
	if deleted {
		return kv.Entry{Version: e.Version}, false, nil
	}
	return e, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) (int64, error) {
	var version int64
	err := s.db.QueryRowContext(ctx, `
INSERT INTO kv_entries (key, value, version, updated_at) VALUES (?, ?, 1, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, version = kv_entries.version + 1,
    updated_at = excluded.updated_at, deleted = 0
RETURNING version`, key, value, s.stamp()).Scan(&version)
	if err != nil {
		s.logErr("set "+key, err)
		return 0, err
	}
	return version, nil
}

// CompareAndSet writes value only if the stored version equals version; version 0
// means the key must never have been written. A tombstone matches its own version.
func (s *SQLiteStore) CompareAndSet(ctx context.Context, key, value string, version int64) (int64, error) {
	var res sql.Result
	var err error
	if version == 0 {
		res, err = s.db.ExecContext(ctx, `
INSERT INTO kv_entries (key, value, version, updated_at) VALUES (?, ?, 1, ?)
ON CONFLICT(key) DO NOTHING`, key, value, s.stamp())
	} else {
		res, err = s.db.ExecContext(ctx, `
UPDATE kv_entries SET value = ?, version = version + 1, updated_at = ?, deleted = 0
WHERE key = ? AND version = ?`, value, s.stamp(), key, version)
	}
	if err != nil {
		s.logErr("compare-and-set "+key, err)
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, kv.ErrVersionConflict
	}
	return version + 1, nil
}

// Delete turns the row into a tombstone one version past the last write.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE kv_entries SET value = '', version = version + 1, updated_at = ?, deleted = 1
WHERE key = ? AND deleted = 0`, s.stamp(), key)
	s.logErr("delete "+key, err)
	return err
}

// Keys lists stored keys in lexical order.
func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv_entries WHERE deleted = 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, rows.Err()
}

var _ kv.Store = (*SQLiteStore)(nil)
