package kvstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"                      // SQLite driver
	_ "github.com/tursodatabase/libsql-client-go/libsql" // libsql driver
)

// SQLStore is the durable cache on an embedded SQLite file or a remote
// libsql database, whichever the configuration provides.
type SQLStore struct {
	db *sql.DB
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS balance_cache (
	key TEXT PRIMARY KEY,
	value REAL NOT NULL,
	written_at TEXT NOT NULL DEFAULT (datetime('now'))
)`

// OpenSQLite opens (creating if needed) the local cache database.
func OpenSQLite(path string) (*SQLStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite cache: %w", err)
	}
	return initSQL(db)
}

// OpenLibsql connects to a remote libsql cache database.
func OpenLibsql(url, authToken string) (*SQLStore, error) {
	connStr := url
	if authToken != "" {
		connStr = url + "?authToken=" + authToken
	}
	db, err := sql.Open("libsql", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql cache: %w", err)
	}
	return initSQL(db)
}

func initSQL(db *sql.DB) (*SQLStore, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache database ping failed: %w", err)
	}
	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (float64, bool, error) {
	var value float64
	err := s.db.QueryRowContext(ctx, "SELECT value FROM balance_cache WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value float64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO balance_cache (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, written_at = datetime('now')",
		key, value)
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) SetBatch(ctx context.Context, entries map[string]float64) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cache batch begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO balance_cache (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, written_at = datetime('now')")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("cache batch prepare: %w", err)
	}
	defer stmt.Close()

	for key, value := range entries {
		if _, err := stmt.ExecContext(ctx, key, value); err != nil {
			tx.Rollback()
			return fmt.Errorf("cache batch set %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cache batch commit: %w", err)
	}
	return nil
}

func (s *SQLStore) DeletePrefix(ctx context.Context, prefix string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM balance_cache WHERE key >= ? AND key < ?", prefix, prefix+"\xff")
	if err != nil {
		return fmt.Errorf("cache delete prefix %s: %w", prefix, err)
	}
	return nil
}

func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM balance_cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return n, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
