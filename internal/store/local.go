package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"storefront/internal/logging"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names registered by the blank imports above.
const (
	DriverPureGo = "sqlite"  // modernc.org/sqlite
	DriverCgo    = "sqlite3" // github.com/mattn/go-sqlite3
)

// LocalStore implements KV on SQLite. It is the durable scope.
type LocalStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewLocalStore opens (creating if needed) the SQLite database at path with the given
// driver. Use ":memory:" for a throwaway database.
func NewLocalStore(driver, path string) (*LocalStore, error) {
	if driver == "" {
		driver = DriverPureGo
	}

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent across calls.
	db.SetMaxOpenConns(1)

	s := &LocalStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.StoreDebug("opened %s store at %s", driver, path)
	return s, nil
}

// initialize creates the v1 kv table and migrates it to the current schema.
func (s *LocalStore) initialize() error {
	kvTable := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(kvTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return RunMigrations(s.db)
}

// Close closes the database connection.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// Path returns the database location.
func (s *LocalStore) Path() string {
	return s.dbPath
}

func (s *LocalStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		logging.StoreError("get %s: %v", key, err)
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (s *LocalStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		logging.StoreError("set %s: %v", key, err)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	logging.StoreDebug("set %s (%d bytes)", key, len(value))
	return nil
}

func (s *LocalStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		logging.StoreError("delete %s: %v", key, err)
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	logging.StoreDebug("deleted %s", key)
	return nil
}

// Keys lists stored keys in lexical order.
func (s *LocalStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT key FROM kv ORDER BY key")
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
	return keys, rows.Err()
}
