// Package config provides the persisted key-value store backing the
// workspace root path and cached submission variables. The store is a
// single-table SQLite database in the user's config directory; see
// driver_purego.go and driver_cgo.go for driver selection.
package config

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// Keys used by the pipelines. The workspace root is the only durable
// setting; var.* keys cache prompted submission variables.
const (
	keyWorkspaceRoot = "workspace.root"
	varKeyPrefix     = "var."
)

// Store is a persisted key-value store.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default store location under the user config
// directory.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(base, "snarf", "settings.db"), nil
}

// Open opens (creating if necessary) the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize settings store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

// Delete removes key from the store. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}

// WorkspaceRoot returns the persisted workspace root path, if set.
func (s *Store) WorkspaceRoot() (string, bool, error) {
	return s.Get(keyWorkspaceRoot)
}

// SetWorkspaceRoot persists the workspace root path.
func (s *Store) SetWorkspaceRoot(path string) error {
	return s.Set(keyWorkspaceRoot, path)
}

// ClearWorkspaceRoot removes the persisted workspace root path.
func (s *Store) ClearWorkspaceRoot() error {
	return s.Delete(keyWorkspaceRoot)
}

// CachedVar returns a cached submission variable by placeholder token.
func (s *Store) CachedVar(token string) (string, bool, error) {
	return s.Get(varKeyPrefix + token)
}

// SetCachedVar caches a submission variable by placeholder token.
func (s *Store) SetCachedVar(token, value string) error {
	return s.Set(varKeyPrefix+token, value)
}
