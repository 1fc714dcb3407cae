// Package settings is the local key-value store. Its one real tenant is
// the inference API credential, persisted under a fixed key, read at
// startup, and never transmitted anywhere except as the Authorization
// header of the inference call.
package settings

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// APIKeyName is the fixed key the credential is stored under.
const APIKeyName = "api_key"

// Store is a SQLite-backed key-value settings store.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the settings database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS settings (
        name TEXT PRIMARY KEY,
        value TEXT NOT NULL,
        updated_at DATETIME NOT NULL
    );
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Get returns the stored value for a setting, or "" when it was never set.
func (s *Store) Get(name string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", name, err)
	}
	return value, nil
}

// Set stores or replaces a setting value.
func (s *Store) Set(name, value string) error {
	query := `
        INSERT INTO settings (name, value, updated_at)
        VALUES (?, ?, ?)
        ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
    `
	if _, err := s.db.Exec(query, name, value, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to write setting %s: %w", name, err)
	}
	return nil
}

// Delete removes a setting. Deleting an absent setting is not an error.
func (s *Store) Delete(name string) error {
	if _, err := s.db.Exec(`DELETE FROM settings WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", name, err)
	}
	return nil
}

// APIKey returns the stored inference credential, or "" when none is set.
func (s *Store) APIKey() (string, error) {
	return s.Get(APIKeyName)
}

// SetAPIKey stores the inference credential.
func (s *Store) SetAPIKey(key string) error {
	return s.Set(APIKeyName, key)
}
