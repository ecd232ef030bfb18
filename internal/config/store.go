// Package config persists per-provider credential blobs, encrypted at rest,
// in a sqlite database under the user config directory.
package config

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	// Register the pure-Go sqlite driver.
	_ "modernc.org/sqlite"
)

// ErrDecryptFailed is returned when a stored config blob cannot be decrypted.
// The stored credentials are permanently unreadable at that point; the caller
// is expected to clear all configuration and prompt the user to reconfigure.
var ErrDecryptFailed = errors.New("cannot decrypt stored configuration")

// ServiceConfig is one provider's stored key-value credential mapping.
type ServiceConfig struct {
	Service string
	Config  map[string]string
}

// Store is the encrypted credential store. Values are opaque strings keyed by
// provider name; each provider only reads and writes its own partition.
type Store struct {
	db  *sql.DB
	box *secretBox
	dir string
}

// DefaultDir returns the ttcli config directory.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(base, "ttcli"), nil
}

// Open opens (creating if necessary) the store in the default directory.
func Open() (*Store, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return OpenAt(dir)
}

// OpenAt opens the store rooted at dir, creating the directory, encryption
// key and database schema on first use.
func OpenAt(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	key, err := loadOrCreateKey(filepath.Join(dir, "key"))
	if err != nil {
		return nil, err
	}
	box, err := newSecretBox(key)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "config.sqlite"))
	if err != nil {
		return nil, fmt.Errorf("opening config database: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS config (
		service TEXT PRIMARY KEY NOT NULL,
		blob BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating config schema: %w", err)
	}

	return &Store{db: db, box: box, dir: dir}, nil
}

// Dir returns the directory the store lives in. Providers keep auxiliary
// cache files (for example session tokens) next to the database.
func (s *Store) Dir() string {
	return s.dir
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Read returns the stored config for service, or nil when none exists.
func (s *Store) Read(service string) (map[string]string, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT blob FROM config WHERE service = ?`, service).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config for %s: %w", service, err)
	}

	var cfg map[string]string
	if err := s.box.open(blob, &cfg); err != nil {
		return nil, fmt.Errorf("config for %s: %w", service, err)
	}
	return cfg, nil
}

// Write stores (or replaces) the config for service.
func (s *Store) Write(service string, cfg map[string]string) error {
	blob, err := s.box.seal(cfg)
	if err != nil {
		return fmt.Errorf("encrypting config for %s: %w", service, err)
	}
	_, err = s.db.Exec(`INSERT INTO config (service, blob) VALUES (?, ?)
		ON CONFLICT(service) DO UPDATE SET blob = excluded.blob`, service, blob)
	if err != nil {
		return fmt.Errorf("writing config for %s: %w", service, err)
	}
	return nil
}

// Clear removes the stored config for service.
func (s *Store) Clear(service string) error {
	if _, err := s.db.Exec(`DELETE FROM config WHERE service = ?`, service); err != nil {
		return fmt.Errorf("clearing config for %s: %w", service, err)
	}
	return nil
}

// ClearAll removes every stored config. Used when the encryption key can no
// longer decrypt the stored credentials.
func (s *Store) ClearAll() error {
	if _, err := s.db.Exec(`DELETE FROM config`); err != nil {
		return fmt.Errorf("clearing config: %w", err)
	}
	return nil
}

// List returns all stored configs ordered by service name.
func (s *Store) List() ([]ServiceConfig, error) {
	rows, err := s.db.Query(`SELECT service, blob FROM config ORDER BY service`)
	if err != nil {
		return nil, fmt.Errorf("listing config: %w", err)
	}
	defer rows.Close()

	var out []ServiceConfig
	for rows.Next() {
		var sc ServiceConfig
		var blob []byte
		if err := rows.Scan(&sc.Service, &blob); err != nil {
			return nil, fmt.Errorf("listing config: %w", err)
		}
		if err := s.box.open(blob, &sc.Config); err != nil {
			return nil, fmt.Errorf("config for %s: %w", sc.Service, err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
