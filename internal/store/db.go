package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a key has no stored value
var ErrNotFound = errors.New("key not found")

// ErrNoSnapshot is returned when no athlete profile has been fetched yet
var ErrNoSnapshot = errors.New("no snapshot stored")

// DB wraps the SQLite connection pool
type DB struct {
	*sql.DB
}

// Open opens the SQLite database at path, creating it if necessary.
func Open(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return setup(db)
}

// OpenInMemory opens a private in-memory database with migrations applied.
func OpenInMemory() (*DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every new connection to :memory: is a fresh database
	db.SetMaxOpenConns(1)

	return setup(db)
}

func setup(db *sql.DB) (*DB, error) {
	// The credential is single-writer, but the TUI and fetcher may read concurrently
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &DB{DB: db}, nil
}

// DefaultPath returns the path to the SQLite database file, ~/.vertical/data.db
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".vertical", "data.db"), nil
}
