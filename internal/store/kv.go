package store

import (
	"database/sql"
	"errors"
)

// Get retrieves the value stored under key.
// Returns ErrNotFound if key doesn't exist
func (db *DB) Get(key string) ([]byte, error) {
	var value []byte
	err := db.QueryRow(`
		SELECT value FROM kv WHERE key = ?
	`, key).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return value, err
}

// Set stores value under key, replacing any previous value in one statement
func (db *DB) Set(key string, value []byte) error {
	_, err := db.Exec(`
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// Delete removes key. Deleting a missing key is not an error.
func (db *DB) Delete(key string) error {
	_, err := db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err
}
