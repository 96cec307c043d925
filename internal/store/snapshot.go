package store

import (
	"database/sql"
	"errors"
	"time"
)

// Snapshot is the serialized result of the most recent athlete fetch
type Snapshot struct {
	Payload   []byte
	FetchedAt time.Time
}

// GetSnapshot retrieves the latest snapshot
func (db *DB) GetSnapshot() (*Snapshot, error) {
	row := db.QueryRow(`
		SELECT payload, fetched_at
		FROM athlete_snapshot
		WHERE id = 1
	`)

	var payload string
	var fetchedAt int64
	err := row.Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Payload:   []byte(payload),
		FetchedAt: time.Unix(fetchedAt, 0),
	}, nil
}

// SaveSnapshot replaces the latest snapshot
func (db *DB) SaveSnapshot(payload []byte, fetchedAt time.Time) error {
	_, err := db.Exec(`
		INSERT INTO athlete_snapshot (id, payload, fetched_at, updated_at)
		VALUES (1, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			fetched_at = excluded.fetched_at,
			updated_at = CURRENT_TIMESTAMP
	`, string(payload), fetchedAt.Unix())
	return err
}
