package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// Save upserts a single preference key. Writes are durable once the call
// returns; a future process opening the same data directory observes them.
func (s *Store) Save(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO prefs (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("saving pref %s: %w", key, err)
	}
	return nil
}

// Load returns the value for key. A missing key is not an error; it is
// reported through the ok return.
func (s *Store) Load(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM prefs WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("loading pref %s: %w", key, err)
	}
	return value, true, nil
}

// Delete removes a preference key. Deleting a missing key is a no-op.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM prefs WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting pref %s: %w", key, err)
	}
	return nil
}
