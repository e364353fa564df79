package offline

import (
	"database/sql"
	"fmt"

	"github.com/mmcdole/campuschat/pkg/storage"
)

// SQLSource implements Source on the offline_messages table
type SQLSource struct {
	db *sql.DB
}

// NewSQLSource creates a new SQLSource; db must come from storage.OpenSQLite
func NewSQLSource(db *sql.DB) *SQLSource {
	return &SQLSource{db: db}
}

// LoadMessages implements Source
func (s *SQLSource) LoadMessages() ([]Entry, error) {
	rows, err := s.db.Query(`SELECT recipient, message FROM offline_messages ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying offline messages: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Recipient, &e.Message); err != nil {
			return nil, fmt.Errorf("scanning offline message: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SaveMessages implements Source
func (s *SQLSource) SaveMessages(entries []Entry) error {
	return storage.ReplaceAll(s.db, "offline_messages", func(tx *sql.Tx) error {
		for _, e := range entries {
			if _, err := tx.Exec(`INSERT INTO offline_messages (recipient, message) VALUES (?, ?)`, e.Recipient, e.Message); err != nil {
				return fmt.Errorf("inserting message for %s: %w", e.Recipient, err)
			}
		}
		return nil
	})
}
