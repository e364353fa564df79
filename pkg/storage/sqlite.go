package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	position  INTEGER NOT NULL,
	username  TEXT    NOT NULL PRIMARY KEY,
	password  TEXT    NOT NULL,
	role      TEXT    NOT NULL,
	attribute TEXT    NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS offline_messages (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	recipient TEXT    NOT NULL,
	message   TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_offline_messages_recipient ON offline_messages(recipient);
`

// OpenSQLite opens (or creates) the SQLite database at path and applies the schema.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	// Writers are serialised by the registries; one connection avoids
	// "database is locked" between the two stores.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("storage: %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	return db, nil
}

// ReplaceAll runs fill inside a transaction after deleting every row of table.
func ReplaceAll(db *sql.DB, table string, fill func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("storage: begin: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM " + table); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("storage: clear %s: %w", table, err)
	}
	if err := fill(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit %s: %w", table, err)
	}
	return nil
}
