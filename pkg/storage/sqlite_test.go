package storage

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestOpenSQLite_Schema(t *testing.T) {
	db := openTestDB(t)
	assert.Zero(t, countRows(t, db, "users"))
	assert.Zero(t, countRows(t, db, "offline_messages"))
}

func TestOpenSQLite_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO offline_messages (recipient, message) VALUES (?, ?)", "alice", "MESSAGE bob: hi")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, 1, countRows(t, db, "offline_messages"))
}

func TestReplaceAll(t *testing.T) {
	db := openTestDB(t)

	insert := func(names ...string) func(*sql.Tx) error {
		return func(tx *sql.Tx) error {
			for i, name := range names {
				if _, err := tx.Exec("INSERT INTO users (position, username, password, role) VALUES (?, ?, 'pw', 'Student')", i, name); err != nil {
					return err
				}
			}
			return nil
		}
	}

	require.NoError(t, ReplaceAll(db, "users", insert("a", "b", "c")))
	assert.Equal(t, 3, countRows(t, db, "users"))

	require.NoError(t, ReplaceAll(db, "users", insert("d")))
	assert.Equal(t, 1, countRows(t, db, "users"))

	t.Run("failed fill rolls back", func(t *testing.T) {
		boom := errors.New("boom")
		err := ReplaceAll(db, "users", func(*sql.Tx) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, countRows(t, db, "users"))
	})
}
