package offline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/campuschat/pkg/storage"
)

func TestSQLSource(t *testing.T) {
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	source := NewSQLSource(db)
	entries, err := source.LoadMessages()
	require.NoError(t, err)
	assert.Empty(t, entries)

	q, err := NewQueue(source)
	require.NoError(t, err)
	q.Enqueue("alice", "MESSAGE tsmith: one")
	q.Enqueue("bob", "MESSAGE tsmith: hey")
	q.Enqueue("alice", "MESSAGE tsmith: two")

	reloaded, err := NewQueue(NewSQLSource(db))
	require.NoError(t, err)
	assert.Equal(t, []string{"MESSAGE tsmith: one", "MESSAGE tsmith: two"}, reloaded.Pending("alice"))
	assert.Equal(t, []string{"MESSAGE tsmith: hey"}, reloaded.Pending("bob"))

	q.Drain("alice")
	entries, err = source.LoadMessages()
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"bob", "MESSAGE tsmith: hey"}}, entries)
}
