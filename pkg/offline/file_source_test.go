package offline

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFileSource_LoadMessages(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := "alice MESSAGE tsmith: hi\n\nlonely\nbob MESSAGE alice: a b  c\nalice MESSAGE bob: second\n"
	require.NoError(t, afero.WriteFile(fs, "/offline_messages.txt", []byte(data), 0644))

	entries, err := NewFileSource(fs, "/offline_messages.txt").LoadMessages()
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{"alice", "MESSAGE tsmith: hi"},
		{"bob", "MESSAGE alice: a b  c"},
		{"alice", "MESSAGE bob: second"},
	}, entries)
}

func TestFileSource_SaveThroughQueue(t *testing.T) {
	fs := afero.NewMemMapFs()
	source := NewFileSource(fs, "/data/offline_messages.txt")
	q, err := NewQueue(source)
	require.NoError(t, err)

	q.Enqueue("alice", "MESSAGE tsmith: hi")
	content, err := afero.ReadFile(fs, "/data/offline_messages.txt")
	require.NoError(t, err)
	assert.Equal(t, "alice MESSAGE tsmith: hi\n", string(content))

	q.Drain("alice")
	content, err = afero.ReadFile(fs, "/data/offline_messages.txt")
	require.NoError(t, err)
	assert.Empty(t, string(content))
}

// Saving then loading keeps every message and the FIFO order per recipient
func TestFileSource_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		recipients := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z][a-z0-9]{0,7}`), 1, 5, rapid.ID[string]).Draw(t, "recipients")
		entries := rapid.SliceOfN(rapid.Custom(func(t *rapid.T) Entry {
			return Entry{
				Recipient: rapid.SampledFrom(recipients).Draw(t, "recipient"),
				Message:   rapid.StringMatching(`MESSAGE [a-z]{1,8}: [ -~]{1,40}`).Draw(t, "message"),
			}
		}), 0, 30).Draw(t, "entries")

		fs := afero.NewMemMapFs()
		q, err := NewQueue(NewFileSource(fs, "/q.txt"))
		if err != nil {
			t.Fatalf("new queue: %v", err)
		}
		for _, e := range entries {
			q.Enqueue(e.Recipient, e.Message)
		}

		reloaded, err := NewQueue(NewFileSource(fs, "/q.txt"))
		if err != nil {
			t.Fatalf("reload: %v", err)
		}
		for _, r := range recipients {
			var want []string
			for _, e := range entries {
				if e.Recipient == r {
					want = append(want, e.Message)
				}
			}
			got := reloaded.Pending(r)
			if len(got) != len(want) {
				t.Fatalf("%s: got %d messages, want %d", r, len(got), len(want))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("%s[%d]: got %q, want %q", r, i, got[i], want[i])
				}
			}
		}
	})
}
