package offline

import (
	"fmt"
	"sync"

	"github.com/mmcdole/campuschat/pkg/logging"
)

// Queue keeps per-recipient FIFO lists of undelivered messages
type Queue struct {
	source Source

	mu         sync.Mutex
	pending    map[string][]string
	recipients []string // first-seen order, for stable saves
}

// NewQueue creates a Queue and loads the entries stored in source
func NewQueue(source Source) (*Queue, error) {
	if source == nil {
		return nil, fmt.Errorf("message source is required")
	}

	entries, err := source.LoadMessages()
	if err != nil {
		return nil, fmt.Errorf("loading offline messages: %w", err)
	}

	q := &Queue{
		source:  source,
		pending: make(map[string][]string),
	}
	for _, e := range entries {
		q.ensureLocked(e.Recipient)
		q.pending[e.Recipient] = append(q.pending[e.Recipient], e.Message)
	}

	logging.App.Info("Offline queue loaded", "messages", len(entries), "recipients", len(q.recipients))
	return q, nil
}

// Ensure creates an empty entry for recipient if none exists
func (q *Queue) Ensure(recipient string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ensureLocked(recipient)
}

// Enqueue appends message to recipient's pending list and persists the queue
func (q *Queue) Enqueue(recipient, message string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.ensureLocked(recipient)
	q.pending[recipient] = append(q.pending[recipient], message)

	if err := q.saveLocked(); err != nil {
		logging.App.Error("Failed to persist offline queue", "recipient", recipient, "error", err)
	}
	logging.App.Debug("Queued offline message", "recipient", recipient, "pending", len(q.pending[recipient]))
}

// Drain returns and clears every pending message for recipient
func (q *Queue) Drain(recipient string) []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	messages := q.pending[recipient]
	if len(messages) == 0 {
		return nil
	}
	q.pending[recipient] = nil

	if err := q.saveLocked(); err != nil {
		logging.App.Error("Failed to persist offline queue", "recipient", recipient, "error", err)
	}
	logging.App.Debug("Drained offline messages", "recipient", recipient, "count", len(messages))
	return messages
}

// Requeue puts messages back at the front of recipient's pending list, ahead
// of anything queued since they were drained
func (q *Queue) Requeue(recipient string, messages []string) {
	if len(messages) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	q.ensureLocked(recipient)
	restored := make([]string, 0, len(messages)+len(q.pending[recipient]))
	restored = append(restored, messages...)
	q.pending[recipient] = append(restored, q.pending[recipient]...)

	if err := q.saveLocked(); err != nil {
		logging.App.Error("Failed to persist offline queue", "recipient", recipient, "error", err)
	}
	logging.App.Debug("Requeued offline messages", "recipient", recipient, "count", len(messages))
}

// Pending returns a copy of recipient's pending messages
func (q *Queue) Pending(recipient string) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.pending[recipient]...)
}

// Has reports whether recipient has an entry, even an empty one
func (q *Queue) Has(recipient string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.pending[recipient]
	return ok
}

// Flush writes the current queue to the source
func (q *Queue) Flush() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.saveLocked()
}

func (q *Queue) ensureLocked(recipient string) {
	if _, ok := q.pending[recipient]; !ok {
		q.pending[recipient] = nil
		q.recipients = append(q.recipients, recipient)
	}
}

func (q *Queue) saveLocked() error {
	var entries []Entry
	for _, r := range q.recipients {
		for _, m := range q.pending[r] {
			entries = append(entries, Entry{Recipient: r, Message: m})
		}
	}
	return q.source.SaveMessages(entries)
}
