// Package offline holds messages for users who are not connected and hands
// them over, in arrival order, on their next login.
package offline

// Entry is one pending message for Recipient
type Entry struct {
	Recipient string
	Message   string
}

// Source represents durable storage for pending messages
type Source interface {
	// LoadMessages returns every stored entry, oldest first per recipient
	LoadMessages() ([]Entry, error)
	// SaveMessages replaces the stored set with entries
	SaveMessages(entries []Entry) error
}
