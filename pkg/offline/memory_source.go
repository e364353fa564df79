package offline

import "sync"

// MemorySource implements Source in memory
type MemorySource struct {
	mu      sync.RWMutex
	entries []Entry
	saves   int
}

// NewMemorySource creates a new MemorySource seeded with entries
func NewMemorySource(entries ...Entry) *MemorySource {
	return &MemorySource{entries: append([]Entry(nil), entries...)}
}

// LoadMessages implements Source
func (s *MemorySource) LoadMessages() ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...), nil
}

// SaveMessages implements Source
func (s *MemorySource) SaveMessages(entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]Entry(nil), entries...)
	s.saves++
	return nil
}

// Entries returns the last saved entries
func (s *MemorySource) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...)
}

// Saves returns how many saves have happened
func (s *MemorySource) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
