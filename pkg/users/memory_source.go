package users

import "sync"

// MemorySource implements Source using an in-memory slice
type MemorySource struct {
	mu    sync.RWMutex
	users []*User
	saves int
	err   error
}

// NewMemorySource creates a new MemorySource seeded with users
func NewMemorySource(users ...*User) *MemorySource {
	return &MemorySource{users: copyUsers(users)}
}

// LoadUsers implements Source
func (s *MemorySource) LoadUsers() ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUsers(s.users), nil
}

// SaveUsers implements Source
func (s *MemorySource) SaveUsers(users []*User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.users = copyUsers(users)
	s.saves++
	return nil
}

// SetSaveError makes subsequent saves fail with err
func (s *MemorySource) SetSaveError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Saves returns how many successful saves have happened
func (s *MemorySource) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func copyUsers(users []*User) []*User {
	out := make([]*User, 0, len(users))
	for _, u := range users {
		c := *u
		out = append(out, &c)
	}
	return out
}
