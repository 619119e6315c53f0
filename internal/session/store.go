package session

import "sync"

// CredentialStore is a durable single slot for the bearer token.
//
// Get returns "" when the slot is empty. Set and Clear overwrite the slot atomically.
type CredentialStore interface {
	Get() (string, error)
	Set(token string) error
	Clear() error
}

// MemoryStore is a process-local [CredentialStore].
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStore returns a store pre-filled with token, which may be empty.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (s *MemoryStore) Get() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
