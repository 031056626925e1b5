package memory

import (
	"context"
	"sync"

	"github.com/dvloznov/monomind/internal/domain"
)

// InMemoryStore keeps histories in process memory. Slices are copied on the
// way in and out.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]domain.Message
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string][]domain.Message)}
}

// Load implements Store.
func (s *InMemoryStore) Load(_ context.Context, sessionID string) ([]domain.Message, error) {
	if err := checkSession(sessionID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Message(nil), s.sessions[sessionID]...), nil
}

// Save implements Store.
func (s *InMemoryStore) Save(_ context.Context, sessionID string, history []domain.Message) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append([]domain.Message(nil), history...)
	return nil
}
