package dashboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// PreferenceStore remembers the selected project per user across sessions.
type PreferenceStore interface {
	SelectedProject(ctx context.Context, userID string) (uuid.UUID, bool, error)
	SaveSelectedProject(ctx context.Context, userID string, projectID uuid.UUID) error
}

// InMemoryPreferenceStore provides a concurrency-safe default store.
type InMemoryPreferenceStore struct {
	mu   sync.RWMutex
	data map[string]uuid.UUID
}

// NewInMemoryPreferenceStore creates an empty preference store.
func NewInMemoryPreferenceStore() *InMemoryPreferenceStore {
	return &InMemoryPreferenceStore{
		data: make(map[string]uuid.UUID),
	}
}

// SelectedProject returns the remembered project. uuid.Nil with ok=true means
// the user explicitly chose all projects.
func (s *InMemoryPreferenceStore) SelectedProject(_ context.Context, userID string) (uuid.UUID, bool, error) {
	if userID == "" {
		return uuid.Nil, false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.data[userID]
	return id, ok, nil
}

// SaveSelectedProject persists the selection for a user.
func (s *InMemoryPreferenceStore) SaveSelectedProject(_ context.Context, userID string, projectID uuid.UUID) error {
	if userID == "" {
		return fmt.Errorf("preference store requires user id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[userID] = projectID
	return nil
}
