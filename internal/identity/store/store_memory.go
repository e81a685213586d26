// Package store holds the profile stores behind identity.Resolver.
package store

import (
	"context"
	"sync"

	"rekam/internal/identity"
	id "rekam/pkg/domain"
	"rekam/pkg/platform/sentinel"
)

// InMemoryProfileStore keeps profiles in a map. Used for tests and local runs
// without DATABASE_URL.
type InMemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[id.UserID]identity.Profile
}

func NewInMemoryProfileStore() *InMemoryProfileStore {
	return &InMemoryProfileStore{profiles: make(map[id.UserID]identity.Profile)}
}

// Upsert stores a copy of profile.
func (s *InMemoryProfileStore) Upsert(_ context.Context, profile *identity.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = *profile
	return nil
}

func (s *InMemoryProfileStore) FindByID(_ context.Context, userID id.UserID) (*identity.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}
