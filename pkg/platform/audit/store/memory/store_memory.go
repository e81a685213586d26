package memory

import (
	"context"
	"sort"
	"sync"

	id "rekam/pkg/domain"
	audit "rekam/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByUser returns userID's events, newest first. limit <= 0 returns all.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return newestFirst(out, limit), nil
}

// ListRecent returns the most recent events across all users (admin-only operation).
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(append([]audit.Event(nil), s.events...), limit), nil
}

func newestFirst(events []audit.Event, limit int) []audit.Event {
	// reverse first so equal timestamps keep the latest append first
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	if events == nil {
		events = []audit.Event{}
	}
	return events
}
