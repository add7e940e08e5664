// Package memory is the in-memory timeline store. It keeps the initial
// implementation lightweight and testable, intentionally favoring clarity
// over performance; use the postgres store for durable deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"trrhub/internal/timeline"
)

type Store struct {
	mu     sync.RWMutex
	events []timeline.Event
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, event timeline.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *Store) ListByUser(_ context.Context, userID string, limit int) ([]timeline.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(limit, func(e timeline.Event) bool {
		return e.UserID == userID
	}), nil
}

func (s *Store) ListByObject(_ context.Context, objectType, objectID string, limit int) ([]timeline.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(limit, func(e timeline.Event) bool {
		return e.Object.Type == objectType && e.Object.ID == objectID
	}), nil
}

// filter returns matching events newest first. Callers hold s.mu.
func (s *Store) filter(limit int, match func(timeline.Event) bool) []timeline.Event {
	var out []timeline.Event
	for _, event := range s.events {
		if match(event) {
			out = append(out, event)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TS.After(out[j].TS)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
