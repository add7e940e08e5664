package storage

import (
	"context"
	"sync"
	"time"

	"trrhub/internal/timeline"
)

// watcherBuffer bounds how far a slow subscriber can lag before changes
// are dropped for it.
const watcherBuffer = 64

// InMemoryDocumentStore favors clarity over performance. It backs tests
// and single-process deployments; the postgres store is the durable one.
type InMemoryDocumentStore struct {
	mu       sync.RWMutex
	docs     map[string]map[string]timeline.Snapshot
	watchers map[string]map[int]chan Change
	nextID   int
}

func NewInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{
		docs:     make(map[string]map[string]timeline.Snapshot),
		watchers: make(map[string]map[int]chan Change),
	}
}

func (s *InMemoryDocumentStore) Get(_ context.Context, collection, entityID string) (timeline.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if snapshot, ok := s.docs[collection][entityID]; ok {
		return cloneSnapshot(snapshot), nil
	}
	return nil, ErrNotFound
}

func (s *InMemoryDocumentStore) Put(_ context.Context, collection, entityID string, snapshot timeline.Snapshot) error {
	s.mu.Lock()
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]timeline.Snapshot)
	}
	stored := cloneSnapshot(snapshot)
	s.docs[collection][entityID] = stored
	s.mu.Unlock()

	s.notify(Change{Collection: collection, EntityID: entityID, Snapshot: cloneSnapshot(stored)})
	return nil
}

func (s *InMemoryDocumentStore) Delete(_ context.Context, collection, entityID string) error {
	s.mu.Lock()
	_, existed := s.docs[collection][entityID]
	delete(s.docs[collection], entityID)
	s.mu.Unlock()

	if existed {
		s.notify(Change{Collection: collection, EntityID: entityID, Snapshot: nil})
	}
	return nil
}

func (s *InMemoryDocumentStore) Watch(ctx context.Context, collection string) (<-chan Change, func()) {
	s.mu.Lock()
	// The current documents are queued before the watcher registers, so
	// the subscriber sees them ahead of any change that races this call.
	ch := make(chan Change, len(s.docs[collection])+watcherBuffer)
	for entityID, snapshot := range s.docs[collection] {
		ch <- Change{Collection: collection, EntityID: entityID, Snapshot: cloneSnapshot(snapshot)}
	}
	if s.watchers[collection] == nil {
		s.watchers[collection] = make(map[int]chan Change)
	}
	id := s.nextID
	s.nextID++
	s.watchers[collection][id] = ch
	s.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers[collection], id)
			s.mu.Unlock()
			close(ch)
		})
	}

	go func() {
		<-ctx.Done()
		stop()
	}()

	return ch, stop
}

func (s *InMemoryDocumentStore) ServerTime(context.Context) (time.Time, error) {
	return time.Now(), nil
}

// notify fans a change out to every watcher of its collection. A watcher
// whose buffer is full misses the change rather than blocking writers.
func (s *InMemoryDocumentStore) notify(change Change) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.watchers[change.Collection] {
		select {
		case ch <- change:
		default:
		}
	}
}

func cloneSnapshot(snapshot timeline.Snapshot) timeline.Snapshot {
	if snapshot == nil {
		return nil
	}
	out := make(timeline.Snapshot, len(snapshot))
	for k, v := range snapshot {
		out[k] = v
	}
	return out
}
