package review

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"trrhub/internal/timeline"
)

// subscriberBuffer bounds how far a slow subscriber can lag before
// notifications are dropped for it.
const subscriberBuffer = 64

// optimisticWrite is one speculative local mutation awaiting its durable
// write result.
type optimisticWrite struct {
	tag     string
	patch   timeline.Snapshot
	deleted bool
}

// entityState tracks one entity's confirmed truth plus any speculation
// layered on top of it.
type entityState struct {
	confirmed timeline.Snapshot
	inflight  []*optimisticWrite
	// remoteTouched collects the fields remote changes modified while a
	// local write was in flight. On field overlap the remote value wins;
	// this is a policy decision, not a store guarantee.
	remoteTouched map[string]struct{}
}

// Store is the single in-memory source of truth for the UI. All mutation
// happens under one lock and the visible projection is rebuilt before the
// lock is released, so readers never observe a half-applied merge.
type Store struct {
	mu      sync.RWMutex
	states  map[string]*entityState
	current map[string]timeline.Snapshot
	subs    map[int]chan Notification
	nextSub int
}

func NewStore() *Store {
	return &Store{
		states:  make(map[string]*entityState),
		current: make(map[string]timeline.Snapshot),
		subs:    make(map[int]chan Notification),
	}
}

// ApplyOptimistic merges patch into the entity immediately and returns a
// tag identifying this speculative write. An unknown entity id starts an
// optimistic creation.
func (s *Store) ApplyOptimistic(entityID string, patch timeline.Snapshot) string {
	tag := uuid.NewString()

	s.mu.Lock()
	st := s.state(entityID)
	st.inflight = append(st.inflight, &optimisticWrite{tag: tag, patch: clone(patch)})
	s.reproject(entityID, st)
	s.mu.Unlock()

	s.notify(Notification{EntityID: entityID, Kind: KindUpdated})
	return tag
}

// ApplyOptimisticDelete removes the entity from view immediately; the
// removal is speculative until confirmed.
func (s *Store) ApplyOptimisticDelete(entityID string) string {
	tag := uuid.NewString()

	s.mu.Lock()
	st := s.state(entityID)
	st.inflight = append(st.inflight, &optimisticWrite{tag: tag, deleted: true})
	s.reproject(entityID, st)
	s.mu.Unlock()

	s.notify(Notification{EntityID: entityID, Kind: KindRemoved})
	return tag
}

// ConfirmOptimistic replaces the speculative write with the authoritative
// post-write snapshot. If a remote update arrived while the write was in
// flight, the fields it touched keep their remote values: field-group
// last-writer-wins, remote wins on overlap.
func (s *Store) ConfirmOptimistic(entityID, tag string, serverSnapshot timeline.Snapshot) {
	s.mu.Lock()
	st, ok := s.states[entityID]
	if !ok {
		s.mu.Unlock()
		return
	}
	write := s.takeWrite(st, tag)
	if write == nil {
		s.mu.Unlock()
		return
	}

	if write.deleted {
		st.confirmed = nil
	} else {
		confirmed := clone(serverSnapshot)
		for field := range st.remoteTouched {
			if remoteValue, ok := st.confirmed[field]; ok {
				confirmed[field] = remoteValue
			} else {
				delete(confirmed, field)
			}
		}
		st.confirmed = confirmed
	}
	if len(st.inflight) == 0 {
		st.remoteTouched = nil
	}
	removed := s.reproject(entityID, st)
	s.mu.Unlock()

	if removed {
		s.notify(Notification{EntityID: entityID, Kind: KindRemoved})
		return
	}
	s.notify(Notification{EntityID: entityID, Kind: KindUpdated})
}

// RejectOptimistic rolls the entity back to its last known-confirmed
// snapshot and surfaces the failure to subscribers.
func (s *Store) RejectOptimistic(entityID, tag, reason string) {
	s.mu.Lock()
	st, ok := s.states[entityID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if s.takeWrite(st, tag) == nil {
		s.mu.Unlock()
		return
	}
	if len(st.inflight) == 0 {
		st.remoteTouched = nil
	}
	s.reproject(entityID, st)
	s.mu.Unlock()

	s.notify(Notification{EntityID: entityID, Kind: KindRolledBack, Reason: reason})
}

// OnRemoteChange reconciles an authoritative snapshot delivered by the
// store subscription. With no write in flight the snapshot replaces local
// state unconditionally; otherwise it merges per the overlap rule. A nil
// snapshot is a remote deletion.
func (s *Store) OnRemoteChange(entityID string, snapshot timeline.Snapshot) {
	s.mu.Lock()
	st := s.state(entityID)

	if snapshot == nil {
		// Remote deletion wins outright; pending local edits to a
		// deleted entity have nothing left to patch.
		st.confirmed = nil
		st.inflight = nil
		st.remoteTouched = nil
		s.reproject(entityID, st)
		s.mu.Unlock()
		s.notify(Notification{EntityID: entityID, Kind: KindRemoved})
		return
	}

	if len(st.inflight) > 0 {
		delta := timeline.ComputeDelta(st.confirmed, snapshot)
		if st.remoteTouched == nil {
			st.remoteTouched = make(map[string]struct{})
		}
		for _, field := range delta.Fields {
			st.remoteTouched[field] = struct{}{}
		}
	}
	st.confirmed = clone(snapshot)
	s.reproject(entityID, st)
	s.mu.Unlock()

	s.notify(Notification{EntityID: entityID, Kind: KindUpdated})
}

// Get returns a copy of the entity's current (possibly speculative)
// snapshot.
func (s *Store) Get(entityID string) (timeline.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.current[entityID]
	if !ok {
		return nil, false
	}
	return clone(snapshot), true
}

// Confirmed returns the last known-confirmed snapshot, the rollback
// target for in-flight writes.
func (s *Store) Confirmed(entityID string) (timeline.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[entityID]
	if !ok || st.confirmed == nil {
		return nil, false
	}
	return clone(st.confirmed), true
}

// List computes a derived view over current state: filtered, then sorted.
func (s *Store) List(filters Filters) []Entity {
	s.mu.RLock()
	entities := make([]Entity, 0, len(s.current))
	for id, snapshot := range s.current {
		if matches(snapshot, filters) {
			entities = append(entities, Entity{ID: id, Snapshot: clone(snapshot)})
		}
	}
	s.mu.RUnlock()

	sortBy := filters.SortBy
	if sortBy == "" {
		sortBy = "createdAt"
	}
	descending := filters.SortOrder != SortAsc

	sort.SliceStable(entities, func(i, j int) bool {
		less := lessValue(entities[i].Snapshot[sortBy], entities[j].Snapshot[sortBy])
		if descending {
			return !less && !equalValue(entities[i].Snapshot[sortBy], entities[j].Snapshot[sortBy])
		}
		return less
	})
	return entities
}

// Subscribe registers a change listener. The returned channel is closed
// by Unsubscribe; abandoning a subscription without unsubscribing leaks
// it.
func (s *Store) Subscribe() (int, <-chan Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Notification, subscriberBuffer)
	s.subs[id] = ch
	return id, ch
}

func (s *Store) Unsubscribe(id int) {
	s.mu.Lock()
	ch, ok := s.subs[id]
	delete(s.subs, id)
	s.mu.Unlock()
	if ok {
		close(ch)
	}
}

// state returns the tracked state for an entity, creating it if needed.
// Callers hold s.mu.
func (s *Store) state(entityID string) *entityState {
	st, ok := s.states[entityID]
	if !ok {
		st = &entityState{}
		s.states[entityID] = st
	}
	return st
}

// takeWrite removes and returns the in-flight write with the given tag.
// Callers hold s.mu.
func (s *Store) takeWrite(st *entityState, tag string) *optimisticWrite {
	for i, write := range st.inflight {
		if write.tag == tag {
			st.inflight = append(st.inflight[:i], st.inflight[i+1:]...)
			return write
		}
	}
	return nil
}

// reproject rebuilds the visible snapshot for an entity and reports
// whether the entity disappeared. Callers hold s.mu.
func (s *Store) reproject(entityID string, st *entityState) bool {
	projected := st.project()
	if projected == nil {
		delete(s.current, entityID)
		if len(st.inflight) == 0 {
			delete(s.states, entityID)
		}
		return true
	}
	s.current[entityID] = projected
	return false
}

// project layers in-flight patches over the confirmed snapshot. Patch
// fields a remote update also touched keep the remote value.
func (st *entityState) project() timeline.Snapshot {
	var projected timeline.Snapshot
	if st.confirmed != nil {
		projected = clone(st.confirmed)
	}
	for _, write := range st.inflight {
		if write.deleted {
			projected = nil
			continue
		}
		if projected == nil {
			projected = make(timeline.Snapshot, len(write.patch))
		}
		for field, value := range write.patch {
			if _, touched := st.remoteTouched[field]; touched {
				continue
			}
			projected[field] = value
		}
	}
	return projected
}

func (s *Store) notify(notification Notification) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- notification:
		default:
		}
	}
}

func clone(snapshot timeline.Snapshot) timeline.Snapshot {
	if snapshot == nil {
		return nil
	}
	out := make(timeline.Snapshot, len(snapshot))
	for k, v := range snapshot {
		out[k] = v
	}
	return out
}

func matches(snapshot timeline.Snapshot, filters Filters) bool {
	if len(filters.Status) > 0 && !containsString(filters.Status, stringField(snapshot, "status")) {
		return false
	}
	if len(filters.Priority) > 0 && !containsString(filters.Priority, stringField(snapshot, "priority")) {
		return false
	}
	if filters.AssignedTo != "" && stringField(snapshot, "assignedTo") != filters.AssignedTo {
		return false
	}
	if len(filters.Tags) > 0 {
		tags := stringSliceField(snapshot, "tags")
		for _, want := range filters.Tags {
			if !containsString(tags, want) {
				return false
			}
		}
	}
	if filters.Query != "" {
		query := strings.ToLower(filters.Query)
		title := strings.ToLower(stringField(snapshot, "title"))
		description := strings.ToLower(stringField(snapshot, "description"))
		if !strings.Contains(title, query) && !strings.Contains(description, query) {
			return false
		}
	}
	return true
}

func stringField(snapshot timeline.Snapshot, key string) string {
	if value, ok := snapshot[key].(string); ok {
		return value
	}
	return ""
}

func stringSliceField(snapshot timeline.Snapshot, key string) []string {
	switch value := snapshot[key].(type) {
	case []string:
		return value
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func containsString(haystack []string, needle string) bool {
	for _, item := range haystack {
		if item == needle {
			return true
		}
	}
	return false
}

func lessValue(a, b any) bool {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		return af < bf
	}
	as, _ := a.(string)
	bs, _ := b.(string)
	return as < bs
}

func equalValue(a, b any) bool {
	return !lessValue(a, b) && !lessValue(b, a)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
