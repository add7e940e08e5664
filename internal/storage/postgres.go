package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"trrhub/internal/timeline"
)

// PostgresDocumentStore keeps snapshots in a documents table. Change
// fan-out is in-process: the portal is a single-writer deployment, so
// every remote change passes through this store's Put/Delete.
type PostgresDocumentStore struct {
	db *sql.DB

	mu       sync.RWMutex
	watchers map[string]map[int]chan Change
	nextID   int
}

func NewPostgresDocumentStore(db *sql.DB) *PostgresDocumentStore {
	return &PostgresDocumentStore{
		db:       db,
		watchers: make(map[string]map[int]chan Change),
	}
}

func (s *PostgresDocumentStore) Get(ctx context.Context, collection, entityID string) (timeline.Snapshot, error) {
	query := `SELECT snapshot FROM documents WHERE collection = $1 AND entity_id = $2`
	var payload []byte
	err := s.db.QueryRowContext(ctx, query, collection, entityID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	var snapshot timeline.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return snapshot, nil
}

func (s *PostgresDocumentStore) Put(ctx context.Context, collection, entityID string, snapshot timeline.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	query := `
		INSERT INTO documents (collection, entity_id, snapshot, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, entity_id)
		DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = now()
	`
	if _, err := s.db.ExecContext(ctx, query, collection, entityID, payload); err != nil {
		return fmt.Errorf("put document: %w", err)
	}

	s.notify(Change{Collection: collection, EntityID: entityID, Snapshot: cloneSnapshot(snapshot)})
	return nil
}

func (s *PostgresDocumentStore) Delete(ctx context.Context, collection, entityID string) error {
	query := `DELETE FROM documents WHERE collection = $1 AND entity_id = $2`
	result, err := s.db.ExecContext(ctx, query, collection, entityID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected > 0 {
		s.notify(Change{Collection: collection, EntityID: entityID, Snapshot: nil})
	}
	return nil
}

func (s *PostgresDocumentStore) Watch(ctx context.Context, collection string) (<-chan Change, func()) {
	// Hydrate before registering: a write committed before the snapshot
	// query lands in the initial delivery, a later one in the live feed.
	// The lock holds concurrent notify calls back until registration, so
	// the worst case is the same snapshot delivered twice, and applying a
	// snapshot is idempotent for subscribers.
	s.mu.Lock()
	current := s.loadCollection(ctx, collection)
	ch := make(chan Change, len(current)+watcherBuffer)
	for _, change := range current {
		ch <- change
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

// ServerTime returns the database clock so event timestamps never depend
// on client machines.
func (s *PostgresDocumentStore) ServerTime(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := s.db.QueryRowContext(ctx, `SELECT now()`).Scan(&now); err != nil {
		return time.Time{}, fmt.Errorf("server time: %w", err)
	}
	return now, nil
}

// loadCollection reads every document in a collection for the initial
// Watch delivery. A read failure degrades to an empty hydration; the
// subscriber still receives live changes and can Get on demand.
func (s *PostgresDocumentStore) loadCollection(ctx context.Context, collection string) []Change {
	query := `SELECT entity_id, snapshot FROM documents WHERE collection = $1`
	rows, err := s.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var entityID string
		var payload []byte
		if err := rows.Scan(&entityID, &payload); err != nil {
			continue
		}
		var snapshot timeline.Snapshot
		if err := json.Unmarshal(payload, &snapshot); err != nil {
			continue
		}
		changes = append(changes, Change{Collection: collection, EntityID: entityID, Snapshot: snapshot})
	}
	return changes
}

func (s *PostgresDocumentStore) notify(change Change) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.watchers[change.Collection] {
		select {
		case ch <- change:
		default:
		}
	}
}

// DocumentsSchema is the DDL the store expects, applied by deploy tooling.
const DocumentsSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	entity_id  TEXT NOT NULL,
	snapshot   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, entity_id)
);
`
