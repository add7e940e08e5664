// Package storage defines the durable document store the core collaborates
// with. Stores are interface-driven to keep the domain logic testable and
// to allow swapping in-memory or external persistence without rewiring
// business code.
package storage

import (
	"context"
	"time"

	"trrhub/internal/timeline"
)

// Change is delivered by a store subscription whenever a document changes.
// Snapshot is nil for deletions.
type Change struct {
	Collection string
	EntityID   string
	Snapshot   timeline.Snapshot
}

// DocumentStore is the canonical home of entity snapshots. The in-memory
// review state is a reactive copy of what lives here.
type DocumentStore interface {
	// Get returns the current snapshot of a document, or ErrNotFound.
	Get(ctx context.Context, collection, entityID string) (timeline.Snapshot, error)
	// Put writes a full snapshot, replacing any previous one.
	Put(ctx context.Context, collection, entityID string, snapshot timeline.Snapshot) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, entityID string) error
	// Watch first delivers the collection's current documents, then changes
	// from other writers, until ctx is cancelled or stop is called. The
	// initial delivery means a subscriber never misses a write that raced
	// its registration. Dropping the subscription without stopping it is a
	// resource-management bug.
	Watch(ctx context.Context, collection string) (changes <-chan Change, stop func())
	// ServerTime returns the store's authoritative clock, used in place of
	// client clocks for audit events.
	ServerTime(ctx context.Context) (time.Time, error)
}
