// Package review keeps the in-memory, reactive copy of reviewed entities.
// It reconciles three write sources: user-initiated optimistic mutations,
// confirmation or rejection of those mutations once the durable write
// resolves, and unsolicited remote snapshots from the store subscription.
package review

import "trrhub/internal/timeline"

// Collection is the durable-store collection reviews live in.
const Collection = "reviews"

// Entity pairs a review id with its current snapshot.
type Entity struct {
	ID       string
	Snapshot timeline.Snapshot
}

// NotificationKind says what happened to an entity.
type NotificationKind string

const (
	// KindUpdated covers optimistic applies, confirms and remote changes.
	KindUpdated NotificationKind = "updated"
	KindRemoved NotificationKind = "removed"
	// KindRolledBack is sent when an optimistic write is rejected and the
	// entity reverts to its last confirmed snapshot. Rollbacks are never
	// silent.
	KindRolledBack NotificationKind = "rolled_back"
)

// Notification is delivered to store subscribers on every visible change.
type Notification struct {
	EntityID string
	Kind     NotificationKind
	// Reason carries the failure description for rollbacks.
	Reason string
}

// SortOrder for derived views.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Filters select and order the derived list view. Zero values mean
// "no constraint".
type Filters struct {
	Status     []string
	Priority   []string
	AssignedTo string
	Tags       []string
	// Query matches title and description, case-insensitive.
	Query     string
	SortBy    string
	SortOrder SortOrder
}
