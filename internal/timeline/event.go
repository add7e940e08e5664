package timeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTTLDays = 365
	defaultVersion = 1
)

// NewEventID generates a unique event identifier combining a millisecond
// timestamp with a random component, so ids sort roughly by creation time
// and collisions are negligible.
func NewEventID() string {
	return fmt.Sprintf("evt_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// CreateEventParams bundles everything the factory needs to build an event.
type CreateEventParams struct {
	UserID string
	// Actor defaults to an identity carrying only UserID.
	Actor  Actor
	Source Source
	// Action overrides classification when set.
	Action        Action
	ObjectType    string
	ObjectID      string
	ObjectName    string
	Before        Snapshot
	After         Snapshot
	Context       Context
	CorrelationID string
	// Severity defaults to the inferred severity for the action.
	Severity Severity
	// TTLDays defaults to one year.
	TTLDays int
}

// NewEvent builds a normalized audit event from a before/after pair and
// caller context. The timestamp is provisional; the publisher replaces it
// with the durable store's server clock before persisting.
func NewEvent(params CreateEventParams) Event {
	action := params.Action
	if action == "" {
		action = DetermineAction(params.Before, params.After)
	}

	severity := params.Severity
	if severity == "" {
		severity = InferSeverity(action, params.Source)
	}

	ttlDays := params.TTLDays
	if ttlDays <= 0 {
		ttlDays = defaultTTLDays
	}

	actor := params.Actor
	if actor.UID == "" {
		actor.UID = params.UserID
	}

	ctx := params.Context
	if ctx.Labels == nil {
		ctx.Labels = []string{}
	}

	return Event{
		EventID: NewEventID(),
		UserID:  params.UserID,
		Actor:   actor,
		TS:      time.Now(),
		Source:  params.Source,
		Action:  action,
		Object: Object{
			Type:         params.ObjectType,
			ID:           params.ObjectID,
			Name:         params.ObjectName,
			Version:      versionOf(params.After, params.Before),
			StatusBefore: statusPtr(params.Before),
			StatusAfter:  statusPtr(params.After),
		},
		Delta:         ComputeDelta(params.Before, params.After),
		Context:       ctx,
		CorrelationID: params.CorrelationID,
		Severity:      severity,
		TTLDays:       ttlDays,
	}
}

// Validate reports whether an event has every required field. A failing
// event must never be persisted; this guards programmer errors, not
// recoverable runtime conditions.
func Validate(event Event) bool {
	return event.EventID != "" &&
		event.UserID != "" &&
		event.Actor.UID != "" &&
		!event.TS.IsZero() &&
		event.Source != "" &&
		event.Action != "" &&
		event.Object.Type != "" &&
		event.Object.ID != "" &&
		event.Delta.Fields != nil &&
		event.Context.Labels != nil &&
		event.Severity != "" &&
		event.TTLDays > 0
}

// ExtractObjectName pulls a display name out of a snapshot, falling back
// to the object id.
func ExtractObjectName(snapshot Snapshot, objectID string) string {
	if snapshot == nil {
		return objectID
	}
	for _, key := range []string{"title", "name", "topic", "description"} {
		if name, ok := snapshot[key].(string); ok && name != "" {
			return name
		}
	}
	return objectID
}

// ExtractOwnerID pulls the owning user id out of a snapshot, if present.
func ExtractOwnerID(snapshot Snapshot) string {
	if snapshot == nil {
		return ""
	}
	for _, key := range []string{"ownerUid", "ownerId", "userId", "createdBy"} {
		if owner, ok := snapshot[key].(string); ok && owner != "" {
			return owner
		}
	}
	return ""
}

// versionOf resolves the object version: after wins, then before, then 1.
func versionOf(after, before Snapshot) int {
	for _, snapshot := range []Snapshot{after, before} {
		if snapshot == nil {
			continue
		}
		switch v := snapshot["version"].(type) {
		case int:
			if v > 0 {
				return v
			}
		case int64:
			if v > 0 {
				return int(v)
			}
		case float64:
			// JSON-decoded numbers arrive as float64.
			if v > 0 {
				return int(v)
			}
		}
	}
	return defaultVersion
}

func statusPtr(snapshot Snapshot) *string {
	if snapshot == nil {
		return nil
	}
	if status, ok := snapshot["status"].(string); ok {
		return &status
	}
	return nil
}
