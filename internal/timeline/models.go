// Package timeline turns raw before/after snapshots of reviewed entities
// into normalized, immutable audit events. Events are emitted from domain
// logic and kept transport-agnostic so stores and sinks can fan out.
package timeline

import "time"

// Snapshot is one point-in-time view of a reviewed entity, supplied by
// callers as plain data. A nil Snapshot represents an absent document
// (creation when before is nil, deletion when after is nil).
type Snapshot map[string]any

// Action is the semantic label derived from a before/after pair.
type Action string

const (
	ActionCreated       Action = "created"
	ActionUpdated       Action = "updated"
	ActionDeleted       Action = "deleted"
	ActionStatusChanged Action = "status_changed"
	ActionCompleted     Action = "completed"
	ActionPublished     Action = "published"
	ActionViewed        Action = "viewed"
	ActionNoteAdded     Action = "note_added"
	ActionLinked        Action = "linked"
	ActionArchived      Action = "archived"
)

// Source identifies the functional area that produced an event.
type Source string

const (
	SourceReview        Source = "review"
	SourceTraining      Source = "training"
	SourceKnowledgeBase Source = "knowledgebase"
	SourceUI            Source = "ui"
	SourceSystem        Source = "system"
)

type Severity string

const (
	SeverityInfo   Severity = "info"
	SeverityNotice Severity = "notice"
	SeverityWarn   Severity = "warn"
	SeverityError  Severity = "error"
)

// Delta is the normalized difference between two snapshots. Fields is
// sorted so events serialize deterministically; Diff is present only when
// at least one field actually changed value.
type Delta struct {
	Fields []string          `json:"fields"`
	Diff   map[string][2]any `json:"diff,omitempty"`
}

// Actor carries expandable identity info for the user behind an event.
type Actor struct {
	UID   string `json:"uid"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Object identifies the entity an event is about.
type Object struct {
	Type         string  `json:"type"`
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Version      int     `json:"version"`
	StatusBefore *string `json:"status_before"`
	StatusAfter  *string `json:"status_after"`
}

// Context carries optional correlation fields tying an event to the
// surrounding workflow.
type Context struct {
	WorkflowID string   `json:"workflowId,omitempty"`
	Stage      string   `json:"stage,omitempty"`
	ScenarioID string   `json:"scenarioId,omitempty"`
	Labels     []string `json:"labels"`
}

// Event is an immutable audit record. Once created it is never mutated;
// corrections are new events.
type Event struct {
	EventID       string    `json:"eventId"`
	UserID        string    `json:"userId"`
	Actor         Actor     `json:"actor"`
	TS            time.Time `json:"ts"`
	Source        Source    `json:"source"`
	Action        Action    `json:"action"`
	Object        Object    `json:"object"`
	Delta         Delta     `json:"delta"`
	Context       Context   `json:"context"`
	CorrelationID string    `json:"correlationId,omitempty"`
	Severity      Severity  `json:"severity"`
	// TTLDays is a retention hint for the durable store.
	TTLDays int `json:"ttlDays"`
}

// ActionLabel returns a human-readable label for an action.
func ActionLabel(action Action) string {
	labels := map[Action]string{
		ActionCreated:       "Created",
		ActionUpdated:       "Updated",
		ActionDeleted:       "Deleted",
		ActionStatusChanged: "Status Changed",
		ActionViewed:        "Viewed",
		ActionNoteAdded:     "Note Added",
		ActionLinked:        "Linked",
		ActionCompleted:     "Completed",
		ActionPublished:     "Published",
		ActionArchived:      "Archived",
	}
	if label, ok := labels[action]; ok {
		return label
	}
	return string(action)
}

// SourceLabel returns a human-readable label for a source.
func SourceLabel(source Source) string {
	labels := map[Source]string{
		SourceReview:        "Review",
		SourceTraining:      "Training",
		SourceKnowledgeBase: "Knowledge Base",
		SourceUI:            "UI",
		SourceSystem:        "System",
	}
	if label, ok := labels[source]; ok {
		return label
	}
	return string(source)
}

// SourceFromCollection maps a durable-store collection name to a source.
// Unknown collections are attributed to the system.
func SourceFromCollection(collection string) Source {
	switch collection {
	case "review", "reviews":
		return SourceReview
	case "training":
		return SourceTraining
	case "knowledgebase", "knowledgeBase":
		return SourceKnowledgeBase
	case "ui":
		return SourceUI
	default:
		return SourceSystem
	}
}
