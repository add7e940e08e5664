package review

import (
	"context"
	"log/slog"
	"time"

	"trrhub/internal/platform/metrics"
	"trrhub/internal/storage"
	"trrhub/internal/timeline"
	"trrhub/pkg/domain"
	pkgerrors "trrhub/pkg/errors"
)

// Emitter is the timeline publisher port.
type Emitter interface {
	Emit(ctx context.Context, event timeline.Event) error
}

// Service binds the reactive store to the durable document store and the
// timeline. Every mutation follows the same shape: optimistic apply,
// durable write, audit event, confirm; a failed write always rolls back
// before the error reaches the caller.
type Service struct {
	state   *Store
	docs    storage.DocumentStore
	events  Emitter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

func WithEmitter(events Emitter) ServiceOption {
	return func(s *Service) { s.events = events }
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func NewService(state *Store, docs storage.DocumentStore, opts ...ServiceOption) (*Service, error) {
	if state == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "review state store is required")
	}
	if docs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "document store is required")
	}
	s := &Service{
		state:  state,
		docs:   docs,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) State() *Store { return s.state }

// Create writes a new review. The entity is visible locally before the
// durable write resolves.
func (s *Service) Create(ctx context.Context, userID string, form timeline.Snapshot) (string, error) {
	if len(form) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeInvalidRequest, "review form data is required")
	}

	id := domain.NewReviewID().String()
	now := time.Now().UTC().Format(time.RFC3339)

	snapshot := clone(form)
	if _, ok := snapshot["status"]; !ok {
		snapshot["status"] = "draft"
	}
	snapshot["createdBy"] = userID
	snapshot["createdAt"] = now
	snapshot["updatedAt"] = now
	snapshot["version"] = 1

	tag := s.state.ApplyOptimistic(id, snapshot)

	if err := s.docs.Put(ctx, Collection, id, snapshot); err != nil {
		wrapped := pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "create review")
		s.state.RejectOptimistic(id, tag, wrapped.Message)
		s.countRollback()
		return "", wrapped
	}

	s.emit(ctx, userID, id, nil, snapshot)
	s.state.ConfirmOptimistic(id, tag, snapshot)
	if s.metrics != nil {
		s.metrics.IncrementReviewsCreated()
	}
	return id, nil
}

// Update applies a field patch to an existing review.
func (s *Service) Update(ctx context.Context, userID, id string, patch timeline.Snapshot) error {
	if len(patch) == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidRequest, "update patch is required")
	}

	before, err := s.snapshotOf(ctx, id)
	if err != nil {
		return err
	}

	after := clone(before)
	for field, value := range patch {
		after[field] = value
	}
	after["updatedAt"] = time.Now().UTC().Format(time.RFC3339)
	after["version"] = nextVersion(before)

	tag := s.state.ApplyOptimistic(id, patch)

	if err := s.docs.Put(ctx, Collection, id, after); err != nil {
		wrapped := pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "update review")
		s.state.RejectOptimistic(id, tag, wrapped.Message)
		s.countRollback()
		return wrapped
	}

	if timeline.ShouldCreateEvent(before, after) {
		s.emit(ctx, userID, id, before, after)
	}
	s.state.ConfirmOptimistic(id, tag, after)
	return nil
}

// Delete removes a review.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	before, err := s.snapshotOf(ctx, id)
	if err != nil {
		return err
	}

	tag := s.state.ApplyOptimisticDelete(id)

	if err := s.docs.Delete(ctx, Collection, id); err != nil {
		wrapped := pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "delete review")
		s.state.RejectOptimistic(id, tag, wrapped.Message)
		s.countRollback()
		return wrapped
	}

	s.emit(ctx, userID, id, before, nil)
	s.state.ConfirmOptimistic(id, tag, nil)
	if s.metrics != nil {
		s.metrics.IncrementReviewsDeleted()
	}
	return nil
}

// Get prefers the in-memory copy and falls back to the durable store,
// seeding local state on a miss.
func (s *Service) Get(ctx context.Context, id string) (timeline.Snapshot, error) {
	if snapshot, ok := s.state.Get(id); ok {
		return snapshot, nil
	}
	snapshot, err := s.docs.Get(ctx, Collection, id)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "read review")
	}
	s.state.OnRemoteChange(id, snapshot)
	return snapshot, nil
}

// List returns the derived view over current in-memory state.
func (s *Service) List(filters Filters) []Entity {
	return s.state.List(filters)
}

// WatchRemote pumps the document store subscription into the state store
// until ctx is cancelled. The subscription is always torn down on exit.
func (s *Service) WatchRemote(ctx context.Context) error {
	changes, stop := s.docs.Watch(ctx, Collection)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			// Echoes of this process's own writes arrive here too; the
			// merge is value-idempotent so they are harmless.
			s.state.OnRemoteChange(change.EntityID, change.Snapshot)
		}
	}
}

// snapshotOf resolves the last confirmed snapshot, falling back to the
// durable store for entities not yet in memory.
func (s *Service) snapshotOf(ctx context.Context, id string) (timeline.Snapshot, error) {
	if snapshot, ok := s.state.Confirmed(id); ok {
		return snapshot, nil
	}
	snapshot, err := s.docs.Get(ctx, Collection, id)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "read review")
	}
	return snapshot, nil
}

// emit records a timeline event for a snapshot transition. The entity
// write already persisted, so an audit failure is logged rather than
// unwinding the mutation.
func (s *Service) emit(ctx context.Context, userID, id string, before, after timeline.Snapshot) {
	if s.events == nil {
		return
	}
	event := timeline.NewEvent(timeline.CreateEventParams{
		UserID:     userID,
		Source:     timeline.SourceReview,
		ObjectType: "review",
		ObjectID:   id,
		ObjectName: timeline.ExtractObjectName(after, timeline.ExtractObjectName(before, id)),
		Before:     before,
		After:      after,
	})
	if err := s.events.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "timeline emit failed",
			"review_id", id, "action", event.Action, "error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.IncrementEventsEmitted()
	}
}

func (s *Service) countRollback() {
	if s.metrics != nil {
		s.metrics.IncrementRollbacks()
	}
}

func nextVersion(snapshot timeline.Snapshot) int {
	switch v := snapshot["version"].(type) {
	case int:
		return v + 1
	case int64:
		return int(v) + 1
	case float64:
		return int(v) + 1
	}
	return 1
}
