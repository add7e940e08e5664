package timeline

import (
	"context"
	"log/slog"
	"time"

	pkgerrors "trrhub/pkg/errors"
)

// Store persists events. It is append-only: events are immutable and
// corrections are new events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Event, error)
	ListByObject(ctx context.Context, objectType, objectID string, limit int) ([]Event, error)
}

// Sink receives a copy of every persisted event for fan-out (e.g. the
// Kafka publisher). Sink failures are logged, not propagated: the durable
// append is the source of truth.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Clock supplies the authoritative server timestamp for events, normally
// backed by the durable store so client clocks never end up in the log.
type Clock func(ctx context.Context) (time.Time, error)

// Publisher validates and persists timeline events. It uses the storage
// layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store  Store
	sink   Sink
	clock  Clock
	logger *slog.Logger
}

type PublisherOption func(*Publisher)

func WithSink(sink Sink) PublisherOption {
	return func(p *Publisher) { p.sink = sink }
}

func WithClock(clock Clock) PublisherOption {
	return func(p *Publisher) { p.clock = clock }
}

func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

func NewPublisher(store Store, opts ...PublisherOption) (*Publisher, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "timeline store is required")
	}
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Emit stamps, validates and appends an event. An event failing
// validation is never persisted.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if p.clock != nil {
		if serverTime, err := p.clock(ctx); err == nil {
			event.TS = serverTime
		}
		// On clock failure the provisional factory timestamp stands.
	}
	if event.TS.IsZero() {
		event.TS = time.Now()
	}

	if !Validate(event) {
		return pkgerrors.Newf(pkgerrors.CodeInternal,
			"timeline event %q failed validation", event.EventID)
	}

	if err := p.store.Append(ctx, event); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "append timeline event")
	}

	if p.sink != nil {
		if err := p.sink.Publish(ctx, event); err != nil {
			p.logger.WarnContext(ctx, "timeline sink publish failed",
				"event_id", event.EventID, "error", err)
		}
	}
	return nil
}

// ListByUser returns the newest events for a user, most recent first.
func (p *Publisher) ListByUser(ctx context.Context, userID string, limit int) ([]Event, error) {
	return p.store.ListByUser(ctx, userID, limit)
}

// ListByObject returns the newest events for an object, most recent first.
func (p *Publisher) ListByObject(ctx context.Context, objectType, objectID string, limit int) ([]Event, error) {
	return p.store.ListByObject(ctx, objectType, objectID, limit)
}
