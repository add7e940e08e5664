// Package kafka publishes timeline events to a Kafka topic so downstream
// consumers (compliance exports, notification fan-out) can react without
// polling the event store.
package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"trrhub/internal/timeline"
	pkgerrors "trrhub/pkg/errors"
)

// DefaultTopic is where review timeline events land unless overridden.
const DefaultTopic = "trrhub.timeline.events"

// producer is the subset of *kgo.Client the sink needs.
type producer interface {
	ProduceSync(ctx context.Context, records ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Sink publishes events to Kafka, keyed by object id so all events for
// one review land on the same partition in order.
type Sink struct {
	client producer
	topic  string
	logger *slog.Logger
}

type Option func(*Sink)

func WithTopic(topic string) Option {
	return func(s *Sink) { s.topic = topic }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) { s.logger = logger }
}

// withProducer swaps the client, for tests.
func withProducer(p producer) Option {
	return func(s *Sink) { s.client = p }
}

// NewSink connects a producer to the given brokers.
func NewSink(brokers []string, opts ...Option) (*Sink, error) {
	s := &Sink{
		topic:  DefaultTopic,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		if len(brokers) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "kafka brokers are required")
		}
		client, err := kgo.NewClient(
			kgo.SeedBrokers(brokers...),
			kgo.DefaultProduceTopic(s.topic),
			kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		)
		if err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "connect kafka")
		}
		s.client = client
	}
	return s, nil
}

// Publish sends one event and waits for the broker ack.
func (s *Sink) Publish(ctx context.Context, event timeline.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "encode timeline event")
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Object.ID),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "produce timeline event")
	}

	s.logger.DebugContext(ctx, "timeline event published",
		"topic", s.topic, "event_id", event.EventID, "action", event.Action)
	return nil
}

// Close flushes buffered records and releases the client.
func (s *Sink) Close() {
	s.client.Close()
}
