package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server-level Prometheus metrics.
type Metrics struct {
	ReviewsCreated prometheus.Counter
	ReviewsDeleted prometheus.Counter
	EventsEmitted  prometheus.Counter
	RollbacksTotal prometheus.Counter
}

// New creates and registers all server-level metrics.
func New() *Metrics {
	return &Metrics{
		ReviewsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trrhub_reviews_created_total",
			Help: "Total number of reviews created",
		}),
		ReviewsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trrhub_reviews_deleted_total",
			Help: "Total number of reviews deleted",
		}),
		EventsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trrhub_timeline_events_emitted_total",
			Help: "Total number of timeline events appended",
		}),
		RollbacksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trrhub_optimistic_rollbacks_total",
			Help: "Optimistic writes rolled back after a failed durable write",
		}),
	}
}

func (m *Metrics) IncrementReviewsCreated() { m.ReviewsCreated.Inc() }
func (m *Metrics) IncrementReviewsDeleted() { m.ReviewsDeleted.Inc() }
func (m *Metrics) IncrementEventsEmitted()  { m.EventsEmitted.Inc() }
func (m *Metrics) IncrementRollbacks()      { m.RollbacksTotal.Inc() }
