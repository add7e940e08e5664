package assist

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	RateLimitDenials   prometheus.Counter
	UpstreamCalls      prometheus.Counter
	UpstreamFailures   prometheus.Counter
	UpstreamLatencySec prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trrhub_assist_cache_hits_total",
			Help: "Suggestion requests served from cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trrhub_assist_cache_misses_total",
			Help: "Suggestion requests that missed the cache",
		}),
		RateLimitDenials: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trrhub_assist_ratelimit_denials_total",
			Help: "Suggestion requests denied by the tenant quota",
		}),
		UpstreamCalls: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trrhub_assist_upstream_calls_total",
			Help: "Calls issued to the upstream suggestion service",
		}),
		UpstreamFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trrhub_assist_upstream_failures_total",
			Help: "Upstream suggestion calls that returned an error",
		}),
		UpstreamLatencySec: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "trrhub_assist_upstream_latency_seconds",
			Help:    "Latency of upstream suggestion calls",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
