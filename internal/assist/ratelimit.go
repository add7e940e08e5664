package assist

import (
	"sync"
	"time"
)

const (
	// DefaultQuota is the per-tenant call budget inside one window.
	DefaultQuota = 50
	// DefaultWindow is the trailing window the quota applies to.
	DefaultWindow = time.Hour
)

// Decision is the outcome of one quota check.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long until the oldest counted call leaves the
	// window. Zero when allowed.
	RetryAfter time.Duration
}

// Limiter enforces a sliding-window quota per tenant. Stale timestamps
// are pruned on every check, so counts never reflect calls that have
// already left the window.
type Limiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	quota   int
	window  time.Duration
	now     func() time.Time
}

type LimiterOption func(*Limiter)

func WithQuota(quota int) LimiterOption {
	return func(l *Limiter) { l.quota = quota }
}

func WithWindow(window time.Duration) LimiterOption {
	return func(l *Limiter) { l.window = window }
}

func withLimiterClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) { l.now = now }
}

func NewLimiter(opts ...LimiterOption) *Limiter {
	l := &Limiter{
		windows: make(map[string][]time.Time),
		quota:   DefaultQuota,
		window:  DefaultWindow,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow checks the tenant's quota and, when within it, records one call.
func (l *Limiter) Allow(tenant string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	timestamps := l.prune(tenant, now)

	if len(timestamps) >= l.quota {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: timestamps[0].Add(l.window).Sub(now),
		}
	}

	l.windows[tenant] = append(timestamps, now)
	return Decision{Allowed: true, Remaining: l.quota - len(timestamps) - 1}
}

// Remaining reports how many calls the tenant has left, after pruning.
func (l *Limiter) Remaining(tenant string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := l.quota - len(l.prune(tenant, l.now()))
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears the tenant's window.
func (l *Limiter) Reset(tenant string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, tenant)
}

// prune drops timestamps older than the window and stores the survivors.
// Callers must hold l.mu.
func (l *Limiter) prune(tenant string, now time.Time) []time.Time {
	timestamps := l.windows[tenant]
	cutoff := now.Add(-l.window)
	i := 0
	for ; i < len(timestamps); i++ {
		if timestamps[i].After(cutoff) {
			break
		}
	}
	timestamps = timestamps[i:]
	if len(timestamps) == 0 {
		delete(l.windows, tenant)
	} else {
		l.windows[tenant] = timestamps
	}
	return timestamps
}
