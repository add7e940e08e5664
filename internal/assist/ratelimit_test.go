package assist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_QuotaBoundary(t *testing.T) {
	limiter := NewLimiter(WithQuota(50), WithWindow(time.Hour))

	for i := 0; i < 50; i++ {
		decision := limiter.Allow("org1")
		require.True(t, decision.Allowed, "call %d should be within quota", i+1)
	}

	decision := limiter.Allow("org1")
	assert.False(t, decision.Allowed, "51st call crosses the quota")
	assert.Zero(t, decision.Remaining)
	assert.Greater(t, decision.RetryAfter, time.Duration(0))
}

func TestLimiter_WindowSlides(t *testing.T) {
	now := time.Now()
	limiter := NewLimiter(WithQuota(2), WithWindow(time.Hour),
		withLimiterClock(func() time.Time { return now }))

	require.True(t, limiter.Allow("org1").Allowed)
	require.True(t, limiter.Allow("org1").Allowed)
	require.False(t, limiter.Allow("org1").Allowed)

	// Once the oldest call leaves the trailing window the quota frees up.
	now = now.Add(time.Hour + time.Second)
	assert.True(t, limiter.Allow("org1").Allowed)
}

func TestLimiter_RemainingReflectsPruning(t *testing.T) {
	now := time.Now()
	limiter := NewLimiter(WithQuota(3), WithWindow(time.Hour),
		withLimiterClock(func() time.Time { return now }))

	limiter.Allow("org1")
	limiter.Allow("org1")
	assert.Equal(t, 1, limiter.Remaining("org1"))

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 3, limiter.Remaining("org1"), "stale timestamps are not counted")
}

func TestLimiter_TenantsAreIndependent(t *testing.T) {
	limiter := NewLimiter(WithQuota(1), WithWindow(time.Hour))

	require.True(t, limiter.Allow("org1").Allowed)
	require.False(t, limiter.Allow("org1").Allowed)
	assert.True(t, limiter.Allow("org2").Allowed, "one tenant's quota never bleeds into another")
}

func TestLimiter_Reset(t *testing.T) {
	limiter := NewLimiter(WithQuota(1), WithWindow(time.Hour))

	require.True(t, limiter.Allow("org1").Allowed)
	require.False(t, limiter.Allow("org1").Allowed)

	limiter.Reset("org1")
	assert.True(t, limiter.Allow("org1").Allowed)
}
