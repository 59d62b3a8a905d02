package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterCapsPerClientWindow(t *testing.T) {
	rl := newRateLimiter()
	defer rl.shutdown()

	metrics := &securityMetrics{}
	for i := 0; i < writeLimit; i++ {
		assert.True(t, rl.allow("10.0.0.1", metrics))
	}
	assert.False(t, rl.allow("10.0.0.1", metrics), "request past the limit is refused")
	assert.Equal(t, int64(1), metrics.rateLimitHits)

	// Other clients keep their own window.
	assert.True(t, rl.allow("10.0.0.2", metrics))
}

func TestRateLimiterSweepDropsIdleClients(t *testing.T) {
	rl := newRateLimiter()
	defer rl.shutdown()

	rl.allow("10.0.0.1", nil)
	rl.mu.Lock()
	rl.windows["10.0.0.1"].seen = rl.windows["10.0.0.1"].seen.Add(-2 * clientTTL)
	rl.mu.Unlock()

	rl.sweep()

	rl.mu.Lock()
	_, ok := rl.windows["10.0.0.1"]
	rl.mu.Unlock()
	assert.False(t, ok, "idle client entry is swept")
}
