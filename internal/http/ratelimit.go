package http

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	writeLimit  = 60
	writeWindow = time.Minute

	// Idle clients are swept after this long without a request.
	clientTTL     = 10 * time.Minute
	sweepInterval = 5 * time.Minute
)

// rateLimiter caps mutating requests per client IP using a fixed
// window counter. Reads are never limited, the server only consults
// it for non-GET methods.
type rateLimiter struct {
	mu       sync.Mutex
	windows  map[string]*clientWindow
	stop     chan struct{}
	stopOnce sync.Once
}

type clientWindow struct {
	start time.Time
	seen  time.Time
	count int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		windows: make(map[string]*clientWindow),
		stop:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *rateLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

func (rl *rateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-clientTTL)
	for ip, w := range rl.windows {
		if w.seen.Before(cutoff) {
			delete(rl.windows, ip)
		}
	}
}

// shutdown stops the background sweeper.
func (rl *rateLimiter) shutdown() {
	rl.stopOnce.Do(func() {
		close(rl.stop)
	})
}

// allow reports whether a request from clientIP fits its current
// window. Exceeding the limit is counted on metrics when given.
func (rl *rateLimiter) allow(clientIP string, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[clientIP]
	if !ok || now.Sub(w.start) > writeWindow {
		rl.windows[clientIP] = &clientWindow{start: now, seen: now, count: 1}
		return true
	}

	w.count++
	w.seen = now
	if w.count > writeLimit {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	return true
}
