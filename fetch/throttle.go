package fetch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default inter-request delay bounds.
const (
	DefaultMinDelay = 100 * time.Millisecond
	DefaultMaxDelay = 5 * time.Second
)

// AdaptiveThrottler enforces a minimum inter-request delay per host and
// adapts it to observed conditions: the delay doubles on a rate-limit
// signal and decays back toward the configured floor while responses
// stay healthy, bounded below by twice the recent response latency so a
// struggling host is never hammered at the floor rate.
type AdaptiveThrottler struct {
	minDelay time.Duration
	maxDelay time.Duration

	mu    sync.Mutex
	hosts map[string]*hostState
}

type hostState struct {
	limiter       *rate.Limiter
	delay         time.Duration
	requests      int
	rateLimitHits int
}

// HostStats reports per-host throttling counters for the run summary.
type HostStats struct {
	Host          string
	CurrentDelay  time.Duration
	Requests      int
	RateLimitHits int
}

// NewAdaptiveThrottler creates a throttler with the given delay bounds.
// Non-positive bounds fall back to the defaults.
func NewAdaptiveThrottler(minDelay, maxDelay time.Duration) *AdaptiveThrottler {
	if minDelay <= 0 {
		minDelay = DefaultMinDelay
	}
	if maxDelay < minDelay {
		maxDelay = DefaultMaxDelay
	}
	return &AdaptiveThrottler{
		minDelay: minDelay,
		maxDelay: maxDelay,
		hosts:    make(map[string]*hostState),
	}
}

// Wait blocks until the host's current inter-request delay allows a
// request. Returns an error if the context is canceled first.
func (t *AdaptiveThrottler) Wait(ctx context.Context, host string) error {
	t.mu.Lock()
	state := t.state(host)
	state.requests++
	limiter := state.limiter
	t.mu.Unlock()

	return limiter.Wait(ctx)
}

// Observe feeds one completed request's outcome back into the host's
// delay estimate.
func (t *AdaptiveThrottler) Observe(host string, latency time.Duration, rateLimited bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.state(host)
	if rateLimited {
		state.rateLimitHits++
		state.delay = min(t.maxDelay, state.delay*2)
	} else {
		healthy := max(t.minDelay, min(state.delay*9/10, latency*2))
		state.delay = min(t.maxDelay, healthy)
	}
	state.limiter.SetLimit(rate.Every(state.delay))
}

// Delay returns the current inter-request delay for a host.
func (t *AdaptiveThrottler) Delay(host string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state(host).delay
}

// Stats returns per-host counters.
func (t *AdaptiveThrottler) Stats() []HostStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := make([]HostStats, 0, len(t.hosts))
	for host, state := range t.hosts {
		stats = append(stats, HostStats{
			Host:          host,
			CurrentDelay:  state.delay,
			Requests:      state.requests,
			RateLimitHits: state.rateLimitHits,
		})
	}
	return stats
}

// state returns the host's state, creating it at the floor delay.
// Callers must hold t.mu.
func (t *AdaptiveThrottler) state(host string) *hostState {
	state, ok := t.hosts[host]
	if !ok {
		state = &hostState{
			limiter: rate.NewLimiter(rate.Every(t.minDelay), 1),
			delay:   t.minDelay,
		}
		t.hosts[host] = state
	}
	return state
}
