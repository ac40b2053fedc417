package fetch

import (
	"math/rand/v2"
	"time"
)

// Default backoff parameters.
const (
	DefaultBackoffBase   = 1 * time.Second
	DefaultBackoffMax    = 2 * time.Minute
	DefaultBackoffJitter = 0.25
)

// BackoffPolicy is a pure mapping from (attempt count, rate-limit hint)
// to the next retry delay: exponential growth with proportional jitter.
// An explicit Retry-After hint acts as a floor on the computed delay,
// never a replacement, so attempt-count growth continues underneath it.
//
// With Jitter below 1.0 the produced delays are nondecreasing across
// attempts: the minimum of attempt n+1 (base·2^(n+1)) always exceeds the
// maximum of attempt n (base·2^n·(1+Jitter)).
type BackoffPolicy struct {
	// Base is the delay before the first retry.
	Base time.Duration

	// Max caps the computed delay. A hint larger than Max still wins.
	Max time.Duration

	// Jitter is the maximum proportional increase added to each delay.
	Jitter float64

	// rand returns a value in [0, 1). Overridable in tests.
	rand func() float64
}

// NewBackoffPolicy returns a policy with the given base and cap and the
// default jitter.
func NewBackoffPolicy(base, max time.Duration) *BackoffPolicy {
	return &BackoffPolicy{
		Base:   base,
		Max:    max,
		Jitter: DefaultBackoffJitter,
		rand:   rand.Float64,
	}
}

// Next returns the delay before retry number attempt (0-based: attempt 0
// is the delay after the first failure). hint is an explicit server
// retry-after duration, or zero when the failure carried none.
func (p *BackoffPolicy) Next(attempt int, hint time.Duration) time.Duration {
	base := p.Base
	if base <= 0 {
		base = DefaultBackoffBase
	}
	max := p.Max
	if max <= 0 {
		max = DefaultBackoffMax
	}
	rnd := p.rand
	if rnd == nil {
		rnd = rand.Float64
	}

	delay := base << uint(attempt)
	// Guard shift overflow for absurd attempt counts.
	if delay <= 0 || delay > max {
		delay = max
	} else {
		delay += time.Duration(float64(delay) * p.Jitter * rnd())
		if delay > max {
			delay = max
		}
	}

	if hint > delay {
		return hint
	}
	return delay
}
