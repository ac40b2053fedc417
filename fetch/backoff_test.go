package fetch_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/akarol/subsync/fetch"
)

func TestBackoffPolicy_delays_are_monotonic(t *testing.T) {
	t.Parallel()

	p := fetch.NewBackoffPolicy(100*time.Millisecond, 10*time.Second)

	prev := time.Duration(0)
	for attempt := 0; attempt < 8; attempt++ {
		d := p.Next(attempt, 0)
		assert.GreaterOrEqual(t, d, prev, "attempt %d delay should not shrink", attempt)
		prev = d
	}
}

func TestBackoffPolicy_grows_exponentially(t *testing.T) {
	t.Parallel()

	p := fetch.NewBackoffPolicy(1*time.Second, 10*time.Minute)

	// With 25% jitter, attempt n is in [base·2^n, 1.25·base·2^n].
	for attempt, want := range []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second} {
		d := p.Next(attempt, 0)
		assert.GreaterOrEqual(t, d, want)
		assert.LessOrEqual(t, d, want+want/4)
	}
}

func TestBackoffPolicy_caps_at_max(t *testing.T) {
	t.Parallel()

	p := fetch.NewBackoffPolicy(1*time.Second, 5*time.Second)

	assert.Equal(t, 5*time.Second, p.Next(10, 0))
	assert.Equal(t, 5*time.Second, p.Next(100, 0), "large attempt counts should not overflow")
}

func TestBackoffPolicy_retry_after_hint_is_a_floor(t *testing.T) {
	t.Parallel()

	p := fetch.NewBackoffPolicy(100*time.Millisecond, 2*time.Second)

	// Scenario: server says retry after 5s. The next attempt must not be
	// scheduled earlier, even though the computed delay (and even the
	// cap) are smaller.
	assert.Equal(t, 5*time.Second, p.Next(0, 5*time.Second))

	// Once growth exceeds the hint, growth wins.
	d := p.Next(6, 100*time.Millisecond)
	assert.Greater(t, d, 100*time.Millisecond)
}

func TestBackoffPolicy_zero_values_use_defaults(t *testing.T) {
	t.Parallel()

	p := &fetch.BackoffPolicy{}

	d := p.Next(0, 0)
	assert.GreaterOrEqual(t, d, fetch.DefaultBackoffBase)
	assert.LessOrEqual(t, d, fetch.DefaultBackoffMax)
}
