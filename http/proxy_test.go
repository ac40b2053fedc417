package http_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	subhttp "github.com/akarol/subsync/http"
)

func TestPassthroughProvider_returns_direct_endpoint(t *testing.T) {
	t.Parallel()

	ep, err := subhttp.PassthroughProvider{}.Endpoint(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ep.URL)
	assert.True(t, ep.Valid(time.Now(), 1000000))
}

func TestRotatingProvider_builds_session_urls(t *testing.T) {
	t.Parallel()

	p := subhttp.NewRotatingProvider("user1", "secret", "pr.proxyhost.com:7777")

	ep, err := p.Endpoint(context.Background())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ep.URL, "http://customer-user1-sessid-"), ep.URL)
	assert.Contains(t, ep.URL, ":secret@pr.proxyhost.com:7777")
	assert.False(t, ep.ExpiresAt.IsZero())
}

func TestRotatingProvider_reuses_session_within_window(t *testing.T) {
	t.Parallel()

	p := subhttp.NewRotatingProvider("user1", "secret", "pr.proxyhost.com:7777",
		subhttp.WithSessionTime(time.Hour))

	first, err := p.Endpoint(context.Background())
	require.NoError(t, err)
	second, err := p.Endpoint(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.URL, second.URL)
}

func TestRotatingProvider_rotates_after_the_window(t *testing.T) {
	t.Parallel()

	p := subhttp.NewRotatingProvider("user1", "secret", "pr.proxyhost.com:7777",
		subhttp.WithSessionTime(time.Nanosecond))

	first, err := p.Endpoint(context.Background())
	require.NoError(t, err)

	time.Sleep(time.Millisecond)

	second, err := p.Endpoint(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.URL, second.URL, "a new session id after expiry")
}

func TestRotatingProvider_rotates_when_the_budget_is_spent(t *testing.T) {
	t.Parallel()

	p := subhttp.NewRotatingProvider("user1", "secret", "pr.proxyhost.com:7777",
		subhttp.WithSessionTime(time.Hour),
		subhttp.WithRequestBudget(3))

	first, err := p.Endpoint(context.Background())
	require.NoError(t, err)
	require.False(t, first.Valid(time.Now(), 3))

	// The transport re-asks only once the endpoint stopped being valid,
	// so a repeat request while the window is open means the budget is
	// exhausted and must yield a fresh session.
	second, err := p.Endpoint(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.URL, second.URL)
	assert.Equal(t, 3, second.RequestBudget)
}

func TestRotatingProvider_carries_the_request_budget(t *testing.T) {
	t.Parallel()

	p := subhttp.NewRotatingProvider("user1", "secret", "pr.proxyhost.com:7777",
		subhttp.WithRequestBudget(50))

	ep, err := p.Endpoint(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 50, ep.RequestBudget)
	assert.True(t, ep.Valid(time.Now(), 49))
	assert.False(t, ep.Valid(time.Now(), 50))
}
