package http

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akarol/subsync"
)

// Ensure providers implement subsync.ProxyProvider.
var (
	_ subsync.ProxyProvider = (*PassthroughProvider)(nil)
	_ subsync.ProxyProvider = (*RotatingProvider)(nil)
)

// PassthroughProvider supplies a direct-connection endpoint. It is the
// default when no proxy service is configured.
type PassthroughProvider struct{}

// Endpoint returns a direct-connection endpoint with no validity limits.
func (PassthroughProvider) Endpoint(context.Context) (subsync.Endpoint, error) {
	return subsync.Endpoint{}, nil
}

// RotatingProvider supplies session-pinned proxy endpoints in the style
// of residential proxy services: each session gets a fresh session id in
// the proxy username, a time-based validity window, and an optional
// request budget.
type RotatingProvider struct {
	username    string
	password    string
	host        string
	sessionTime time.Duration
	budget      int

	mu      sync.Mutex
	current subsync.Endpoint

	now func() time.Time
}

// RotatingOption configures a RotatingProvider.
type RotatingOption func(*RotatingProvider)

// WithSessionTime sets how long a session endpoint stays valid.
// Defaults to 10 minutes.
func WithSessionTime(d time.Duration) RotatingOption {
	return func(p *RotatingProvider) {
		if d > 0 {
			p.sessionTime = d
		}
	}
}

// WithRequestBudget caps requests per session endpoint.
func WithRequestBudget(n int) RotatingOption {
	return func(p *RotatingProvider) {
		p.budget = n
	}
}

// NewRotatingProvider creates a RotatingProvider for the given proxy
// service credentials and gateway host (host:port).
func NewRotatingProvider(username, password, host string, opts ...RotatingOption) *RotatingProvider {
	p := &RotatingProvider{
		username:    username,
		password:    password,
		host:        host,
		sessionTime: 10 * time.Minute,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Endpoint returns the current session endpoint, rotating to a fresh
// session when the window has closed. The transport tracks its own
// served-request count against the endpoint's budget and only re-asks
// once the endpoint stops being valid, so with a budget set, a
// re-request for a still time-valid endpoint means the budget is spent
// and the session rotates.
func (p *RotatingProvider) Endpoint(context.Context) (subsync.Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.current.URL != "" && now.Before(p.current.ExpiresAt) && p.budget == 0 {
		return p.current, nil
	}

	session := uuid.New().String()[:8]
	p.current = subsync.Endpoint{
		URL: fmt.Sprintf("http://customer-%s-sessid-%s:%s@%s",
			p.username, session, p.password, p.host),
		ExpiresAt:     now.Add(p.sessionTime),
		RequestBudget: p.budget,
	}
	return p.current, nil
}
