// Package http provides HTTP-based implementations of the subsync
// transport and discovery interfaces.
package http

import (
	"context"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/akarol/subsync"
)

// DefaultFetchTimeout is the default timeout for HTTP requests.
const DefaultFetchTimeout = 30 * time.Second

// defaultUserAgents are rotated across requests so the archiver doesn't
// present a single fingerprint for an entire run.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/123.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
}

// Ensure Transport implements subsync.Transport at compile time.
var _ subsync.Transport = (*Transport)(nil)

// Transport retrieves raw content over HTTP. Non-2xx statuses are
// returned as responses, not errors; classification happens in the
// scheduler. When a proxy provider is configured, requests are routed
// through the provider's current endpoint and a new client is built
// whenever the endpoint rotates.
type Transport struct {
	timeout    time.Duration
	userAgents []string
	provider   subsync.ProxyProvider

	mu       sync.Mutex
	client   *http.Client
	endpoint subsync.Endpoint
	served   int
}

// Option configures a Transport.
type Option func(*Transport)

// WithTimeout sets the per-request timeout.
// Defaults to DefaultFetchTimeout (30s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		t.timeout = d
	}
}

// WithUserAgents sets the User-Agent rotation pool.
func WithUserAgents(agents []string) Option {
	return func(t *Transport) {
		if len(agents) > 0 {
			t.userAgents = agents
		}
	}
}

// WithProxyProvider routes requests through endpoints supplied by the
// provider.
func WithProxyProvider(p subsync.ProxyProvider) Option {
	return func(t *Transport) {
		t.provider = p
	}
}

// NewTransport creates a new HTTP transport.
func NewTransport(opts ...Option) *Transport {
	t := &Transport{
		timeout:    DefaultFetchTimeout,
		userAgents: defaultUserAgents,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.client = &http.Client{Timeout: t.timeout}
	return t
}

// Fetch issues a GET for the URL and returns status, headers and body.
func (t *Transport) Fetch(ctx context.Context, rawURL string) (*subsync.Response, error) {
	client, err := t.currentClient(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", t.userAgents[rand.IntN(len(t.userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &subsync.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// currentClient returns the client for the provider's current endpoint,
// rebuilding it when the endpoint's validity window closes.
func (t *Transport) currentClient(ctx context.Context) (*http.Client, error) {
	if t.provider == nil {
		return t.client, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.endpoint.Valid(time.Now(), t.served) && t.client != nil && t.served > 0 {
		t.served++
		return t.client, nil
	}

	ep, err := t.provider.Endpoint(ctx)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{}
	if ep.URL != "" {
		proxyURL, err := url.Parse(ep.URL)
		if err != nil {
			return nil, subsync.Errorf(subsync.EINVALID, "invalid proxy URL: %v", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	t.endpoint = ep
	t.served = 1
	t.client = &http.Client{Timeout: t.timeout, Transport: transport}
	return t.client, nil
}
