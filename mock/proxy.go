package mock

import (
	"context"

	"github.com/akarol/subsync"
)

var _ subsync.ProxyProvider = (*ProxyProvider)(nil)

// ProxyProvider is a mock implementation of subsync.ProxyProvider.
type ProxyProvider struct {
	EndpointFn func(ctx context.Context) (subsync.Endpoint, error)
}

func (p *ProxyProvider) Endpoint(ctx context.Context) (subsync.Endpoint, error) {
	return p.EndpointFn(ctx)
}
