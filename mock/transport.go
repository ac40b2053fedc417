// Package mock provides function-field mock implementations of subsync
// interfaces for testing.
package mock

import (
	"context"

	"github.com/akarol/subsync"
)

var _ subsync.Transport = (*Transport)(nil)

// Transport is a mock implementation of subsync.Transport.
type Transport struct {
	FetchFn func(ctx context.Context, url string) (*subsync.Response, error)
}

func (t *Transport) Fetch(ctx context.Context, url string) (*subsync.Response, error) {
	return t.FetchFn(ctx, url)
}
