package mock

import (
	"context"

	"github.com/akarol/subsync"
)

var _ subsync.Discoverer = (*Discoverer)(nil)

// Discoverer is a mock implementation of subsync.Discoverer.
type Discoverer struct {
	DiscoverFn func(ctx context.Context, source string, dates subsync.DateRange) ([]*subsync.Resource, error)
}

func (d *Discoverer) Discover(ctx context.Context, source string, dates subsync.DateRange) ([]*subsync.Resource, error) {
	return d.DiscoverFn(ctx, source, dates)
}
