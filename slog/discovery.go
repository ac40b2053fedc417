package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/akarol/subsync"
)

// Ensure LoggingDiscoverer implements subsync.Discoverer.
var _ subsync.Discoverer = (*LoggingDiscoverer)(nil)

// LoggingDiscoverer wraps a Discoverer with logging.
type LoggingDiscoverer struct {
	next   subsync.Discoverer
	logger *slog.Logger
}

// NewLoggingDiscoverer creates a new LoggingDiscoverer.
func NewLoggingDiscoverer(next subsync.Discoverer, logger *slog.Logger) *LoggingDiscoverer {
	return &LoggingDiscoverer{next: next, logger: logger}
}

// Discover delegates to the wrapped discoverer and logs the operation.
func (d *LoggingDiscoverer) Discover(ctx context.Context, source string, dates subsync.DateRange) (resources []*subsync.Resource, err error) {
	defer func(begin time.Time) {
		d.logger.Info("discovery",
			"source", source,
			"count", len(resources),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return d.next.Discover(ctx, source, dates)
}
