package subsync

import "context"

// Discoverer produces the candidate set of post resources for a source.
// The returned resources are in discovery order, which is not guaranteed
// chronological. Implementations hide the sitemap vs archive-pagination
// distinction.
type Discoverer interface {
	// Discover returns pending resources for the source, filtered by the
	// optional date range. A missing or malformed sitemap is never fatal
	// to an implementation that has a fallback strategy.
	Discover(ctx context.Context, source string, dates DateRange) ([]*Resource, error)
}
