package fetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/akarol/subsync"
)

// Bloom filter sizing for discovery deduplication.
const (
	discoveryExpectedURLs      = 10000
	discoveryFalsePositiveRate = 0.01
)

// Ensure Discovery implements subsync.Discoverer.
var _ subsync.Discoverer = (*Discovery)(nil)

// Discovery composes the two discovery strategies: sitemap-first, with
// archive-pagination scanning as the fallback when the sitemap is
// absent, malformed, or disabled. A bad sitemap is a recoverable
// condition, logged and survived, never fatal.
type Discovery struct {
	Sitemap subsync.Discoverer
	Archive subsync.Discoverer

	// UseSitemap enables the sitemap strategy. When false, discovery
	// goes straight to the archive scan.
	UseSitemap bool

	Logger *slog.Logger
}

// Discover returns the deduplicated candidate set for the source.
func (d *Discovery) Discover(ctx context.Context, source string, dates subsync.DateRange) ([]*subsync.Resource, error) {
	var resources []*subsync.Resource

	if d.UseSitemap && d.Sitemap != nil {
		found, err := d.Sitemap.Discover(ctx, source, dates)
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			d.log().Warn("sitemap discovery failed, falling back to archive scan",
				"source", source, "err", subsync.ErrorMessage(err))
		case len(found) > 0:
			resources = found
		default:
			d.log().Info("sitemap empty, falling back to archive scan", "source", source)
		}
	}

	if resources == nil && d.Archive != nil {
		found, err := d.Archive.Discover(ctx, source, dates)
		if err != nil {
			return nil, err
		}
		resources = found
	}

	return dedupe(resources), nil
}

// dedupe drops resources with already-seen ids, preserving order. The
// Bloom filter keeps the seen-set cheap for large archives; a positive
// is confirmed against an exact set so a false positive can never drop
// a real post.
func dedupe(resources []*subsync.Resource) []*subsync.Resource {
	if len(resources) < 2 {
		return resources
	}

	filter := bloom.NewWithEstimates(discoveryExpectedURLs, discoveryFalsePositiveRate)
	exact := make(map[string]bool)

	out := resources[:0]
	for _, r := range resources {
		if filter.TestString(r.ID) && exact[r.ID] {
			continue
		}
		filter.AddString(r.ID)
		exact[r.ID] = true
		out = append(out, r)
	}
	return out
}

func (d *Discovery) log() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// SingleResource returns the one-element candidate set for single-post
// mode, bypassing discovery entirely.
func SingleResource(postURL string) []*subsync.Resource {
	return []*subsync.Resource{{
		ID:           subsync.ResourceID(postURL),
		URL:          postURL,
		DiscoveredAt: time.Now().UTC(),
		Status:       subsync.StatusPending,
	}}
}
