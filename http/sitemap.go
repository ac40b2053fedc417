package http

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/akarol/subsync"
)

// Ensure SitemapDiscoverer implements subsync.Discoverer.
var _ subsync.Discoverer = (*SitemapDiscoverer)(nil)

// SitemapDiscoverer discovers post resources from a source's sitemap.
// Sitemap indexes are resolved recursively; only /p/ post URLs are
// emitted. Errors from a malformed sitemap are reported to the caller,
// which is expected to fall back to archive-page scanning.
type SitemapDiscoverer struct {
	transport subsync.Transport

	// now is overridable in tests.
	now func() time.Time
}

// NewSitemapDiscoverer creates a SitemapDiscoverer fetching through the
// given transport.
func NewSitemapDiscoverer(transport subsync.Transport) *SitemapDiscoverer {
	return &SitemapDiscoverer{transport: transport, now: time.Now}
}

// Discover fetches and parses {source}/sitemap.xml, returning pending
// resources for every post URL within the date range. A lastmod value,
// when present, becomes the resource's published timestamp; posts
// without one are included regardless of the range.
func (d *SitemapDiscoverer) Discover(ctx context.Context, source string, dates subsync.DateRange) ([]*subsync.Resource, error) {
	base, err := url.Parse(source)
	if err != nil {
		return nil, subsync.Errorf(subsync.EINVALID, "invalid source URL %q: %v", source, err)
	}

	sitemapURL := base.ResolveReference(&url.URL{Path: "/sitemap.xml"}).String()

	seen := make(map[string]bool)
	entries, err := d.readSitemap(ctx, sitemapURL, seen)
	if err != nil {
		return nil, err
	}

	var resources []*subsync.Resource
	for _, e := range entries {
		u, err := url.Parse(e.loc)
		if err != nil || u.Host != base.Host || !strings.Contains(u.Path, "/p/") {
			continue
		}
		if !dates.Contains(e.lastmod) {
			continue
		}
		resources = append(resources, &subsync.Resource{
			ID:           subsync.ResourceID(e.loc),
			URL:          e.loc,
			DiscoveredAt: d.now().UTC(),
			PublishedAt:  e.lastmod,
			Status:       subsync.StatusPending,
		})
	}

	return resources, nil
}

type sitemapEntry struct {
	loc     string
	lastmod *time.Time
}

// readSitemap fetches one sitemap document and returns its entries,
// recursing into <sitemapindex> children.
func (d *SitemapDiscoverer) readSitemap(ctx context.Context, sitemapURL string, seen map[string]bool) ([]sitemapEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if seen[sitemapURL] {
		return nil, nil
	}
	seen[sitemapURL] = true

	resp, err := d.transport.Fetch(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, subsync.Errorf(subsync.ENOTFOUND, "sitemap HTTP %d for %s", resp.StatusCode, sitemapURL)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(bytes.TrimSpace(resp.Body)); err != nil {
		return nil, subsync.Errorf(subsync.EINVALID, "parsing sitemap XML: %v", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, subsync.Errorf(subsync.EINVALID, "empty sitemap XML")
	}

	if root.Tag == "sitemapindex" {
		var all []sitemapEntry
		for _, sm := range root.SelectElements("sitemap") {
			loc := sm.SelectElement("loc")
			if loc == nil {
				continue
			}
			child := strings.TrimSpace(loc.Text())
			if child == "" {
				continue
			}
			entries, err := d.readSitemap(ctx, child, seen)
			if err != nil {
				return nil, err
			}
			all = append(all, entries...)
		}
		return all, nil
	}

	if root.Tag != "urlset" {
		return nil, subsync.Errorf(subsync.EINVALID, "unexpected sitemap root element <%s>", root.Tag)
	}

	var entries []sitemapEntry
	for _, urlEl := range root.SelectElements("url") {
		loc := urlEl.SelectElement("loc")
		if loc == nil {
			continue
		}
		u := strings.TrimSpace(loc.Text())
		if u == "" {
			continue
		}
		entry := sitemapEntry{loc: u}
		if lastmod := urlEl.SelectElement("lastmod"); lastmod != nil {
			if t, err := parseLastmod(strings.TrimSpace(lastmod.Text())); err == nil {
				entry.lastmod = &t
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// parseLastmod parses the W3C datetime formats sitemaps use.
func parseLastmod(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized lastmod %q", s)
}
