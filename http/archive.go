package http

import (
	"bytes"
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/akarol/subsync"
)

// DefaultMaxArchivePages bounds the pagination scan so a broken "end of
// archive" marker can't turn discovery into an endless walk.
const DefaultMaxArchivePages = 50

// Markers Substack renders on the final archive page.
var archiveEndMarkers = []string{
	"No posts to see here",
	"There are no more posts",
}

// Ensure ArchiveDiscoverer implements subsync.Discoverer.
var _ subsync.Discoverer = (*ArchiveDiscoverer)(nil)

// ArchiveDiscoverer discovers post resources by scanning paginated
// archive listings ({source}/archive?sort=new&page=N) until an empty
// page is observed. It is the fallback when the sitemap is absent or
// malformed. Archive pages carry no reliable published timestamps, so
// date filtering only applies when one can be extracted.
type ArchiveDiscoverer struct {
	transport subsync.Transport
	limiter   *rate.Limiter
	maxPages  int

	now func() time.Time
}

// ArchiveOption configures an ArchiveDiscoverer.
type ArchiveOption func(*ArchiveDiscoverer)

// WithPageInterval sets the minimum interval between archive page
// fetches. Defaults to one second.
func WithPageInterval(d time.Duration) ArchiveOption {
	return func(a *ArchiveDiscoverer) {
		if d > 0 {
			a.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithMaxPages caps the number of archive pages scanned.
func WithMaxPages(n int) ArchiveOption {
	return func(a *ArchiveDiscoverer) {
		if n > 0 {
			a.maxPages = n
		}
	}
}

// NewArchiveDiscoverer creates an ArchiveDiscoverer fetching through the
// given transport.
func NewArchiveDiscoverer(transport subsync.Transport, opts ...ArchiveOption) *ArchiveDiscoverer {
	a := &ArchiveDiscoverer{
		transport: transport,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
		maxPages:  DefaultMaxArchivePages,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Discover scans archive pages in order, collecting /p/ post links until
// a page yields none, an end marker appears, or the page cap is reached.
func (a *ArchiveDiscoverer) Discover(ctx context.Context, source string, dates subsync.DateRange) ([]*subsync.Resource, error) {
	base, err := url.Parse(source)
	if err != nil {
		return nil, subsync.Errorf(subsync.EINVALID, "invalid source URL %q: %v", source, err)
	}

	seen := make(map[string]bool)
	var resources []*subsync.Resource

	for page := 1; page <= a.maxPages; page++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return resources, err
		}

		pageURL := base.ResolveReference(&url.URL{
			Path:     "/archive",
			RawQuery: "sort=new&page=" + strconv.Itoa(page),
		})

		resp, err := a.transport.Fetch(ctx, pageURL.String())
		if err != nil {
			return resources, err
		}
		if resp.StatusCode != 200 {
			break
		}

		links, err := a.extractPostLinks(resp.Body, base)
		if err != nil {
			return resources, err
		}

		added := 0
		for _, link := range links {
			id := subsync.ResourceID(link)
			if seen[id] {
				continue
			}
			seen[id] = true
			added++
			resources = append(resources, &subsync.Resource{
				ID:           id,
				URL:          link,
				DiscoveredAt: a.now().UTC(),
				Status:       subsync.StatusPending,
			})
		}

		if added == 0 || hasEndMarker(resp.Body) {
			break
		}
	}

	// Archive listings rarely expose timestamps; apply the range to the
	// few resources that have one.
	if dates.Start != nil || dates.End != nil {
		filtered := resources[:0]
		for _, r := range resources {
			if dates.Contains(r.PublishedAt) {
				filtered = append(filtered, r)
			}
		}
		resources = filtered
	}

	return resources, nil
}

// extractPostLinks pulls /p/ post URLs out of an archive page, keeping
// only same-host links.
func (a *ArchiveDiscoverer) extractPostLinks(body []byte, base *url.URL) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, subsync.Errorf(subsync.EINVALID, "parsing archive page: %v", err)
	}

	var links []string
	doc.Find(`a[href*="/p/"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(u)
		if resolved.Host != base.Host || !strings.Contains(resolved.Path, "/p/") {
			return
		}
		resolved.Fragment = ""
		resolved.RawQuery = ""
		links = append(links, resolved.String())
	})
	return links, nil
}

func hasEndMarker(body []byte) bool {
	for _, marker := range archiveEndMarkers {
		if bytes.Contains(body, []byte(marker)) {
			return true
		}
	}
	return false
}
