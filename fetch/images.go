package fetch

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/akarol/subsync"
)

// DefaultImageConcurrency bounds in-flight asset fetches, independently
// of the page pool.
const DefaultImageConcurrency = 5

// ImagePipeline fetches the embedded assets of a post through its own
// bounded pool, sharing the cache store with the page scheduler but
// carrying its own retry policy. Individual asset failures degrade
// gracefully: the returned refs keep the remote URL for anything that
// could not be localized.
type ImagePipeline struct {
	Transport subsync.Transport
	Cache     subsync.CacheStore
	Store     subsync.ArchiveStore
	Backoff   *BackoffPolicy

	// Concurrency bounds in-flight asset fetches. Defaults to 5.
	Concurrency int

	// MaxAttempts caps fetch attempts per asset. Defaults to 2: assets
	// are not worth the page pool's patience.
	MaxAttempts int

	// CacheTTL is the TTL written with fetched assets.
	CacheTTL time.Duration

	Logger *slog.Logger
}

// Process extracts the post's embedded asset URLs, fetches them, and
// returns one ref per asset in extraction order.
func (p *ImagePipeline) Process(ctx context.Context, html, baseURL string) []subsync.AssetRef {
	urls := ExtractAssetURLs(html, baseURL)
	if len(urls) == 0 {
		return nil
	}

	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultImageConcurrency
	}

	refs := make([]subsync.AssetRef, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, assetURL := range urls {
		g.Go(func() error {
			refs[i] = p.fetchAsset(gctx, assetURL)
			return nil
		})
	}
	_ = g.Wait()

	return refs
}

// fetchAsset localizes one asset: cache, then network with a short
// retry budget, then the archive store.
func (p *ImagePipeline) fetchAsset(ctx context.Context, assetURL string) subsync.AssetRef {
	ref := subsync.AssetRef{RemoteURL: assetURL}
	key := subsync.Fingerprint(assetURL)

	if p.Cache != nil {
		if entry, err := p.Cache.Get(ctx, key); err == nil && entry != nil {
			return p.store(ctx, ref, entry.Payload)
		}
	}

	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 2
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepUntil(ctx, time.Now().Add(p.Backoff.Next(attempt-1, 0))); err != nil {
				return ref
			}
		}

		resp, err := p.Transport.Fetch(ctx, assetURL)
		kind, _, fetchErr := classify(resp, err)
		if fetchErr == nil {
			if p.Cache != nil {
				ttl := p.CacheTTL
				if ttl <= 0 {
					ttl = DefaultCacheTTL
				}
				if err := p.Cache.Put(ctx, key, resp.Body, ttl); err != nil {
					p.log().Warn("asset cache write failed", "url", assetURL, "err", err)
				}
			}
			return p.store(ctx, ref, resp.Body)
		}

		lastErr = fetchErr
		if !kind.Retryable() || ctx.Err() != nil {
			break
		}
	}

	p.log().Warn("asset fetch failed, keeping remote reference", "url", assetURL, "err", lastErr)
	return ref
}

func (p *ImagePipeline) store(ctx context.Context, ref subsync.AssetRef, data []byte) subsync.AssetRef {
	path, err := p.Store.WriteAsset(ctx, ref.RemoteURL, data)
	if err != nil {
		p.log().Warn("asset store failed, keeping remote reference", "url", ref.RemoteURL, "err", err)
		return ref
	}
	ref.LocalPath = path
	ref.Localized = true
	return ref
}

func (p *ImagePipeline) log() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// ExtractAssetURLs returns the embedded image URLs of a post's HTML in
// document order: img src values, resolved against the post URL, minus
// data URIs and tracking pixels.
func ExtractAssetURLs(html, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	base, _ := url.Parse(baseURL)

	seen := make(map[string]bool)
	var urls []string
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			return
		}
		if strings.HasPrefix(src, "data:") {
			return
		}
		lower := strings.ToLower(src)
		if strings.Contains(lower, "pixel") || strings.Contains(lower, "tracking") || strings.Contains(lower, "analytics") {
			return
		}
		if base != nil {
			if u, err := url.Parse(src); err == nil {
				src = base.ResolveReference(u).String()
			}
		}
		if seen[src] {
			return
		}
		seen[src] = true
		urls = append(urls, src)
	})
	return urls
}

// ExtractTitle returns the post's title: og:title when present, else the
// document title.
func ExtractTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && og != "" {
		return og
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
