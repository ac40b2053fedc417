package subsync

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// CacheEntry is a stored fetch result. Entries past their TTL are
// treated as absent by Get.
type CacheEntry struct {
	Key      string
	Payload  []byte
	StoredAt time.Time
	TTL      time.Duration
	HitCount int
}

// CacheStats summarizes cache contents and effectiveness.
type CacheStats struct {
	Entries int
	Hits    int
}

// CacheStore is a durable content cache keyed by URL fingerprint.
// The fetch scheduler is its sole caller: reads before every network
// fetch, writes after every successful one.
type CacheStore interface {
	// Get returns the entry for key, or nil if absent or expired.
	// A hit increments the entry's hit count.
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Put stores payload under key, overwriting any previous entry.
	Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Invalidate removes a single entry.
	Invalidate(ctx context.Context, key string) error

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Stats returns entry and hit counts.
	Stats(ctx context.Context) (*CacheStats, error)
}

// Fingerprint computes the cache key for a URL: an xxHash of the
// normalized URL (scheme, host, path, and query parameters in sorted
// order). Fragments never affect the fetched content and are dropped.
func Fingerprint(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Sprintf("%016x", xxhash.Sum64String(rawURL))
	}

	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(u.Host)
	b.WriteString(u.Path)

	if u.RawQuery != "" {
		q := u.Query()
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("?")
		for i, k := range keys {
			if i > 0 {
				b.WriteString("&")
			}
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(strings.Join(q[k], ","))
		}
	}

	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String()))
}
