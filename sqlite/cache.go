package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/akarol/subsync"
)

// Compile-time interface verification.
var _ subsync.CacheStore = (*CacheStore)(nil)

// CacheStore implements subsync.CacheStore using SQLite. Expired entries
// are treated as absent on read and lazily deleted.
type CacheStore struct {
	db *DB

	// now is overridable in tests.
	now func() time.Time
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(db *DB) *CacheStore {
	return &CacheStore{db: db, now: time.Now}
}

// Get returns the entry for key, or nil if absent or expired. A hit
// increments the persisted hit count.
func (s *CacheStore) Get(ctx context.Context, key string) (*subsync.CacheEntry, error) {
	var (
		entry    subsync.CacheEntry
		storedAt int64
		ttlSecs  int64
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT key, payload, stored_at, ttl_seconds, hit_count
		FROM fetch_cache
		WHERE key = ?
	`, key).Scan(&entry.Key, &entry.Payload, &storedAt, &ttlSecs, &entry.HitCount)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, subsync.Errorf(subsync.EUNAVAILABLE, "cache read: %v", err)
	}

	entry.StoredAt = time.Unix(storedAt, 0).UTC()
	entry.TTL = time.Duration(ttlSecs) * time.Second

	if s.now().After(entry.StoredAt.Add(entry.TTL)) {
		// Expired. Drop the row so the table doesn't accumulate.
		_, _ = s.db.ExecContext(ctx, `DELETE FROM fetch_cache WHERE key = ?`, key)
		return nil, nil
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE fetch_cache SET hit_count = hit_count + 1 WHERE key = ?
	`, key); err != nil {
		return nil, subsync.Errorf(subsync.EUNAVAILABLE, "cache hit count: %v", err)
	}
	entry.HitCount++

	return &entry, nil
}

// Put stores payload under key, overwriting any previous entry and
// resetting its hit count.
func (s *CacheStore) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if key == "" {
		return subsync.Errorf(subsync.EINVALID, "cache key required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO fetch_cache (key, payload, stored_at, ttl_seconds, hit_count)
		VALUES (?, ?, ?, ?, 0)
	`, key, payload, s.now().Unix(), int64(ttl/time.Second))
	if err != nil {
		return subsync.Errorf(subsync.EUNAVAILABLE, "cache write: %v", err)
	}
	return nil
}

// Invalidate removes a single entry.
func (s *CacheStore) Invalidate(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM fetch_cache WHERE key = ?`, key); err != nil {
		return subsync.Errorf(subsync.EUNAVAILABLE, "cache invalidate: %v", err)
	}
	return nil
}

// Clear removes all entries.
func (s *CacheStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM fetch_cache`); err != nil {
		return subsync.Errorf(subsync.EUNAVAILABLE, "cache clear: %v", err)
	}
	return nil
}

// Stats returns entry and hit counts.
func (s *CacheStore) Stats(ctx context.Context) (*subsync.CacheStats, error) {
	var stats subsync.CacheStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(hit_count), 0) FROM fetch_cache
	`).Scan(&stats.Entries, &stats.Hits)
	if err != nil {
		return nil, subsync.Errorf(subsync.EUNAVAILABLE, "cache stats: %v", err)
	}
	return &stats, nil
}
