package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/akarol/subsync"
)

// Ensure LoggingCacheStore implements subsync.CacheStore.
var _ subsync.CacheStore = (*LoggingCacheStore)(nil)

// LoggingCacheStore wraps a CacheStore with hit/miss logging.
type LoggingCacheStore struct {
	next   subsync.CacheStore
	logger *slog.Logger
}

// NewLoggingCacheStore creates a new LoggingCacheStore.
func NewLoggingCacheStore(next subsync.CacheStore, logger *slog.Logger) *LoggingCacheStore {
	return &LoggingCacheStore{next: next, logger: logger}
}

// Get delegates to the wrapped store and logs hit or miss.
func (s *LoggingCacheStore) Get(ctx context.Context, key string) (entry *subsync.CacheEntry, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("cache get",
			"key", key,
			"hit", entry != nil,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Get(ctx, key)
}

// Put delegates to the wrapped store.
func (s *LoggingCacheStore) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return s.next.Put(ctx, key, payload, ttl)
}

// Invalidate delegates to the wrapped store.
func (s *LoggingCacheStore) Invalidate(ctx context.Context, key string) error {
	return s.next.Invalidate(ctx, key)
}

// Clear delegates to the wrapped store and logs the operation.
func (s *LoggingCacheStore) Clear(ctx context.Context) error {
	err := s.next.Clear(ctx)
	s.logger.Info("cache cleared", "err", err)
	return err
}

// Stats delegates to the wrapped store.
func (s *LoggingCacheStore) Stats(ctx context.Context) (*subsync.CacheStats, error) {
	return s.next.Stats(ctx)
}
