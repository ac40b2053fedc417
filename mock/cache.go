package mock

import (
	"context"
	"time"

	"github.com/akarol/subsync"
)

var _ subsync.CacheStore = (*CacheStore)(nil)

// CacheStore is a mock implementation of subsync.CacheStore.
type CacheStore struct {
	GetFn        func(ctx context.Context, key string) (*subsync.CacheEntry, error)
	PutFn        func(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	InvalidateFn func(ctx context.Context, key string) error
	ClearFn      func(ctx context.Context) error
	StatsFn      func(ctx context.Context) (*subsync.CacheStats, error)
}

func (s *CacheStore) Get(ctx context.Context, key string) (*subsync.CacheEntry, error) {
	return s.GetFn(ctx, key)
}

func (s *CacheStore) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return s.PutFn(ctx, key, payload, ttl)
}

func (s *CacheStore) Invalidate(ctx context.Context, key string) error {
	return s.InvalidateFn(ctx, key)
}

func (s *CacheStore) Clear(ctx context.Context) error {
	return s.ClearFn(ctx)
}

func (s *CacheStore) Stats(ctx context.Context) (*subsync.CacheStats, error) {
	return s.StatsFn(ctx)
}
