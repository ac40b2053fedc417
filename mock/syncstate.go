package mock

import (
	"context"

	"github.com/akarol/subsync"
)

var _ subsync.SyncStateService = (*SyncStateService)(nil)

// SyncStateService is a mock implementation of subsync.SyncStateService.
type SyncStateService struct {
	LoadStateFn  func(ctx context.Context, source string) (*subsync.SyncState, error)
	SaveStateFn  func(ctx context.Context, state *subsync.SyncState) error
	ResetStateFn func(ctx context.Context, source string) error
}

func (s *SyncStateService) LoadState(ctx context.Context, source string) (*subsync.SyncState, error) {
	return s.LoadStateFn(ctx, source)
}

func (s *SyncStateService) SaveState(ctx context.Context, state *subsync.SyncState) error {
	return s.SaveStateFn(ctx, state)
}

func (s *SyncStateService) ResetState(ctx context.Context, source string) error {
	return s.ResetStateFn(ctx, source)
}
