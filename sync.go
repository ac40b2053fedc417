package subsync

import (
	"context"
	"time"
)

// SyncState is the persisted incremental-sync record for one source.
// All resources whose IDs appear in SyncedIDs were terminal (archived or
// permanently failed) before LastCheckpointAt.
type SyncState struct {
	Source           string
	LastCheckpointAt time.Time
	SyncedIDs        map[string]struct{}
}

// NewSyncState returns an empty state for a source.
func NewSyncState(source string) *SyncState {
	return &SyncState{
		Source:    source,
		SyncedIDs: make(map[string]struct{}),
	}
}

// Synced reports whether a resource id has been checkpointed.
func (s *SyncState) Synced(id string) bool {
	_, ok := s.SyncedIDs[id]
	return ok
}

// SyncStateService persists per-source sync state. Save must be atomic:
// a crash mid-save leaves the previous checkpoint intact.
type SyncStateService interface {
	// LoadState returns the state for a source, or a fresh empty state
	// if none has been persisted yet.
	LoadState(ctx context.Context, source string) (*SyncState, error)

	// SaveState durably replaces the state for state.Source.
	SaveState(ctx context.Context, state *SyncState) error

	// ResetState removes persisted state for a source.
	ResetState(ctx context.Context, source string) error
}
