package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"github.com/akarol/subsync"
)

// Compile-time interface verification.
var _ subsync.SyncStateService = (*SyncStateService)(nil)

// SyncStateService implements subsync.SyncStateService using SQLite.
// Each source has a single row; SaveState replaces it in one statement,
// so a checkpoint is either fully written or not written at all.
type SyncStateService struct {
	db *DB
}

// NewSyncStateService creates a new SyncStateService.
func NewSyncStateService(db *DB) *SyncStateService {
	return &SyncStateService{db: db}
}

// LoadState returns the state for a source, or a fresh empty state if
// none has been persisted yet.
func (s *SyncStateService) LoadState(ctx context.Context, source string) (*subsync.SyncState, error) {
	if source == "" {
		return nil, subsync.Errorf(subsync.EINVALID, "source required")
	}

	var (
		checkpointAt int64
		idsJSON      string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT last_checkpoint_at, synced_ids FROM sync_state WHERE source = ?
	`, source).Scan(&checkpointAt, &idsJSON)

	if err == sql.ErrNoRows {
		return subsync.NewSyncState(source), nil
	}
	if err != nil {
		return nil, subsync.Errorf(subsync.EUNAVAILABLE, "sync state read: %v", err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(idsJSON), &ids); err != nil {
		return nil, subsync.Errorf(subsync.EINTERNAL, "sync state corrupt for %q: %v", source, err)
	}

	state := subsync.NewSyncState(source)
	state.LastCheckpointAt = time.Unix(checkpointAt, 0).UTC()
	for _, id := range ids {
		state.SyncedIDs[id] = struct{}{}
	}
	return state, nil
}

// SaveState durably replaces the state for state.Source.
func (s *SyncStateService) SaveState(ctx context.Context, state *subsync.SyncState) error {
	if state == nil || state.Source == "" {
		return subsync.Errorf(subsync.EINVALID, "sync state source required")
	}

	ids := make([]string, 0, len(state.SyncedIDs))
	for id := range state.SyncedIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return subsync.Errorf(subsync.EINTERNAL, "sync state encode: %v", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sync_state (source, last_checkpoint_at, synced_ids)
		VALUES (?, ?, ?)
	`, state.Source, state.LastCheckpointAt.Unix(), string(idsJSON))
	if err != nil {
		return subsync.Errorf(subsync.EUNAVAILABLE, "sync state write: %v", err)
	}
	return nil
}

// ResetState removes persisted state for a source.
func (s *SyncStateService) ResetState(ctx context.Context, source string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sync_state WHERE source = ?`, source); err != nil {
		return subsync.Errorf(subsync.EUNAVAILABLE, "sync state reset: %v", err)
	}
	return nil
}
