package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/akarol/subsync"
)

// DefaultCheckpointInterval is how many terminal resources accumulate
// before a checkpoint is persisted.
const DefaultCheckpointInterval = 25

// Tracker maintains incremental sync state for one source across a run.
// Ids are only recorded after their resource reaches a terminal status,
// and checkpoints are persisted behind that barrier, so a crash costs at
// most one checkpoint interval of re-work and never produces a
// checkpoint claiming unfinished resources.
type Tracker struct {
	States subsync.SyncStateService

	// Interval is the number of terminal resources between checkpoint
	// writes. Defaults to DefaultCheckpointInterval.
	Interval int

	mu      sync.Mutex
	state   *subsync.SyncState
	pending int

	now func() time.Time
}

// NewTracker creates a Tracker persisting through states.
func NewTracker(states subsync.SyncStateService) *Tracker {
	return &Tracker{States: states, now: time.Now}
}

// Load reads the persisted state for a source. Must be called before
// Filter or Mark.
func (t *Tracker) Load(ctx context.Context, source string) error {
	state, err := t.States.LoadState(ctx, source)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.state = state
	t.pending = 0
	t.mu.Unlock()
	return nil
}

// Filter returns the subset of candidates not yet checkpointed, marking
// the rest skipped. Checkpointed ids are excluded outright, without even
// a cache probe.
func (t *Tracker) Filter(candidates []*subsync.Resource) []*subsync.Resource {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == nil || len(t.state.SyncedIDs) == 0 {
		return candidates
	}

	unsynced := make([]*subsync.Resource, 0, len(candidates))
	for _, r := range candidates {
		if t.state.Synced(r.ID) {
			r.Status = subsync.StatusSkipped
			continue
		}
		unsynced = append(unsynced, r)
	}
	return unsynced
}

// Synced reports whether an id is already checkpointed.
func (t *Tracker) Synced(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state != nil && t.state.Synced(id)
}

// Mark records a terminal resource. Archived resources join the synced
// set; permanently failed ones only advance the checkpoint clock, so the
// next incremental run re-attempts them. Every Interval terminal
// resources the accumulated state is persisted.
func (t *Tracker) Mark(ctx context.Context, id string, synced bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == nil {
		return subsync.Errorf(subsync.EINTERNAL, "tracker used before Load")
	}

	if synced {
		t.state.SyncedIDs[id] = struct{}{}
	}
	t.pending++

	interval := t.Interval
	if interval <= 0 {
		interval = DefaultCheckpointInterval
	}
	if t.pending < interval {
		return nil
	}
	return t.checkpointLocked(ctx)
}

// Flush persists any uncheckpointed progress. Call at the end of a run.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == nil || t.pending == 0 {
		return nil
	}
	return t.checkpointLocked(ctx)
}

// Stats returns the current state for reporting.
func (t *Tracker) Stats() (source string, syncedCount int, lastCheckpoint time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == nil {
		return "", 0, time.Time{}
	}
	return t.state.Source, len(t.state.SyncedIDs), t.state.LastCheckpointAt
}

func (t *Tracker) checkpointLocked(ctx context.Context) error {
	now := t.now
	if now == nil {
		now = time.Now
	}
	t.state.LastCheckpointAt = now().UTC()
	if err := t.States.SaveState(ctx, t.state); err != nil {
		return subsync.Errorf(subsync.EUNAVAILABLE, "checkpoint failed: %v", subsync.ErrorMessage(err))
	}
	t.pending = 0
	return nil
}
