package fetch_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akarol/subsync"
	"github.com/akarol/subsync/fetch"
	"github.com/akarol/subsync/mock"
)

// memStates is an in-memory SyncStateService recording every save.
type memStates struct {
	mu     sync.Mutex
	states map[string]*subsync.SyncState
	saves  int
}

func newMemStates() (*memStates, *mock.SyncStateService) {
	m := &memStates{states: make(map[string]*subsync.SyncState)}
	svc := &mock.SyncStateService{
		LoadStateFn: func(_ context.Context, source string) (*subsync.SyncState, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if state, ok := m.states[source]; ok {
				copied := subsync.NewSyncState(source)
				copied.LastCheckpointAt = state.LastCheckpointAt
				for id := range state.SyncedIDs {
					copied.SyncedIDs[id] = struct{}{}
				}
				return copied, nil
			}
			return subsync.NewSyncState(source), nil
		},
		SaveStateFn: func(_ context.Context, state *subsync.SyncState) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.saves++
			copied := subsync.NewSyncState(state.Source)
			copied.LastCheckpointAt = state.LastCheckpointAt
			for id := range state.SyncedIDs {
				copied.SyncedIDs[id] = struct{}{}
			}
			m.states[state.Source] = copied
			return nil
		},
		ResetStateFn: func(_ context.Context, source string) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.states, source)
			return nil
		},
	}
	return m, svc
}

func TestTracker_filter_skips_checkpointed_resources(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem, svc := newMemStates()
	mem.states["https://a.substack.com"] = &subsync.SyncState{
		Source:    "https://a.substack.com",
		SyncedIDs: map[string]struct{}{"post-1": {}, "post-2": {}},
	}

	tracker := fetch.NewTracker(svc)
	require.NoError(t, tracker.Load(ctx, "https://a.substack.com"))

	rs := []*subsync.Resource{
		{ID: "post-1", URL: "https://a.substack.com/p/post-1"},
		{ID: "post-2", URL: "https://a.substack.com/p/post-2"},
		{ID: "post-3", URL: "https://a.substack.com/p/post-3"},
	}
	unsynced := tracker.Filter(rs)

	require.Len(t, unsynced, 1)
	assert.Equal(t, "post-3", unsynced[0].ID)
	assert.Equal(t, subsync.StatusSkipped, rs[0].Status)
	assert.Equal(t, subsync.StatusSkipped, rs[1].Status)
}

func TestTracker_checkpoints_every_interval(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem, svc := newMemStates()

	tracker := fetch.NewTracker(svc)
	tracker.Interval = 3
	require.NoError(t, tracker.Load(ctx, "https://a.substack.com"))

	require.NoError(t, tracker.Mark(ctx, "post-1", true))
	require.NoError(t, tracker.Mark(ctx, "post-2", true))
	assert.Equal(t, 0, mem.saves, "no checkpoint before the interval fills")

	require.NoError(t, tracker.Mark(ctx, "post-3", true))
	assert.Equal(t, 1, mem.saves)

	saved := mem.states["https://a.substack.com"]
	assert.Len(t, saved.SyncedIDs, 3)
	assert.False(t, saved.LastCheckpointAt.IsZero())
}

func TestTracker_failed_resources_advance_the_clock_but_stay_unsynced(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem, svc := newMemStates()

	tracker := fetch.NewTracker(svc)
	tracker.Interval = 2
	require.NoError(t, tracker.Load(ctx, "https://a.substack.com"))

	require.NoError(t, tracker.Mark(ctx, "post-1", true))
	require.NoError(t, tracker.Mark(ctx, "post-2", false))
	require.Equal(t, 1, mem.saves, "failed resources still count toward the interval")

	saved := mem.states["https://a.substack.com"]
	assert.Contains(t, saved.SyncedIDs, "post-1")
	assert.NotContains(t, saved.SyncedIDs, "post-2", "a failed resource must be retried next run")
}

func TestTracker_flush_persists_partial_batches(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem, svc := newMemStates()

	tracker := fetch.NewTracker(svc)
	tracker.Interval = 10
	require.NoError(t, tracker.Load(ctx, "https://a.substack.com"))

	require.NoError(t, tracker.Mark(ctx, "post-1", true))
	require.Equal(t, 0, mem.saves)

	require.NoError(t, tracker.Flush(ctx))
	assert.Equal(t, 1, mem.saves)

	// Nothing pending, flush is a no-op.
	require.NoError(t, tracker.Flush(ctx))
	assert.Equal(t, 1, mem.saves)
}

func TestTracker_resumes_from_last_checkpoint(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, svc := newMemStates()

	// First run checkpoints two posts, then "crashes" before the third.
	first := fetch.NewTracker(svc)
	first.Interval = 2
	require.NoError(t, first.Load(ctx, "https://a.substack.com"))
	require.NoError(t, first.Mark(ctx, "post-1", true))
	require.NoError(t, first.Mark(ctx, "post-2", true))
	require.NoError(t, first.Mark(ctx, "post-3", true)) // uncheckpointed

	second := fetch.NewTracker(svc)
	require.NoError(t, second.Load(ctx, "https://a.substack.com"))

	rs := []*subsync.Resource{
		{ID: "post-1"}, {ID: "post-2"}, {ID: "post-3"}, {ID: "post-4"},
	}
	unsynced := second.Filter(rs)

	// post-3 was lost with the crash and is re-attempted.
	require.Len(t, unsynced, 2)
	assert.Equal(t, "post-3", unsynced[0].ID)
	assert.Equal(t, "post-4", unsynced[1].ID)
}

func TestTracker_supports_struct_literal_construction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem, svc := newMemStates()

	tracker := &fetch.Tracker{States: svc, Interval: 1}
	require.NoError(t, tracker.Load(ctx, "https://a.substack.com"))
	require.NoError(t, tracker.Mark(ctx, "post-1", true))

	require.Equal(t, 1, mem.saves)
	saved := mem.states["https://a.substack.com"]
	assert.False(t, saved.LastCheckpointAt.IsZero())
}

func TestTracker_mark_before_load_is_an_error(t *testing.T) {
	t.Parallel()

	_, svc := newMemStates()
	tracker := fetch.NewTracker(svc)

	err := tracker.Mark(context.Background(), "post-1", true)
	require.Error(t, err)
	assert.Equal(t, subsync.EINTERNAL, subsync.ErrorCode(err))
}

func TestTracker_checkpoint_failure_surfaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := &mock.SyncStateService{
		LoadStateFn: func(_ context.Context, source string) (*subsync.SyncState, error) {
			return subsync.NewSyncState(source), nil
		},
		SaveStateFn: func(context.Context, *subsync.SyncState) error {
			return subsync.Errorf(subsync.EUNAVAILABLE, "disk full")
		},
	}

	tracker := fetch.NewTracker(svc)
	tracker.Interval = 1
	require.NoError(t, tracker.Load(ctx, "https://a.substack.com"))

	err := tracker.Mark(ctx, "post-1", true)
	require.Error(t, err)
	assert.Equal(t, subsync.EUNAVAILABLE, subsync.ErrorCode(err))
}
