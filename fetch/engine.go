package fetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/akarol/subsync"
)

// catastrophicMinBatch is the smallest batch on which a 100% failure
// rate trips the circuit breaker.
const catastrophicMinBatch = 5

// RunOptions configure one engine run.
type RunOptions struct {
	// Source is the newsletter base URL (https://name.substack.com).
	Source string

	// Dates filters discovered posts by published date, inclusive.
	Dates subsync.DateRange

	// Incremental skips posts recorded in the persisted sync state.
	Incremental bool

	// Force re-fetches even cached and synced posts.
	Force bool

	// SingleURL bypasses discovery and processes one post.
	SingleURL string
}

// FailedResource identifies a permanently failed resource in the run
// summary.
type FailedResource struct {
	ID   string
	Kind subsync.FailureKind
}

// RunSummary reports a completed (or interrupted) run.
type RunSummary struct {
	Discovered int
	Fetched    int
	FromCache  int
	Failed     int
	Skipped    int
	Elapsed    time.Duration

	// FailedResources lists permanently failed resources by id and
	// kind, so a later run without force can re-attempt exactly these.
	FailedResources []FailedResource

	// NeedsAttention is set when any failure was an auth failure, which
	// retrying will not fix.
	NeedsAttention bool
}

// Engine orchestrates a full archive run: discovery, sync filtering,
// scheduled fetching, the asset sub-pipeline, rendering, and
// checkpointing. All collaborators are injected; the engine owns no
// ambient state.
type Engine struct {
	Discovery subsync.Discoverer
	Tracker   *Tracker
	Scheduler *Scheduler
	Images    *ImagePipeline
	Renderer  subsync.Renderer
	Logger    *slog.Logger
}

// Run executes one archive run. Per-resource failures never abort the
// run; Run returns an error only for cancellation, a checkpoint
// persistence failure, or a catastrophic batch (every resource in a
// batch of at least five failing).
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*RunSummary, error) {
	start := time.Now()
	summary := &RunSummary{}

	resources, err := e.discover(ctx, opts)
	if err != nil {
		return nil, err
	}
	summary.Discovered = len(resources)

	if e.Tracker != nil {
		if err := e.Tracker.Load(ctx, opts.Source); err != nil {
			return nil, err
		}
		if opts.Incremental && !opts.Force {
			before := len(resources)
			resources = e.Tracker.Filter(resources)
			summary.Skipped = before - len(resources)
		}
	}

	e.log().Info("run starting",
		"source", opts.Source,
		"discovered", summary.Discovered,
		"skipped", summary.Skipped,
	)

	err = e.Scheduler.Run(ctx, resources, func(outcome Outcome) error {
		return e.handle(ctx, outcome, summary)
	})

	if e.Tracker != nil {
		// Flush even after cancellation: every id in the state reached
		// a terminal status before Mark, so the checkpoint is safe.
		if ferr := e.Tracker.Flush(ctx); ferr != nil && err == nil {
			err = ferr
		}
	}

	summary.Elapsed = time.Since(start)

	if err != nil {
		return summary, err
	}

	processed := summary.Fetched + summary.FromCache + summary.Failed
	if processed >= catastrophicMinBatch && summary.Failed == processed {
		return summary, subsync.Errorf(subsync.EINTERNAL,
			"all %d resources failed; aborting as catastrophic", processed)
	}

	e.log().Info("run finished",
		"fetched", summary.Fetched,
		"from_cache", summary.FromCache,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"elapsed", summary.Elapsed,
	)

	return summary, nil
}

// discover produces the candidate set for the run.
func (e *Engine) discover(ctx context.Context, opts RunOptions) ([]*subsync.Resource, error) {
	if opts.SingleURL != "" {
		return SingleResource(opts.SingleURL), nil
	}
	if opts.Source == "" {
		return nil, subsync.Errorf(subsync.EINVALID, "source required")
	}
	return e.Discovery.Discover(ctx, opts.Source, opts.Dates)
}

// handle processes one terminal outcome: assets and rendering for
// successes, summary bookkeeping for failures, sync marking for both.
func (e *Engine) handle(ctx context.Context, outcome Outcome, summary *RunSummary) error {
	r := outcome.Resource

	if r.Status == subsync.StatusFailed {
		summary.Failed++
		summary.FailedResources = append(summary.FailedResources, FailedResource{
			ID:   r.ID,
			Kind: outcome.Failure,
		})
		if outcome.Failure == subsync.FailureAuth {
			summary.NeedsAttention = true
		}
		e.log().Warn("resource failed",
			"id", r.ID,
			"kind", string(outcome.Failure),
			"err", outcome.Err,
		)
		// NotFound resources are gone for good; checkpoint them as
		// synced so later runs stop probing dead URLs. Other failures
		// stay unsynced and are re-attempted next run.
		return e.mark(ctx, r.ID, outcome.Failure == subsync.FailureNotFound)
	}

	html := string(outcome.Body)
	post := &subsync.Post{
		Resource: r,
		Title:    ExtractTitle(html),
		HTML:     html,
	}
	if e.Images != nil {
		post.Assets = e.Images.Process(ctx, html, r.URL)
	}

	if e.Renderer != nil {
		if err := e.Renderer.Render(ctx, post); err != nil {
			r.Status = subsync.StatusFailed
			summary.Failed++
			summary.FailedResources = append(summary.FailedResources, FailedResource{
				ID:   r.ID,
				Kind: subsync.FailureRender,
			})
			e.log().Warn("render failed", "id", r.ID, "err", err)
			return e.mark(ctx, r.ID, false)
		}
	}

	if outcome.FromCache {
		summary.FromCache++
	} else {
		summary.Fetched++
	}
	return e.mark(ctx, r.ID, true)
}

// mark records a terminal resource with the tracker. A checkpoint
// persistence failure is the one per-resource error that aborts the
// run.
func (e *Engine) mark(ctx context.Context, id string, synced bool) error {
	if e.Tracker == nil {
		return nil
	}
	return e.Tracker.Mark(ctx, id, synced)
}

func (e *Engine) log() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
