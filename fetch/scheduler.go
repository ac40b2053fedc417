// Package fetch implements the content-acquisition engine: bounded
// concurrent fetching with caching, retry/backoff, adaptive per-host
// throttling, incremental sync tracking, and the embedded-asset
// sub-pipeline.
package fetch

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akarol/subsync"
)

// Default scheduler parameters.
const (
	DefaultConcurrency = 3
	DefaultMaxAttempts = 4
	DefaultCacheTTL    = 24 * time.Hour
)

// Outcome is the per-resource result of a scheduled fetch.
type Outcome struct {
	Resource  *subsync.Resource
	Body      []byte
	Header    http.Header
	FromCache bool

	// Failure is set when the resource ended failed; Err carries the
	// last underlying error.
	Failure subsync.FailureKind
	Err     error
}

// Scheduler executes fetches for a stream of resources under a bounded
// worker pool, using the cache as a read-through/write-through layer and
// the backoff policy on retryable failures.
type Scheduler struct {
	Transport subsync.Transport
	Cache     subsync.CacheStore
	Throttler *AdaptiveThrottler
	Backoff   *BackoffPolicy

	// Concurrency bounds in-flight page fetches. Defaults to 3.
	Concurrency int

	// MaxAttempts caps fetch attempts per resource. Defaults to 4
	// (1 initial + 3 retries).
	MaxAttempts int

	// CacheTTL is the TTL written with successful fetches.
	CacheTTL time.Duration

	// ForceRefresh bypasses cache reads (writes still happen).
	ForceRefresh bool

	Logger *slog.Logger
}

// Run fetches every resource, invoking handle once per terminal outcome.
// Outcomes are delivered from a single goroutine in completion order, so
// the handler needs no locking; a handler error stops the run. Run
// returns early if the context is canceled, leaving unprocessed
// resources pending for the next run.
func (s *Scheduler) Run(ctx context.Context, resources []*subsync.Resource, handle func(Outcome) error) error {
	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	// Buffered to capacity so workers never block on delivery even if
	// the handler stops the run early.
	outcomes := make(chan Outcome, len(resources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	go func() {
		for _, r := range resources {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				outcomes <- s.process(gctx, r)
				return nil
			})
		}
		_ = g.Wait()
		close(outcomes)
	}()

	for outcome := range outcomes {
		if !outcome.Resource.Status.Terminal() {
			// Canceled mid-fetch; stays pending for the next run.
			outcome.Resource.Status = subsync.StatusPending
			continue
		}
		if handle != nil {
			if err := handle(outcome); err != nil {
				return err
			}
		}
	}

	return ctx.Err()
}

// retryTicket tracks the retry state for one resource in the scheduler's
// working set. It exists only until the resource reaches a terminal
// status.
type retryTicket struct {
	attempts       int
	nextEligibleAt time.Time
}

// process drives one resource to a terminal status.
func (s *Scheduler) process(ctx context.Context, r *subsync.Resource) Outcome {
	key := subsync.Fingerprint(r.URL)
	host := hostOf(r.URL)

	if !s.ForceRefresh && s.Cache != nil {
		entry, err := s.Cache.Get(ctx, key)
		if err != nil {
			// Cache trouble downgrades to a miss; the fetch proceeds.
			s.log().Warn("cache unavailable, fetching", "url", r.URL, "err", err)
		} else if entry != nil {
			r.Status = subsync.StatusFetched
			return Outcome{Resource: r, Body: entry.Payload, FromCache: true}
		}
	}

	ticket := retryTicket{}
	for {
		if !ticket.nextEligibleAt.IsZero() {
			if err := sleepUntil(ctx, ticket.nextEligibleAt); err != nil {
				return Outcome{Resource: r, Err: err}
			}
		}

		r.Status = subsync.StatusFetching
		r.Attempts++
		ticket.attempts++

		if err := s.Throttler.Wait(ctx, host); err != nil {
			return Outcome{Resource: r, Err: err}
		}

		start := time.Now()
		resp, err := s.Transport.Fetch(ctx, r.URL)
		latency := time.Since(start)

		kind, hint, fetchErr := classify(resp, err)
		s.Throttler.Observe(host, latency, kind == subsync.FailureRateLimited)

		if fetchErr == nil {
			if s.Cache != nil {
				if err := s.Cache.Put(ctx, key, resp.Body, s.cacheTTL()); err != nil {
					s.log().Warn("cache write failed", "url", r.URL, "err", err)
				}
			}
			r.Status = subsync.StatusFetched
			return Outcome{Resource: r, Body: resp.Body, Header: resp.Header}
		}

		if ctx.Err() != nil {
			return Outcome{Resource: r, Err: ctx.Err()}
		}

		if !kind.Retryable() || r.Attempts >= s.maxAttempts() {
			r.Status = subsync.StatusFailed
			return Outcome{Resource: r, Failure: kind, Err: fetchErr}
		}

		// Retryable: back to pending, schedule the next attempt.
		r.Status = subsync.StatusPending
		delay := s.Backoff.Next(ticket.attempts-1, hint)
		ticket.nextEligibleAt = time.Now().Add(delay)
		s.log().Debug("retrying fetch",
			"url", r.URL,
			"attempt", ticket.attempts,
			"kind", string(kind),
			"delay", delay,
		)
	}
}

// classify maps a transport result onto the failure taxonomy. A non-nil
// error return means the fetch did not succeed; kind says whether and
// how to retry, hint carries an explicit Retry-After duration if the
// server sent one.
func classify(resp *subsync.Response, err error) (kind subsync.FailureKind, hint time.Duration, failure error) {
	if err != nil {
		return subsync.FailureTransient, 0, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return "", 0, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return subsync.FailureRateLimited, retryAfter(resp.Header),
			subsync.Errorf(subsync.ERATELIMITED, "HTTP 429")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return subsync.FailureAuth, 0,
			subsync.Errorf(subsync.EUNAUTHORIZED, "HTTP %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return subsync.FailureNotFound, 0,
			subsync.Errorf(subsync.ENOTFOUND, "HTTP %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return subsync.FailureTransient, retryAfter(resp.Header),
			subsync.Errorf(subsync.EUNAVAILABLE, "HTTP %d", resp.StatusCode)
	default:
		// Remaining 4xx: the resource is not fetchable as addressed.
		return subsync.FailureNotFound, 0,
			subsync.Errorf(subsync.ENOTFOUND, "HTTP %d", resp.StatusCode)
	}
}

// retryAfter extracts a Retry-After duration from response headers.
// Only the delta-seconds form is honored; HTTP-date values are rare
// enough on rate limiters to ignore.
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}

func sleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (s *Scheduler) maxAttempts() int {
	if s.MaxAttempts > 0 {
		return s.MaxAttempts
	}
	return DefaultMaxAttempts
}

func (s *Scheduler) cacheTTL() time.Duration {
	if s.CacheTTL > 0 {
		return s.CacheTTL
	}
	return DefaultCacheTTL
}

func (s *Scheduler) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
