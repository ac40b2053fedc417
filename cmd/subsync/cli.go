package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/akarol/subsync"
	"github.com/akarol/subsync/fetch"
	"github.com/akarol/subsync/fs"
	"github.com/akarol/subsync/htmltomarkdown"
	subhttp "github.com/akarol/subsync/http"
	"github.com/akarol/subsync/sqlite"
)

// Dependencies holds all services and configuration for command
// execution.
type Dependencies struct {
	Ctx        context.Context
	Stdout     io.Writer
	Stderr     io.Writer
	Logger     *slog.Logger
	DB         *sqlite.DB
	Cache      subsync.CacheStore
	SyncStates subsync.SyncStateService
	Transport  subsync.Transport
	OutDir     string
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Sync  SyncCmd  `cmd:"" help:"Archive all posts from a newsletter"`
	Post  PostCmd  `cmd:"" help:"Archive a single post by URL"`
	State StateCmd `cmd:"" help:"Show or reset incremental sync state"`
	Cache CacheCmd `cmd:"" help:"Show or clear the fetch cache"`

	Verbose bool `short:"v" help:"Enable debug logging"`
}

// SyncCmd is the "sync" subcommand.
type SyncCmd struct {
	Source string `arg:"" help:"Newsletter name or URL (e.g. tradecompanion or https://tradecompanion.substack.com)"`

	Concurrency      int           `short:"c" default:"3" help:"Concurrent page fetch limit"`
	ImageConcurrency int           `default:"5" help:"Concurrent image fetch limit"`
	MinDelay         time.Duration `default:"100ms" help:"Minimum inter-request delay per host"`
	MaxDelay         time.Duration `default:"5s" help:"Maximum inter-request delay per host"`
	MaxAttempts      int           `default:"4" help:"Fetch attempts per post before giving up"`
	CheckpointEvery  int           `default:"25" help:"Posts between sync checkpoints"`

	Full       bool   `help:"Process all posts, ignoring sync state"`
	Force      bool   `short:"f" help:"Re-fetch even cached posts"`
	ClearCache bool   `help:"Clear the fetch cache before starting"`
	NoSitemap  bool   `help:"Skip sitemap discovery, scan archive pages directly"`
	After      string `help:"Only posts published on or after this date (YYYY-MM-DD)"`
	Before     string `help:"Only posts published on or before this date (YYYY-MM-DD)"`
}

// PostCmd is the "post" subcommand.
type PostCmd struct {
	URL   string `arg:"" help:"Post URL"`
	Force bool   `short:"f" help:"Re-fetch even if cached"`
}

// StateCmd is the "state" subcommand.
type StateCmd struct {
	Source string `arg:"" help:"Newsletter name or URL"`
	Reset  bool   `help:"Reset sync state for the source"`
}

// CacheCmd is the "cache" subcommand.
type CacheCmd struct {
	Clear bool `help:"Remove all cached responses"`
}

// normalizeSource turns a bare newsletter name into its substack URL
// and strips any path from a full URL.
func normalizeSource(source string) (string, error) {
	if source == "" {
		return "", subsync.Errorf(subsync.EINVALID, "source required")
	}
	if !strings.Contains(source, "://") {
		if strings.Contains(source, ".") {
			source = "https://" + source
		} else {
			source = "https://" + source + ".substack.com"
		}
	}
	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return "", subsync.Errorf(subsync.EINVALID, "invalid source %q", source)
	}
	return (&url.URL{Scheme: "https", Host: u.Host}).String(), nil
}

// parseDateRange parses the optional --after/--before flags.
func parseDateRange(after, before string) (subsync.DateRange, error) {
	var dates subsync.DateRange
	if after != "" {
		t, err := time.Parse("2006-01-02", after)
		if err != nil {
			return dates, subsync.Errorf(subsync.EINVALID, "invalid --after date %q", after)
		}
		dates.Start = &t
	}
	if before != "" {
		t, err := time.Parse("2006-01-02", before)
		if err != nil {
			return dates, subsync.Errorf(subsync.EINVALID, "invalid --before date %q", before)
		}
		// Inclusive end of day.
		t = t.Add(24*time.Hour - time.Nanosecond)
		dates.End = &t
	}
	return dates, nil
}

// newEngine assembles the engine from the shared dependencies and the
// sync command's flags.
func (deps *Dependencies) newEngine(c *SyncCmd) *fetch.Engine {
	throttler := fetch.NewAdaptiveThrottler(c.MinDelay, c.MaxDelay)
	backoff := fetch.NewBackoffPolicy(fetch.DefaultBackoffBase, fetch.DefaultBackoffMax)
	store := fs.NewArchiveStore(deps.OutDir)

	tracker := fetch.NewTracker(deps.SyncStates)
	tracker.Interval = c.CheckpointEvery

	return &fetch.Engine{
		Discovery: &fetch.Discovery{
			Sitemap:    subhttp.NewSitemapDiscoverer(deps.Transport),
			Archive:    subhttp.NewArchiveDiscoverer(deps.Transport, subhttp.WithPageInterval(c.MinDelay)),
			UseSitemap: !c.NoSitemap,
			Logger:     deps.Logger,
		},
		Tracker: tracker,
		Scheduler: &fetch.Scheduler{
			Transport:    deps.Transport,
			Cache:        deps.Cache,
			Throttler:    throttler,
			Backoff:      backoff,
			Concurrency:  c.Concurrency,
			MaxAttempts:  c.MaxAttempts,
			ForceRefresh: c.Force,
			Logger:       deps.Logger,
		},
		Images: &fetch.ImagePipeline{
			Transport:   deps.Transport,
			Cache:       deps.Cache,
			Store:       store,
			Backoff:     backoff,
			Concurrency: c.ImageConcurrency,
			Logger:      deps.Logger,
		},
		Renderer: htmltomarkdown.NewRenderer(store),
		Logger:   deps.Logger,
	}
}

// printSummary writes the run summary in the CLI's usual format.
func printSummary(w io.Writer, summary *fetch.RunSummary) {
	fmt.Fprintf(w, "Archived %d posts (%d fetched, %d from cache), %d skipped, %d failed in %s\n",
		summary.Fetched+summary.FromCache,
		summary.Fetched,
		summary.FromCache,
		summary.Skipped,
		summary.Failed,
		summary.Elapsed.Round(time.Millisecond),
	)
	for _, f := range summary.FailedResources {
		fmt.Fprintf(w, "  failed %s (%s)\n", f.ID, f.Kind)
	}
	if summary.NeedsAttention {
		fmt.Fprintln(w, "  some posts failed authorization; check credentials")
	}
}
