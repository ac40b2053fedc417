package main

import (
	"fmt"

	"github.com/akarol/subsync"
	"github.com/akarol/subsync/fetch"
)

// Run executes the post command: archive a single post, bypassing
// discovery and sync state.
func (c *PostCmd) Run(deps *Dependencies) error {
	source, err := normalizeSource(c.URL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", subsync.ErrorMessage(err))
		return err
	}

	engine := deps.newEngine(&SyncCmd{
		Concurrency:      1,
		ImageConcurrency: fetch.DefaultImageConcurrency,
		Force:            c.Force,
	})
	engine.Tracker = nil // single posts don't touch sync state

	summary, err := engine.Run(deps.Ctx, fetch.RunOptions{
		Source:    source,
		SingleURL: c.URL,
		Force:     c.Force,
	})
	if summary != nil {
		printSummary(deps.Stdout, summary)
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", subsync.ErrorMessage(err))
		return err
	}
	return nil
}
