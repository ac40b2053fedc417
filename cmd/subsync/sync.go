package main

import (
	"fmt"

	"github.com/akarol/subsync"
	"github.com/akarol/subsync/fetch"
)

// Run executes the sync command.
func (c *SyncCmd) Run(deps *Dependencies) error {
	source, err := normalizeSource(c.Source)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", subsync.ErrorMessage(err))
		return err
	}

	dates, err := parseDateRange(c.After, c.Before)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", subsync.ErrorMessage(err))
		return err
	}

	if c.ClearCache {
		if err := deps.Cache.Clear(deps.Ctx); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", subsync.ErrorMessage(err))
			return err
		}
	}

	engine := deps.newEngine(c)

	summary, err := engine.Run(deps.Ctx, fetch.RunOptions{
		Source:      source,
		Dates:       dates,
		Incremental: !c.Full,
		Force:       c.Force,
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
