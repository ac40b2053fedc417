package main

import (
	"fmt"

	"github.com/akarol/subsync"
)

// Run executes the cache command.
func (c *CacheCmd) Run(deps *Dependencies) error {
	if c.Clear {
		if err := deps.Cache.Clear(deps.Ctx); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", subsync.ErrorMessage(err))
			return err
		}
		fmt.Fprintln(deps.Stdout, "Cache cleared")
		return nil
	}

	stats, err := deps.Cache.Stats(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", subsync.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "%d entries, %d hits\n", stats.Entries, stats.Hits)
	return nil
}
