package main

import (
	"fmt"

	"github.com/akarol/subsync"
)

// Run executes the state command.
func (c *StateCmd) Run(deps *Dependencies) error {
	source, err := normalizeSource(c.Source)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", subsync.ErrorMessage(err))
		return err
	}

	if c.Reset {
		if err := deps.SyncStates.ResetState(deps.Ctx, source); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", subsync.ErrorMessage(err))
			return err
		}
		fmt.Fprintf(deps.Stdout, "Reset sync state for %s\n", source)
		return nil
	}

	state, err := deps.SyncStates.LoadState(deps.Ctx, source)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", subsync.ErrorMessage(err))
		return err
	}

	if state.LastCheckpointAt.IsZero() {
		fmt.Fprintf(deps.Stdout, "No sync state for %s\n", source)
		return nil
	}

	fmt.Fprintf(deps.Stdout, "%s: %d posts synced, last checkpoint %s\n",
		source, len(state.SyncedIDs), state.LastCheckpointAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}
