package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/gabapcia/txtracker/internal/txstore"
	"github.com/gabapcia/txtracker/internal/txtracker"
)

// exportSnapshotCommand returns a CLI command writing the whole tracker state as JSON.
//
// Usage example:
//
//	txtracker export > state.json
func exportSnapshotCommand(tracker txtracker.Service) *cli.Command {
	return &cli.Command{
		Name:        "export",
		Description: "Writes a snapshot of every tracked transaction to stdout.",
		Usage:       "Exports the tracker state as JSON.",
		Action: func(ctx context.Context, c *cli.Command) error {
			return withTracker(ctx, tracker, func() error {
				return writeJSON(c.Root().Writer, tracker.Snapshot())
			})
		},
	}
}

// importSnapshotCommand returns a CLI command merging a previously exported
// snapshot into the tracker state.
//
// Usage example:
//
//	txtracker import --file state.json
func importSnapshotCommand(tracker txtracker.Service) *cli.Command {
	return &cli.Command{
		Name:        "import",
		Description: "Merges a snapshot produced by export into the tracker state.",
		Usage:       "Imports a tracker state. Must provide the snapshot file.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Usage:    "Path of the snapshot file",
				Required: true,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			data, err := os.ReadFile(c.String("file"))
			if err != nil {
				return fmt.Errorf("read snapshot: %w", err)
			}

			var snapshot txstore.Snapshot
			if err := json.Unmarshal(data, &snapshot); err != nil {
				return fmt.Errorf("decode snapshot: %w", err)
			}

			return withTracker(ctx, tracker, func() error {
				return tracker.Hydrate(ctx, snapshot)
			})
		},
	}
}
