package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/gabapcia/txtracker/internal/txtracker"
)

// withTracker runs fn against a started tracker and closes it afterwards.
// Runs still in flight when fn returns are interrupted and resumed by the
// next start.
func withTracker(ctx context.Context, tracker txtracker.Service, fn func() error) error {
	if err := tracker.Start(ctx); err != nil {
		return err
	}
	defer tracker.Close()

	return fn()
}

// startTrackerCommand returns a CLI command that resumes every pending
// transaction and keeps confirming them in the background.
//
// Usage example:
//
//	txtracker start
//
// The process runs until it receives an interrupt (SIGINT or SIGTERM) or ctx is done.
func startTrackerCommand(tracker txtracker.Service, visibility *txtracker.VisibilitySwitch) *cli.Command {
	return &cli.Command{
		Name:        "start",
		Description: "Resumes the confirmation of pending transactions and keeps tracking them.",
		Usage:       "Runs the tracker in the foreground. Terminates gracefully on Ctrl+C or termination signals.",
		Action: func(ctx context.Context, c *cli.Command) error {
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			// nobody looks at the tray of a background tracker
			visibility.SetVisible(false)

			return withTracker(ctx, tracker, func() error {
				select {
				case <-quit:
				case <-ctx.Done():
				}
				return nil
			})
		},
	}
}
