package cli

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/gabapcia/txtracker/internal/action"
	"github.com/gabapcia/txtracker/internal/txtracker"
)

// Run initializes and executes the txtracker CLI application.
//
// It registers all available commands, including:
//
//   - `start`: Resumes pending transactions and keeps tracking them.
//   - `submit`: Executes an action and follows the resulting transaction.
//   - `list`: Prints the tracked transactions, most recent first.
//   - `status`: Prints (or follows) a single transaction.
//   - `export` / `import`: Dump and restore the tracker state.
//
// executor is the configuration captured with every submitted transaction.
// visibility is switched off while the long-running `start` command runs and
// on for every interactive command.
func Run(ctx context.Context, tracker txtracker.Service, executor action.ExecutorConfig, visibility *txtracker.VisibilitySwitch) error {
	app := &cli.Command{
		EnableShellCompletion: true,
		Name:                  "txtracker",
		Description:           "Command-line interface for submitting and tracking pool transactions.",
		Usage:                 "txtracker [command] [flags]",
		Commands: []*cli.Command{
			startTrackerCommand(tracker, visibility),
			submitTransactionCommand(tracker, executor, visibility),
			listTransactionsCommand(tracker, visibility),
			transactionStatusCommand(tracker, visibility),
			exportSnapshotCommand(tracker),
			importSnapshotCommand(tracker),
		},
	}

	return app.Run(ctx, os.Args)
}
