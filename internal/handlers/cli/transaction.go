package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/gabapcia/txtracker/internal/action"
	"github.com/gabapcia/txtracker/internal/pkg/x/chflow"
	"github.com/gabapcia/txtracker/internal/txstore"
	"github.com/gabapcia/txtracker/internal/txtracker"
)

// ErrTransactionFailed is returned by commands following a transaction that
// ended in the failed status.
var ErrTransactionFailed = errors.New("transaction failed")

// submitTransactionCommand returns a CLI command that executes an action and
// follows the resulting transaction.
//
// Usage example:
//
//	txtracker submit --action investJunior --description "Invest 100 DAI" --arg 100000000000000000000
//
// By default the command returns once the transaction is final. With
// --detach it returns as soon as the transaction is broadcast; its
// confirmation is resumed by `txtracker start`.
func submitTransactionCommand(tracker txtracker.Service, executor action.ExecutorConfig, visibility *txtracker.VisibilitySwitch) *cli.Command {
	return &cli.Command{
		Name:        "submit",
		Description: "Executes a pool action and tracks the resulting transaction.",
		Usage:       "Submits a transaction. Must provide both action and description.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "action",
				Usage:    fmt.Sprintf("Action to execute (one of %v)", action.Names()),
				Required: true,
			},
			&cli.StringFlag{
				Name:     "description",
				Usage:    "Human readable description shown in the tray",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "arg",
				Usage: "Action argument, repeat for each positional argument",
			},
			&cli.BoolFlag{
				Name:  "detach",
				Usage: "Return once the transaction is broadcast instead of waiting for its confirmation",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			visibility.SetVisible(true)

			return withTracker(ctx, tracker, func() error {
				id, err := tracker.Submit(ctx,
					c.String("description"),
					action.Name(c.String("action")),
					action.Context{Config: executor},
					c.StringSlice("arg")...,
				)
				if err != nil {
					return err
				}

				observer := tracker.Observe()
				defer observer.Close()

				if err := observer.Attach(id); err != nil {
					return err
				}

				var record txstore.Record
				if c.Bool("detach") {
					record, err = waitBroadcast(ctx, observer)
				} else {
					record, err = observer.Wait(ctx)
				}
				if err != nil {
					return fmt.Errorf("wait for transaction %s: %w", id, err)
				}

				if err := writeJSON(c.Root().Writer, record); err != nil {
					return err
				}

				return failureOf(record)
			})
		},
	}
}

// waitBroadcast blocks until the observed record leaves the unconfirmed status.
func waitBroadcast(ctx context.Context, observer *txtracker.Observer) (txstore.Record, error) {
	updates := observer.Updates()
	for {
		record, ok := chflow.Receive(ctx, updates)
		if !ok {
			if err := context.Cause(ctx); err != nil {
				return txstore.Record{}, err
			}
			return txstore.Record{}, txtracker.ErrObserverClosed
		}

		if record.Status != txstore.StatusUnconfirmed {
			return record, nil
		}
	}
}

func failureOf(record txstore.Record) error {
	if record.Status != txstore.StatusFailed {
		return nil
	}

	reason := record.FailedReason
	if reason == "" {
		reason = txtracker.GenericFailureReason
	}
	return fmt.Errorf("%w: %s: %s", ErrTransactionFailed, record.ID, reason)
}

// listTransactionsCommand returns a CLI command printing one JSON line per
// tracked transaction, most recently updated first.
//
// Usage example:
//
//	txtracker list --closed
func listTransactionsCommand(tracker txtracker.Service, visibility *txtracker.VisibilitySwitch) *cli.Command {
	return &cli.Command{
		Name:        "list",
		Description: "Lists the tracked transactions, most recently updated first.",
		Usage:       "Prints the transaction tray.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "closed",
				Usage: "Only list the transactions a closed tray still surfaces",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			visibility.SetVisible(true)

			return withTracker(ctx, tracker, func() error {
				for _, item := range tracker.List() {
					if c.Bool("closed") && !item.ShowIfClosed {
						continue
					}

					item.FailedReason = item.Reason()
					if err := writeJSON(c.Root().Writer, item); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

// transactionStatusCommand returns a CLI command printing a single
// transaction. With --watch every change is printed until it is final.
//
// Usage example:
//
//	txtracker status --id 1700000000000-1a2b3c4d5e6f --watch
func transactionStatusCommand(tracker txtracker.Service, visibility *txtracker.VisibilitySwitch) *cli.Command {
	return &cli.Command{
		Name:        "status",
		Description: "Shows the current state of a tracked transaction.",
		Usage:       "Prints a transaction record. Must provide the transaction id.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Transaction id returned by submit",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Keep printing updates until the transaction is final",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			id := c.String("id")
			visibility.SetVisible(true)

			return withTracker(ctx, tracker, func() error {
				record, ok := tracker.Get(id)
				if !ok {
					return fmt.Errorf("%w: %s", txtracker.ErrRecordNotFound, id)
				}

				if !c.Bool("watch") || record.Status.Terminal() {
					return writeJSON(c.Root().Writer, record)
				}

				observer := tracker.Observe()
				defer observer.Close()

				if err := observer.Attach(id); err != nil {
					return err
				}

				updates := observer.Updates()
				for {
					record, ok := chflow.Receive(ctx, updates)
					if !ok {
						return context.Cause(ctx)
					}

					if err := writeJSON(c.Root().Writer, record); err != nil {
						return err
					}

					if record.Status.Terminal() {
						return failureOf(record)
					}
				}
			})
		},
	}
}
