package txtracker

import (
	"context"
	"time"

	"github.com/gabapcia/txtracker/internal/action"
	"github.com/gabapcia/txtracker/internal/pkg/logger"
)

// TransactionFailure describes a transaction that ended in the failed status.
type TransactionFailure struct {
	ID          string
	Description string
	Action      action.Name
	Hash        string // empty when the call was never broadcast
	Reason      string // classified reason, empty when unknown
	Err         error
	FailedAt    time.Time
}

// FailureReporter is notified of every failed transaction. It is called
// from its own goroutine and cannot influence the stored record.
type FailureReporter interface {
	ReportFailure(ctx context.Context, failure TransactionFailure)
}

type logFailureReporter struct{}

func (logFailureReporter) ReportFailure(ctx context.Context, failure TransactionFailure) {
	logger.Error(ctx, "transaction failed",
		"tx.id", failure.ID,
		"tx.action", failure.Action,
		"tx.hash", failure.Hash,
		"tx.reason", failure.Reason,
		"error", failure.Err,
	)
}
