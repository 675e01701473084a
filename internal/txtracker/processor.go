package txtracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/gabapcia/txtracker/internal/action"
	"github.com/gabapcia/txtracker/internal/pkg/logger"
	"github.com/gabapcia/txtracker/internal/pkg/types"
	"github.com/gabapcia/txtracker/internal/txstore"
)

const processSpanName = "txtracker.process"

// instruments groups the OpenTelemetry instruments updated by processor runs.
type instruments struct {
	tracer       trace.Tracer
	transactions metric.Int64Counter
	duration     metric.Float64Histogram
}

func newInstruments(tracer trace.Tracer, meter metric.Meter) instruments {
	transactions, err := meter.Int64Counter("txtracker.transactions",
		metric.WithDescription("Transactions that reached a terminal status"),
	)
	if err != nil {
		logger.Warn(context.Background(), "failed to create transactions counter", "error", err)
	}

	duration, err := meter.Float64Histogram("txtracker.processing.duration",
		metric.WithDescription("Time from processor entry to terminal status"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn(context.Background(), "failed to create processing duration histogram", "error", err)
	}

	return instruments{
		tracer:       tracer,
		transactions: transactions,
		duration:     duration,
	}
}

// process drives the record at id from its current status to a terminal one.
// Unconfirmed records are executed; pending records with a hash only wait
// for their receipt. It never returns an error: every failure is absorbed
// into the record.
func (s *service) process(ctx context.Context, id string) {
	ctx = logger.Derive(ctx, "tx.id", id)
	ctx, span := s.instruments.tracer.Start(ctx, processSpanName,
		trace.WithAttributes(attribute.String("tx.id", id)),
	)
	defer span.End()

	s.store.SetProcessing(true)
	defer s.store.SetProcessing(false)

	state := newRunState(id)
	defer func() {
		if r := recover(); r != nil {
			state.finalizeWithFailure(fmt.Errorf("%w: panic: %v", ErrActionRejected, r), nil)
		}
		s.finish(ctx, span, &state)
	}()

	record, ok := s.store.Get(id)
	if !ok {
		state.interrupt(fmt.Errorf("%w: %s", ErrRecordNotFound, id))
		return
	}

	span.SetAttributes(attribute.String("tx.action", record.ActionName.String()))

	switch {
	case record.Status == txstore.StatusUnconfirmed:
		s.execute(ctx, &state, record)
	case record.Status == txstore.StatusPending && record.Hash != "":
		s.resume(ctx, &state, record)
	default:
		state.interrupt(fmt.Errorf("record %s is %s and cannot be processed", id, record.Status))
	}
}

// session opens a fresh execution context from the record's stored
// configuration. The caller's original session is never reused.
func (s *service) session(ctx context.Context, record txstore.Record) (action.Context, error) {
	session, err := s.sessions.Session(ctx, record.ExecutorConfig)
	if err != nil {
		return action.Context{}, fmt.Errorf("open session: %w", err)
	}

	return action.Context{Config: record.ExecutorConfig, Session: session}, nil
}

// execute invokes the record's action and follows its outcome.
func (s *service) execute(ctx context.Context, state *runState, record txstore.Record) {
	ec, err := s.session(ctx, record)
	if err != nil {
		s.fail(ctx, state, fmt.Errorf("%w: %w", ErrActionRejected, err), nil)
		return
	}

	outcome, err := s.registry.Dispatch(ctx, record.ActionName, ec, record.ActionArgs)
	if err != nil {
		s.fail(ctx, state, fmt.Errorf("%w: %w", ErrActionRejected, err), nil)
		return
	}

	switch {
	case outcome.Hash != "":
		s.write(ctx, record.ID, txstore.Patch{
			Status: types.Ptr(txstore.StatusPending),
			Hash:   types.Ptr(outcome.Hash),
		})
		s.confirm(ctx, state, ec.Session, outcome.Hash)
	case outcome.Status == action.OutcomeSucceeded:
		state.finalizeWithSuccess(nil)
	default:
		state.finalizeWithFailure(ErrActionRejected, nil)
	}
}

// resume waits for the receipt of a record that was broadcast before a restart.
func (s *service) resume(ctx context.Context, state *runState, record txstore.Record) {
	logger.Info(ctx, "resuming transaction confirmation", "tx.hash", record.Hash)

	ec, err := s.session(ctx, record)
	if err != nil {
		s.fail(ctx, state, err, nil)
		return
	}

	s.confirm(ctx, state, ec.Session, record.Hash)
}

// confirm blocks until the receipt of hash is known and finalizes the run from it.
func (s *service) confirm(ctx context.Context, state *runState, session action.Session, hash string) {
	receipt, err := session.WaitForReceipt(ctx, hash)
	if err != nil {
		s.fail(ctx, state, fmt.Errorf("wait for receipt of %s: %w", hash, err), nil)
		return
	}

	result, err := json.Marshal(receipt)
	if err != nil {
		s.fail(ctx, state, fmt.Errorf("encode receipt of %s: %w", hash, err), nil)
		return
	}

	if receipt.Succeeded() {
		state.finalizeWithSuccess(result)
		return
	}

	state.finalizeWithFailure(fmt.Errorf("%w: %s has status %q", ErrConfirmationFailed, hash, receipt.Status), result)
}

// fail finalizes the run as failed unless the tracker is shutting down, in
// which case the record is left as is so it can be resumed.
func (s *service) fail(ctx context.Context, state *runState, err error, result json.RawMessage) {
	if ctx.Err() != nil {
		state.interrupt(errors.Join(err, context.Cause(ctx)))
		return
	}

	state.finalizeWithFailure(err, result)
}

// finish performs the terminal write, reports failures and schedules the hide task.
func (s *service) finish(ctx context.Context, span trace.Span, state *runState) {
	if state.interrupted {
		logger.Warn(ctx, "transaction processing interrupted", "error", state.err)
		span.SetStatus(codes.Unset, "interrupted")
		return
	}

	if !state.finalized {
		return
	}

	record, ok := s.write(ctx, state.id, state.asPatch())
	if !ok {
		span.SetStatus(codes.Error, "terminal write rejected")
		return
	}

	attrs := metric.WithAttributes(attribute.String("status", string(state.status)))
	if s.instruments.transactions != nil {
		s.instruments.transactions.Add(ctx, 1, attrs)
	}
	if s.instruments.duration != nil {
		s.instruments.duration.Record(ctx, state.finalizedAt.Sub(state.startedAt).Seconds(), attrs)
	}

	span.SetAttributes(attribute.String("tx.status", string(state.status)))

	if state.status == txstore.StatusFailed {
		span.RecordError(state.err)
		span.SetStatus(codes.Error, "transaction failed")

		failure := TransactionFailure{
			ID:          record.ID,
			Description: record.Description,
			Action:      record.ActionName,
			Hash:        record.Hash,
			Reason:      record.FailedReason,
			Err:         state.err,
			FailedAt:    state.finalizedAt,
		}
		go s.reporter.ReportFailure(context.WithoutCancel(ctx), failure)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	logger.Info(ctx, "transaction finished",
		"tx.status", state.status,
		"tx.hash", record.Hash,
		"tx.duration", state.finalizedAt.Sub(state.startedAt).String(),
	)

	s.scheduler.Schedule(state.id)
}

// write applies a processor update to the record at id. Any pending hide
// task for the id is cancelled first.
func (s *service) write(ctx context.Context, id string, patch txstore.Patch) (txstore.Record, bool) {
	s.scheduler.Cancel(id)

	record, err := s.merge(ctx, id, patch, false)
	if err != nil {
		logger.Error(ctx, "failed to update transaction record", "error", err)
		return txstore.Record{}, false
	}

	return record, true
}
