package txtracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gabapcia/txtracker/internal/action"
	"github.com/gabapcia/txtracker/internal/pkg/logger"
	"github.com/gabapcia/txtracker/internal/pkg/types"
	"github.com/gabapcia/txtracker/internal/pkg/validator"
	"github.com/gabapcia/txtracker/internal/txstore"
)

// recordIDSuffixLength is the number of random hex characters appended to
// the submission time in a record id.
const recordIDSuffixLength = 12

// submission is the validated input of Submit.
type submission struct {
	Description string                `validate:"required"`
	Action      string                `validate:"required,tx_action"`
	Config      action.ExecutorConfig `validate:"required"`
}

// newRecordID returns "<unix millis>-<random hex>". Ids are unique for all
// practical purposes but carry no cryptographic guarantee.
func newRecordID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:recordIDSuffixLength]
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}

// Submit records a new unconfirmed transaction and starts processing it in
// the background. Only the serializable configuration of ec is kept; ec's
// session is never stored nor reused. The returned id can be observed
// right away. Submit only fails on invalid input or when the tracker is
// not running; the outcome of the action itself is reported through the record.
func (s *service) Submit(ctx context.Context, description string, name action.Name, ec action.Context, args ...string) (string, error) {
	if err := validator.Validate(submission{
		Description: description,
		Action:      string(name),
		Config:      ec.Config,
	}); err != nil {
		return "", err
	}

	s.mu.Lock()
	if !s.isStarted {
		s.mu.Unlock()
		return "", ErrServiceNotStarted
	}
	runCtx := s.runCtx
	s.wg.Add(1)
	s.mu.Unlock()

	id := newRecordID(time.Now())
	ctx = logger.Derive(ctx, "tx.id", id, "tx.action", name)

	cfg := ec.Config.Clone()
	args = append([]string{}, args...)
	if _, err := s.merge(ctx, id, txstore.Patch{
		Description:    types.Ptr(description),
		ActionName:     types.Ptr(name),
		ActionArgs:     args,
		ExecutorConfig: &cfg,
		Status:         types.Ptr(txstore.StatusUnconfirmed),
		ShowIfClosed:   types.Ptr(true),
	}, false); err != nil {
		s.wg.Done()
		return "", err
	}

	logger.Info(ctx, "transaction submitted", "tx.description", description)

	go func() {
		defer s.wg.Done()
		s.process(runCtx, id)
	}()

	return id, nil
}
