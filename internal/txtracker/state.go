package txtracker

import (
	"encoding/json"
	"time"

	"github.com/gabapcia/txtracker/internal/pkg/types"
	"github.com/gabapcia/txtracker/internal/txstore"
)

// runState tracks a single processor run. It is finalized at most once, so
// the terminal write happens exactly once no matter how the run ends.
type runState struct {
	id          string
	startedAt   time.Time
	finalized   bool
	interrupted bool // the run was cancelled before reaching a terminal status
	status      txstore.Status
	result      json.RawMessage
	err         error
	finalizedAt time.Time
}

func newRunState(id string) runState {
	return runState{
		id:        id,
		startedAt: time.Now().UTC(),
	}
}

// finalizeWithSuccess marks the run succeeded. No-op once finalized.
func (s *runState) finalizeWithSuccess(result json.RawMessage) {
	if s.finalized {
		return
	}

	s.finalized = true
	s.finalizedAt = time.Now().UTC()
	s.status = txstore.StatusSucceeded
	s.result = result
	s.err = nil
}

// finalizeWithFailure marks the run failed with err. No-op once finalized.
func (s *runState) finalizeWithFailure(err error, result json.RawMessage) {
	if s.finalized {
		return
	}

	s.finalized = true
	s.finalizedAt = time.Now().UTC()
	s.status = txstore.StatusFailed
	s.result = result
	s.err = err
}

// interrupt ends the run without a terminal outcome. No-op once finalized.
func (s *runState) interrupt(err error) {
	if s.finalized {
		return
	}

	s.finalized = true
	s.interrupted = true
	s.err = err
}

// asPatch converts a finalized, non interrupted run into its terminal record update.
func (s runState) asPatch() txstore.Patch {
	patch := txstore.Patch{
		Status: types.Ptr(s.status),
		Result: s.result,
	}

	if s.status == txstore.StatusFailed {
		if reason := Classify(s.err); reason != "" {
			patch.FailedReason = types.Ptr(reason)
		}
	}

	return patch
}
