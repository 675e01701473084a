package txstore

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/gabapcia/txtracker/internal/action"
)

// Status is the lifecycle stage of a tracked transaction.
type Status string

const (
	StatusUnconfirmed Status = "unconfirmed"
	StatusPending     Status = "pending"
	StatusSucceeded   Status = "succeeded"
	StatusFailed      Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.stage() > 0
}

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

func (s Status) stage() int {
	switch s {
	case StatusUnconfirmed:
		return 1
	case StatusPending:
		return 2
	case StatusSucceeded, StatusFailed:
		return 3
	default:
		return 0
	}
}

// canTransition reports whether a record in status from may move to status to.
// Staying in the same status is always allowed.
func canTransition(from, to Status) bool {
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	return to.stage() > from.stage()
}

// Record is the persisted state of one tracked transaction. It only holds
// plain, JSON-representable values.
type Record struct {
	ID             string                `json:"id"`
	Description    string                `json:"description"`
	ActionName     action.Name           `json:"actionName"`
	ActionArgs     []string              `json:"actionArgs"`
	ExecutorConfig action.ExecutorConfig `json:"executorConfig"`
	Hash           string                `json:"hash,omitempty"`
	Status         Status                `json:"status"`
	Result         json.RawMessage       `json:"result,omitempty"`
	FailedReason   string                `json:"failedReason,omitempty"`
	ShowIfClosed   bool                  `json:"showIfClosed"`
	UpdatedAt      time.Time             `json:"updatedAt"`
	Version        uint64                `json:"version"`
}

// clone returns a copy sharing no slices or maps with r.
func (r Record) clone() Record {
	r.ActionArgs = slices.Clone(r.ActionArgs)
	r.Result = slices.Clone(r.Result)
	r.ExecutorConfig = r.ExecutorConfig.Clone()
	return r
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Description    *string
	ActionName     *action.Name
	ActionArgs     []string
	ExecutorConfig *action.ExecutorConfig
	Hash           *string
	Status         *Status
	Result         json.RawMessage
	FailedReason   *string
	ShowIfClosed   *bool
}

// Snapshot is the whole serializable state of a Store.
type Snapshot struct {
	Records    map[string]Record `json:"records"`
	Processing bool              `json:"processing"`
}
