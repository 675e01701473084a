// Package txstore holds the tracked transaction records: a keyed, concurrency
// safe collection with merge updates, per record change feeds and whole state
// snapshot and hydration.
package txstore

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gabapcia/txtracker/internal/pkg/types"
	"github.com/gabapcia/txtracker/internal/pkg/x/chflow"
)

var (
	// ErrInvalidTransition is returned when a merge would move a record's
	// status backwards or out of a terminal status, or revise a terminal outcome.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrImmutableField is returned when a merge tries to change a field that
	// is fixed once the record exists.
	ErrImmutableField = errors.New("field is immutable")

	// ErrInvalidRecord is returned by Merge and Hydrate for records that
	// cannot be stored.
	ErrInvalidRecord = errors.New("invalid record")
)

// subscriptionBufferSize bounds how many unread updates a subscriber may lag behind.
const subscriptionBufferSize = 32

// Store is the single source of truth for transaction records. It is safe
// for concurrent use.
type Store struct {
	mu         sync.RWMutex
	records    map[string]Record
	version    uint64
	processing bool

	subscriptions types.DefaultMap[string, types.Set[*Subscription]]

	now func() time.Time
}

type config struct {
	now func() time.Time
}

type Option func(*config)

// WithClock overrides the clock used to stamp UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	cfg := config{
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Store{
		records: make(map[string]Record),
		subscriptions: types.NewDefaultMap[string](func() types.Set[*Subscription] {
			return types.NewSet[*Subscription]()
		}),
		now: cfg.now,
	}
}

// Merge upserts patch into the record at id, creating it when absent. Unless
// preserveUpdatedAt is set, the record's UpdatedAt is refreshed and it gets
// the next store-wide Version. The stored record is returned.
func (s *Store) Merge(id string, patch Patch, preserveUpdatedAt bool) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("%w: empty id", ErrInvalidRecord)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.records[id]
	if !exists {
		current = Record{ID: id, Status: StatusUnconfirmed}
	}

	next, err := apply(current, patch, exists)
	if err != nil {
		return Record{}, fmt.Errorf("record %s: %w", id, err)
	}

	if !preserveUpdatedAt {
		s.version++
		next.Version = s.version
		next.UpdatedAt = s.now()
	}

	s.records[id] = next
	s.publish(next)

	return next.clone(), nil
}

// apply returns current with patch applied, enforcing the record invariants.
func apply(current Record, patch Patch, exists bool) (Record, error) {
	next := current.clone()
	terminal := exists && current.Status.Terminal()

	if exists {
		if patch.ActionName != nil && *patch.ActionName != current.ActionName {
			return Record{}, fmt.Errorf("%w: actionName", ErrImmutableField)
		}
		if patch.ExecutorConfig != nil {
			return Record{}, fmt.Errorf("%w: executorConfig", ErrImmutableField)
		}
		if patch.ActionArgs != nil && !slices.Equal(patch.ActionArgs, current.ActionArgs) {
			return Record{}, fmt.Errorf("%w: actionArgs", ErrImmutableField)
		}
	}

	if patch.Status != nil {
		if !patch.Status.Valid() {
			return Record{}, fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, *patch.Status)
		}
		if !canTransition(current.Status, *patch.Status) {
			return Record{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, *patch.Status)
		}
		next.Status = *patch.Status
	}

	if terminal {
		if patch.Result != nil && !bytes.Equal(patch.Result, current.Result) {
			return Record{}, fmt.Errorf("%w: result of a %s record", ErrInvalidTransition, current.Status)
		}
		if patch.FailedReason != nil && *patch.FailedReason != current.FailedReason {
			return Record{}, fmt.Errorf("%w: failedReason of a %s record", ErrInvalidTransition, current.Status)
		}
	}

	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.ActionName != nil {
		next.ActionName = *patch.ActionName
	}
	if patch.ActionArgs != nil {
		next.ActionArgs = slices.Clone(patch.ActionArgs)
	}
	if patch.ExecutorConfig != nil {
		next.ExecutorConfig = patch.ExecutorConfig.Clone()
	}
	if patch.Hash != nil {
		next.Hash = *patch.Hash
	}
	if patch.Result != nil {
		next.Result = slices.Clone(patch.Result)
	}
	if patch.FailedReason != nil {
		next.FailedReason = *patch.FailedReason
	}
	if patch.ShowIfClosed != nil {
		next.ShowIfClosed = *patch.ShowIfClosed
	}

	return next, nil
}

// Get returns a copy of the record at id.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return r.clone(), true
}

// Records returns every record, most recently updated first.
func (s *Store) Records() []Record {
	s.mu.RLock()
	records := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r.clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(records, func(a, b Record) int {
		if c := cmp.Compare(b.Version, a.Version); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return records
}

// Snapshot returns a deep copy of the whole store.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Records:    make(map[string]Record, len(s.records)),
		Processing: s.processing,
	}
	for id, r := range s.records {
		snap.Records[id] = r.clone()
	}

	return snap
}

// Hydrate merges a previously taken snapshot into the store. Hydrated records
// replace existing ones with the same id and the version sequence is advanced
// past every hydrated Version. Invalid records are skipped and reported in
// the returned error.
func (s *Store) Hydrate(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for id, r := range snap.Records {
		if r.ID == "" {
			r.ID = id
		}

		switch {
		case r.ID != id:
			errs = append(errs, fmt.Errorf("%w: key %s holds record %s", ErrInvalidRecord, id, r.ID))
			continue
		case !r.Status.Valid():
			errs = append(errs, fmt.Errorf("%w: record %s has unknown status %q", ErrInvalidRecord, id, r.Status))
			continue
		}

		r = r.clone()
		s.records[id] = r
		s.version = max(s.version, r.Version)
		s.publish(r)
	}

	s.processing = snap.Processing

	return errors.Join(errs...)
}

// SetProcessing flips the store-wide processing flag. The flag is only
// recorded; nothing in the store consults it.
func (s *Store) SetProcessing(processing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.processing = processing
}

// Processing returns the store-wide processing flag.
func (s *Store) Processing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.processing
}

// publish hands r to every subscriber of its id. Must be called with mu held.
func (s *Store) publish(r Record) {
	subs, ok := s.subscriptions.Lookup(r.ID)
	if !ok {
		return
	}

	for sub := range subs {
		chflow.Offer(sub.ch, r.clone())
	}
}
