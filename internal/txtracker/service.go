// Package txtracker submits externally executed transactions and tracks them
// through unconfirmed, pending and a terminal status, exposing their live
// state to observers and a display tray.
package txtracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gabapcia/txtracker/internal/action"
	"github.com/gabapcia/txtracker/internal/pkg/logger"
	"github.com/gabapcia/txtracker/internal/pkg/telemetry"
	"github.com/gabapcia/txtracker/internal/pkg/types"
	"github.com/gabapcia/txtracker/internal/txstore"
)

var (
	ErrServiceAlreadyStarted = errors.New("service already started")
	ErrServiceNotStarted     = errors.New("service not started")

	// ErrActionRejected wraps failures of the action itself: the session
	// could not be opened, the handler returned an error or reported failure.
	ErrActionRejected = errors.New("action rejected")

	// ErrConfirmationFailed is the failure of a broadcast transaction whose
	// receipt does not carry the success status.
	ErrConfirmationFailed = errors.New("transaction confirmation failed")

	ErrRecordNotFound      = errors.New("transaction record not found")
	ErrObserverClosed      = errors.New("observer closed")
	ErrObserverNotAttached = errors.New("observer not attached")
)

type Service interface {
	// Start loads persisted records and resumes the confirmation of every
	// pending transaction.
	Start(ctx context.Context) error

	Submit(ctx context.Context, description string, name action.Name, ec action.Context, args ...string) (string, error)
	Observe() *Observer
	List() []TrayItem
	Get(id string) (txstore.Record, bool)

	// Hydrate merges a previously taken snapshot into the tracker.
	Hydrate(ctx context.Context, snapshot txstore.Snapshot) error
	Snapshot() txstore.Snapshot

	// Close cancels every background run and waits for them to return.
	Close()
}

type closeFunc func()

type service struct {
	mu        sync.Mutex
	isStarted bool
	closeFunc closeFunc
	runCtx    context.Context
	wg        sync.WaitGroup

	store     *txstore.Store
	registry  *action.Registry
	sessions  action.SessionProvider
	scheduler *visibilityScheduler

	recordStorage RecordStorage
	reporter      FailureReporter
	visibility    Visibility
	hideDelay     time.Duration
	explorerURL   string

	instruments instruments
}

var _ Service = (*service)(nil)

func (s *service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isStarted {
		return ErrServiceAlreadyStarted
	}

	records, err := s.recordStorage.LoadRecords(ctx)
	if err != nil {
		return fmt.Errorf("load transaction records: %w", err)
	}

	snapshot := txstore.Snapshot{
		Records:    make(map[string]txstore.Record, len(records)),
		Processing: s.store.Processing(),
	}
	for _, r := range records {
		snapshot.Records[r.ID] = r
	}
	if err := s.store.Hydrate(snapshot); err != nil {
		logger.Error(ctx, "some persisted transaction records were skipped", "error", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	scheduler := newVisibilityScheduler(s.hideDelay, s.visibility, s.hide)

	s.closeFunc = func() {
		cancel()
		scheduler.Stop()
		s.wg.Wait()
	}
	s.runCtx = ctx
	s.scheduler = scheduler
	s.isStarted = true

	s.resumeAll(ctx)

	return nil
}

// resumeAll restarts confirmation of every broadcast but unconfirmed record
// and re-arms the hide task of finished records still shown in a closed tray.
// Must be called with mu held.
func (s *service) resumeAll(ctx context.Context) {
	var resumed int
	for _, r := range s.store.Records() {
		switch {
		case r.Status == txstore.StatusPending && r.Hash != "":
			resumed++
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.process(ctx, r.ID)
			}()
		case r.Status.Terminal() && r.ShowIfClosed:
			s.scheduler.Schedule(r.ID)
		}
	}

	if resumed > 0 {
		logger.Info(ctx, "resumed pending transactions", "tx.count", resumed)
	}
}

func (s *service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeFunc != nil {
		s.closeFunc()
	}
	s.isStarted = false
	s.closeFunc = nil
}

func (s *service) Get(id string) (txstore.Record, bool) {
	return s.store.Get(id)
}

func (s *service) Snapshot() txstore.Snapshot {
	return s.store.Snapshot()
}

func (s *service) Hydrate(ctx context.Context, snapshot txstore.Snapshot) error {
	err := s.store.Hydrate(snapshot)

	for id := range snapshot.Records {
		r, ok := s.store.Get(id)
		if !ok {
			continue
		}
		if saveErr := s.recordStorage.SaveRecord(ctx, r); saveErr != nil {
			logger.Error(ctx, "failed to persist hydrated transaction record", "tx.id", id, "error", saveErr)
		}
	}

	return err
}

// merge writes to the store and mirrors the result to the record storage.
// Storage failures are logged and never fail the write.
func (s *service) merge(ctx context.Context, id string, patch txstore.Patch, preserveUpdatedAt bool) (txstore.Record, error) {
	record, err := s.store.Merge(id, patch, preserveUpdatedAt)
	if err != nil {
		return txstore.Record{}, err
	}

	if err := s.recordStorage.SaveRecord(context.WithoutCancel(ctx), record); err != nil {
		logger.Error(ctx, "failed to persist transaction record", "tx.id", id, "error", err)
	}

	return record, nil
}

// hide stops surfacing id in a closed tray without touching its ordering.
func (s *service) hide(id string) {
	ctx := logger.Derive(context.Background(), "tx.id", id)
	if _, err := s.merge(ctx, id, txstore.Patch{ShowIfClosed: types.Ptr(false)}, true); err != nil {
		logger.Error(ctx, "failed to hide transaction", "error", err)
	}
}

type config struct {
	store         *txstore.Store
	recordStorage RecordStorage
	reporter      FailureReporter
	visibility    Visibility
	hideDelay     time.Duration
	explorerURL   string
}

type Option func(*config)

// New creates a tracker dispatching actions through registry with sessions
// opened by sessions.
func New(registry *action.Registry, sessions action.SessionProvider, opts ...Option) *service {
	cfg := config{
		recordStorage: nopRecordStorage{},
		reporter:      logFailureReporter{},
		visibility:    NewVisibilitySwitch(),
		hideDelay:     DefaultHideDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.store == nil {
		cfg.store = txstore.New()
	}

	return &service{
		store:         cfg.store,
		registry:      registry,
		sessions:      sessions,
		recordStorage: cfg.recordStorage,
		reporter:      cfg.reporter,
		visibility:    cfg.visibility,
		hideDelay:     cfg.hideDelay,
		explorerURL:   cfg.explorerURL,
		instruments:   newInstruments(telemetry.Tracer("txtracker"), telemetry.Meter("txtracker")),
	}
}

// WithStore uses store instead of a fresh in-memory one.
func WithStore(store *txstore.Store) Option {
	return func(c *config) {
		c.store = store
	}
}

func WithRecordStorage(rs RecordStorage) Option {
	return func(c *config) {
		c.recordStorage = rs
	}
}

func WithFailureReporter(r FailureReporter) Option {
	return func(c *config) {
		c.reporter = r
	}
}

func WithVisibility(v Visibility) Option {
	return func(c *config) {
		c.visibility = v
	}
}

// WithHideDelay sets how long finished transactions stay visible in a closed tray.
func WithHideDelay(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.hideDelay = d
		}
	}
}

// WithExplorerURL sets the block explorer base used to build tray links.
func WithExplorerURL(u string) Option {
	return func(c *config) {
		c.explorerURL = u
	}
}
