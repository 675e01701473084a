package txtracker

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gabapcia/txtracker/internal/pkg/x/chflow"
	"github.com/gabapcia/txtracker/internal/txstore"
)

// Observer follows a single transaction record. It is unattached until
// Attach is called; every Observer is independent of the others, even when
// attached to the same id.
type Observer struct {
	store *txstore.Store

	mu     sync.Mutex
	id     string
	sub    *txstore.Subscription
	closed bool
}

// NewObserver returns an unattached Observer reading from store.
func NewObserver(store *txstore.Store) *Observer {
	return &Observer{store: store}
}

// Observe returns a new, unattached Observer.
func (s *service) Observe() *Observer {
	return NewObserver(s.store)
}

// Attach starts following id, replacing any previously attached id.
func (o *Observer) Attach(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrObserverClosed
	}

	if o.sub != nil {
		o.sub.Close()
	}

	o.id = id
	o.sub = o.store.Subscribe(id)
	return nil
}

func (o *Observer) attachedID() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.id, o.sub != nil
}

// Record returns the current value of the attached record.
func (o *Observer) Record() (txstore.Record, bool) {
	id, ok := o.attachedID()
	if !ok {
		return txstore.Record{}, false
	}

	return o.store.Get(id)
}

// Status returns the status of the attached record. It reports false until
// an id is attached and the record exists.
func (o *Observer) Status() (txstore.Status, bool) {
	r, ok := o.Record()
	if !ok {
		return "", false
	}
	return r.Status, true
}

// Result returns the result payload of the attached record, if any.
func (o *Observer) Result() json.RawMessage {
	r, _ := o.Record()
	return r.Result
}

// Updates returns the change feed of the attached record. The first value is
// the record as it was when Attach was called. The channel is closed when the
// Observer is closed or attached to another id. It is nil before Attach.
func (o *Observer) Updates() <-chan txstore.Record {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sub == nil {
		return nil
	}
	return o.sub.C()
}

// Wait blocks until the attached record reaches a terminal status or ctx is done.
func (o *Observer) Wait(ctx context.Context) (txstore.Record, error) {
	id, ok := o.attachedID()
	if !ok {
		return txstore.Record{}, ErrObserverNotAttached
	}

	sub := o.store.Subscribe(id)
	defer sub.Close()

	for {
		r, ok := chflow.Receive(ctx, sub.C())
		if !ok {
			return txstore.Record{}, context.Cause(ctx)
		}

		if r.Status.Terminal() {
			return r, nil
		}
	}
}

// Close detaches the Observer. It cannot be attached again.
func (o *Observer) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sub != nil {
		o.sub.Close()
		o.sub = nil
	}
	o.closed = true
}
