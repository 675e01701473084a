package action

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnknownAction is returned when dispatching a name outside the closed set.
	ErrUnknownAction = errors.New("unknown action")

	// ErrMissingHandler is returned by NewRegistry when an action has no handler.
	ErrMissingHandler = errors.New("action has no handler")
)

// OutcomeStatus is the immediate result an action reports when it did not
// produce a broadcast hash.
type OutcomeStatus int

const (
	OutcomeUnknown OutcomeStatus = iota
	OutcomeSucceeded
	OutcomeFailed
)

// Outcome is what a handler returns. A non-empty Hash means the call was
// broadcast and must still be confirmed; otherwise Status is final.
type Outcome struct {
	Hash   string
	Status OutcomeStatus
}

// Handler executes one action with a live execution context and the
// arguments given at submission.
type Handler func(ctx context.Context, ec Context, args []string) (Outcome, error)

// Registry maps every action Name to its handler.
type Registry struct {
	handlers map[Name]Handler
}

// NewRegistry builds a registry and checks it is exhaustive: every Name must
// be bound, and no name outside the closed set may appear.
func NewRegistry(handlers map[Name]Handler) (*Registry, error) {
	var errs []error
	for name, h := range handlers {
		if !name.Valid() {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownAction, name))
		} else if h == nil {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingHandler, name))
		}
	}

	for _, name := range names {
		if _, ok := handlers[name]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingHandler, name))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	bound := make(map[Name]Handler, len(handlers))
	for name, h := range handlers {
		bound[name] = h
	}

	return &Registry{handlers: bound}, nil
}

// Dispatch runs the handler bound to name.
func (r *Registry) Dispatch(ctx context.Context, name Name, ec Context, args []string) (Outcome, error) {
	h, ok := r.handlers[name]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}

	return h(ctx, ec, args)
}
