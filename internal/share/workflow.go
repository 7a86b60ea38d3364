// Package share drives the two-step sharing workflow: resolve the
// recipient email to an identity, then request the grant. The engine
// never mutates document state itself; on success it signals the
// completion hook and the reconciler refetches the collection.
package share

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"secureshare/internal/api"
	"secureshare/internal/model"
)

// State is the workflow's position in
// Idle → ResolvingRecipient → Granting → Succeeded | Failed.
type State int

const (
	Idle State = iota
	ResolvingRecipient
	Granting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case ResolvingRecipient:
		return "resolving"
	case Granting:
		return "granting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

var (
	// ErrEmptyRecipient rejects a submit before any request is issued.
	ErrEmptyRecipient = errors.New("recipient email is required")

	// ErrInvalidLevel rejects an unknown access level before any request.
	ErrInvalidLevel = errors.New("access level must be view or edit")

	// ErrShareInFlight rejects a submit while a run has not reached a
	// terminal state. The upstream behavior here was undefined; this
	// engine disallows re-entrant submission outright.
	ErrShareInFlight = errors.New("a share request is already in flight")

	// ErrNotTerminal rejects a Reset while a run is in flight.
	ErrNotTerminal = errors.New("workflow is still in flight")
)

// Workflow runs one share grant at a time against a target document.
// Safe for concurrent use; only one run may be in flight.
type Workflow struct {
	store api.Store

	mu             sync.Mutex
	state          State
	failure        error
	onSuccess      func(context.Context)
	onUnauthorized func()
}

// New builds an idle workflow over the given store.
func New(store api.Store) *Workflow {
	return &Workflow{store: store}
}

// OnSuccess registers the completion hook, invoked synchronously after
// a run reaches Succeeded. The reconciler's full refetch belongs here.
func (w *Workflow) OnSuccess(fn func(context.Context)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onSuccess = fn
}

// OnUnauthorized registers the teardown hook, invoked synchronously
// when a run fails with api.ErrUnauthorized. A rejected credential is
// terminal for the whole session, so session logout belongs here, the
// same way it does on the reconciler.
func (w *Workflow) OnUnauthorized(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onUnauthorized = fn
}

// State returns the current workflow state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Failure returns the error a Failed run ended with, nil otherwise.
// Match reasons with errors.Is against api.ErrRecipientNotFound and
// api.ErrGrantRejected.
func (w *Workflow) Failure() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failure
}

// Reset returns a terminal workflow to Idle for a retry.
func (w *Workflow) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == ResolvingRecipient || w.state == Granting {
		return ErrNotTerminal
	}
	w.state = Idle
	w.failure = nil
	return nil
}

// Submit validates the request, resolves the recipient, and issues the
// grant. Validation failures leave the state Idle with no network call.
// Cancelling ctx mid-flight abandons the run: the outcome is discarded,
// the state goes Failed with the context error, and the completion hook
// is not invoked.
func (w *Workflow) Submit(ctx context.Context, docID, recipientEmail string, level model.AccessLevel) error {
	email := strings.TrimSpace(recipientEmail)

	w.mu.Lock()
	if w.state == ResolvingRecipient || w.state == Granting {
		w.mu.Unlock()
		return ErrShareInFlight
	}
	if email == "" {
		w.mu.Unlock()
		return ErrEmptyRecipient
	}
	if !level.Valid() {
		w.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrInvalidLevel, level)
	}
	w.state = ResolvingRecipient
	w.failure = nil
	w.mu.Unlock()

	recipient, err := w.store.ResolveUserByEmail(ctx, email)
	if err != nil {
		return w.fail(err)
	}
	if err := ctx.Err(); err != nil {
		return w.fail(err)
	}

	w.setState(Granting)

	if err := w.store.ShareDocument(ctx, docID, recipient.ID, level); err != nil {
		return w.fail(err)
	}
	if err := ctx.Err(); err != nil {
		return w.fail(err)
	}

	w.mu.Lock()
	w.state = Succeeded
	hook := w.onSuccess
	w.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
	return nil
}

func (w *Workflow) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *Workflow) fail(err error) error {
	w.mu.Lock()
	w.state = Failed
	w.failure = err
	hook := w.onUnauthorized
	w.mu.Unlock()

	if hook != nil && errors.Is(err, api.ErrUnauthorized) {
		hook()
	}
	return err
}
