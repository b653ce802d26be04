// Package checkout drives a customer from a loaded cart to a placed order.
package checkout

import (
	"sync"

	"storefront/internal/cart"
	"storefront/internal/model"
)

// State is a step of the checkout flow.
type State string

const (
	StateLoading    State = "loading"
	StateAwaiting   State = "awaiting"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"

	// StateFailure is reported for a failed submission. The flow itself is
	// back in StateAwaiting and accepts a retry.
	StateFailure State = "failure"
)

// Redirect tells the client to leave checkout.
type Redirect string

const (
	RedirectNone   Redirect = ""
	RedirectLogin  Redirect = "login"
	RedirectBrowse Redirect = "browse"
)

// Snapshot is the client-facing state of a flow.
type Snapshot struct {
	State    State                   `json:"state"`
	Redirect Redirect                `json:"redirect,omitempty"`
	Lines    []model.DerivedCartLine `json:"lines"`
	Totals   model.CartTotals        `json:"totals"`
	OrderID  string                  `json:"orderId,omitempty"`
	Message  string                  `json:"message,omitempty"`
}

// Flow is one checkout attempt. It is safe for concurrent use; only one
// submission runs at a time.
type Flow struct {
	mu       sync.Mutex
	identity *model.Identity
	state    State
	redirect Redirect
	view     *cart.View
	orderID  string
	message  string
}

func newFlow(identity *model.Identity) *Flow {
	return &Flow{
		identity: identity,
		state:    StateLoading,
	}
}

// Identity returns the customer the flow belongs to.
func (f *Flow) Identity() *model.Identity {
	return f.identity
}

// Snapshot returns the current state.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Flow) snapshotLocked() Snapshot {
	s := Snapshot{
		State:    f.state,
		Redirect: f.redirect,
		Lines:    []model.DerivedCartLine{},
		OrderID:  f.orderID,
		Message:  f.message,
	}
	if f.view != nil {
		s.Lines = f.view.Lines
		s.Totals = f.view.Totals
	}
	return s
}

// begin moves an awaiting flow to submitting and returns the cart to submit.
// check runs before the transition; a failed check keeps the flow awaiting
// with the error as its message.
func (f *Flow) begin(check func() error) (*cart.View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateAwaiting:
	case StateSuccess:
		return nil, model.ErrCheckoutCompleted
	default:
		return nil, model.ErrCheckoutNotReady
	}

	if err := check(); err != nil {
		f.message = err.Error()
		return nil, err
	}

	f.state = StateSubmitting
	f.message = ""
	return f.view, nil
}

// succeed makes the flow terminal.
func (f *Flow) succeed(orderID string) Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state = StateSuccess
	f.orderID = orderID
	f.message = ""
	return f.snapshotLocked()
}

// fail returns the flow to awaiting and reports the failure.
func (f *Flow) fail(message string) Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state = StateAwaiting
	f.message = message
	s := f.snapshotLocked()
	s.State = StateFailure
	return s
}
