package cart

import (
	"storefront/internal/model"
	"storefront/internal/pricing"

	"github.com/google/uuid"
)

// ActionKind identifies a destructive cart action awaiting confirmation.
type ActionKind string

const (
	ActionRemove ActionKind = "remove"
	ActionClear  ActionKind = "clear"
)

// PendingAction is a remove or clear that has been proposed but not yet
// confirmed.
type PendingAction struct {
	Token  string     `json:"token"`
	Kind   ActionKind `json:"kind"`
	LineID string     `json:"lineId,omitempty"`
}

// View is the derived state of a user's cart.
type View struct {
	Lines   []model.DerivedCartLine `json:"lines"`
	Stock   model.StockLimits       `json:"stock"`
	Totals  model.CartTotals        `json:"totals"`
	Pending []PendingAction         `json:"pending"`
}

// emptyView returns a view with no lines and zero totals.
func emptyView(rules pricing.Rules) *View {
	return &View{
		Lines:   []model.DerivedCartLine{},
		Stock:   model.StockLimits{},
		Totals:  rules.Compute(nil),
		Pending: []PendingAction{},
	}
}

// Clone returns a deep copy of the view.
func (v *View) Clone() *View {
	out := &View{
		Lines:   make([]model.DerivedCartLine, len(v.Lines)),
		Stock:   make(model.StockLimits, len(v.Stock)),
		Totals:  v.Totals,
		Pending: make([]PendingAction, len(v.Pending)),
	}
	copy(out.Lines, v.Lines)
	copy(out.Pending, v.Pending)
	for k, n := range v.Stock {
		out.Stock[k] = n
	}
	return out
}

// Line returns the index of the line with the given cart-line id, or -1.
func (v *View) Line(lineID string) int {
	for i, l := range v.Lines {
		if l.ID == lineID {
			return i
		}
	}
	return -1
}

// IsEmpty reports whether the cart has no lines.
func (v *View) IsEmpty() bool {
	return len(v.Lines) == 0
}

// ProposeRemove registers a removal of lineID that must be confirmed before
// it is sent.
func (v *View) ProposeRemove(lineID string) (PendingAction, error) {
	if v.Line(lineID) < 0 {
		return PendingAction{}, model.ErrLineNotFound
	}
	action := PendingAction{Token: uuid.NewString(), Kind: ActionRemove, LineID: lineID}
	v.Pending = append(v.Pending, action)
	return action, nil
}

// ProposeClear registers a clear of the whole cart that must be confirmed
// before it is sent.
func (v *View) ProposeClear() (PendingAction, error) {
	if v.IsEmpty() {
		return PendingAction{}, model.ErrEmptyCart
	}
	action := PendingAction{Token: uuid.NewString(), Kind: ActionClear}
	v.Pending = append(v.Pending, action)
	return action, nil
}

// Dismiss drops a pending action without executing it.
func (v *View) Dismiss(token string) error {
	for i, p := range v.Pending {
		if p.Token == token {
			v.Pending = append(v.Pending[:i:i], v.Pending[i+1:]...)
			return nil
		}
	}
	return model.ErrUnknownConfirmation
}

// Lookup finds a pending action by token.
func (v *View) Lookup(token string) (PendingAction, bool) {
	for _, p := range v.Pending {
		if p.Token == token {
			return p, true
		}
	}
	return PendingAction{}, false
}

// retainPending keeps pending actions that still refer to existing lines.
// Removals of lines that disappeared are dropped, as are clears of an empty
// cart.
func (v *View) retainPending(previous []PendingAction) {
	kept := make([]PendingAction, 0, len(previous))
	for _, p := range previous {
		switch p.Kind {
		case ActionRemove:
			if v.Line(p.LineID) < 0 {
				continue
			}
		case ActionClear:
			if v.IsEmpty() {
				continue
			}
		}
		kept = append(kept, p)
	}
	v.Pending = kept
}

// recompute derives totals from the full line set.
func (v *View) recompute(rules pricing.Rules) {
	v.Totals = rules.Compute(v.Lines)
}
