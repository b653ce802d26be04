package cart

import (
	"testing"

	"storefront/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestView_CloneIsIndependent(t *testing.T) {
	view := viewOf(model.StockLimits{"P1": 3}, cartLine("7", "P1", "100", 1))
	_, err := view.ProposeRemove("7")
	require.NoError(t, err)

	clone := view.Clone()
	clone.Lines[0].Quantity = 9
	clone.Stock["P1"] = 0
	clone.Pending = clone.Pending[:0]

	assert.Equal(t, 1, view.Lines[0].Quantity)
	assert.Equal(t, 3, view.Stock["P1"])
	assert.Len(t, view.Pending, 1)
}

func TestView_Proposals(t *testing.T) {
	view := viewOf(model.StockLimits{}, cartLine("7", "P1", "100", 1), cartLine("8", "P2", "50", 2))

	first, err := view.ProposeRemove("7")
	require.NoError(t, err)
	second, err := view.ProposeRemove("7")
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)
	assert.Equal(t, ActionRemove, first.Kind)
	assert.Equal(t, "7", first.LineID)

	_, err = view.ProposeRemove("missing")
	assert.ErrorIs(t, err, model.ErrLineNotFound)

	require.NoError(t, view.Dismiss(first.Token))
	_, found := view.Lookup(first.Token)
	assert.False(t, found)
	_, found = view.Lookup(second.Token)
	assert.True(t, found)

	assert.ErrorIs(t, view.Dismiss(first.Token), model.ErrUnknownConfirmation)
}

func TestView_ProposeClearOnEmptyCart(t *testing.T) {
	view := viewOf(model.StockLimits{})

	_, err := view.ProposeClear()

	assert.ErrorIs(t, err, model.ErrEmptyCart)
}

func TestView_RetainPending(t *testing.T) {
	view := viewOf(model.StockLimits{}, cartLine("8", "P2", "50", 2))
	previous := []PendingAction{
		{Token: "a", Kind: ActionRemove, LineID: "7"},
		{Token: "b", Kind: ActionRemove, LineID: "8"},
		{Token: "c", Kind: ActionClear},
	}

	view.retainPending(previous)

	require.Len(t, view.Pending, 2)
	assert.Equal(t, "b", view.Pending[0].Token)
	assert.Equal(t, "c", view.Pending[1].Token)
}
