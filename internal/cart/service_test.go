package cart

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/model"
	"storefront/internal/pricing"
	"storefront/internal/storeapi"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCartStore is a mock implementation of storeapi.CartStore.
type MockCartStore struct {
	mock.Mock
}

func (m *MockCartStore) GetCart(ctx context.Context, email string) ([]model.CartLine, error) {
	args := m.Called(ctx, email)
	lines, _ := args.Get(0).([]model.CartLine)
	return lines, args.Error(1)
}

func (m *MockCartStore) AddLine(ctx context.Context, email string, req model.AddToCartRequest) error {
	args := m.Called(ctx, email, req)
	return args.Error(0)
}

func (m *MockCartStore) UpdateQuantity(ctx context.Context, lineID string, quantity int) error {
	args := m.Called(ctx, lineID, quantity)
	return args.Error(0)
}

func (m *MockCartStore) RemoveLine(ctx context.Context, lineID string) error {
	args := m.Called(ctx, lineID)
	return args.Error(0)
}

func (m *MockCartStore) ClearCart(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// MockCatalog is a mock implementation of storeapi.Catalog.
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) ActiveOffer(ctx context.Context, productID string) (*model.Offer, error) {
	args := m.Called(ctx, productID)
	offer, _ := args.Get(0).(*model.Offer)
	return offer, args.Error(1)
}

func (m *MockCatalog) ProductStock(ctx context.Context, productID string) (int, error) {
	args := m.Called(ctx, productID)
	return args.Int(0), args.Error(1)
}

var testIdentity = &model.Identity{Email: "ana@example.com", Name: "Ana", UserID: "5"}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func cartLine(id, productID, price string, qty int) model.CartLine {
	return model.CartLine{ID: id, ProductID: productID, Name: "Product " + productID, UnitPrice: dec(price), Quantity: qty}
}

func newTestService(store *MockCartStore, catalog *MockCatalog) Service {
	return NewService(store, catalog, Config{
		StockCeiling:     10,
		OfferConcurrency: 4,
		Rules:            pricing.DefaultRules(),
	}, zerolog.Nop())
}

// viewOf builds a derived view with the given stock limits.
func viewOf(stock model.StockLimits, lines ...model.CartLine) *View {
	v := &View{Stock: stock, Pending: []PendingAction{}}
	for _, l := range lines {
		v.Lines = append(v.Lines, pricing.Derive(l, nil))
	}
	v.recompute(pricing.DefaultRules())
	return v
}

func TestService_Load_NilIdentity(t *testing.T) {
	store := new(MockCartStore)
	catalog := new(MockCatalog)
	svc := newTestService(store, catalog)

	view, err := svc.Load(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.True(t, view.Totals.Total.IsZero())
	store.AssertNotCalled(t, "GetCart", mock.Anything, mock.Anything)
}

func TestService_Load(t *testing.T) {
	store := new(MockCartStore)
	catalog := new(MockCatalog)
	svc := newTestService(store, catalog)
	ctx := context.Background()

	lines := []model.CartLine{
		cartLine("7", "P1", "100000", 2),
		cartLine("8", "P2", "4990", 1),
		cartLine("9", "P1", "100000", 1),
	}
	store.On("GetCart", ctx, "ana@example.com").Return(lines, nil)

	catalog.On("ActiveOffer", mock.Anything, "P1").Return(&model.Offer{ProductID: "P1", DiscountPercent: dec("20")}, nil)
	catalog.On("ActiveOffer", mock.Anything, "P2").Return(nil, errors.New("offer service down"))
	catalog.On("ProductStock", ctx, "P1").Return(5, nil).Once()
	catalog.On("ProductStock", ctx, "P2").Return(0, storeapi.ErrNotFound).Once()

	view, err := svc.Load(ctx, testIdentity)

	require.NoError(t, err)
	require.Len(t, view.Lines, 3)

	// Store order is preserved.
	assert.Equal(t, "7", view.Lines[0].ID)
	assert.Equal(t, "8", view.Lines[1].ID)
	assert.Equal(t, "9", view.Lines[2].ID)

	assert.NotNil(t, view.Lines[0].ActiveOffer)
	assert.True(t, dec("80000").Equal(view.Lines[0].DisplayUnitPrice))
	assert.Nil(t, view.Lines[1].ActiveOffer, "failed offer lookup degrades to list price")
	assert.True(t, dec("4990").Equal(view.Lines[1].DisplayUnitPrice))

	assert.Equal(t, model.StockLimits{"P1": 5, "P2": 10}, view.Stock)

	// 80000*2 + 4990 + 80000 = 244990, below the free-shipping threshold.
	assert.True(t, dec("244990").Equal(view.Totals.Subtotal))
	assert.True(t, dec("10000").Equal(view.Totals.Shipping))
	assert.True(t, dec("19599").Equal(view.Totals.Taxes))
	assert.True(t, dec("274589").Equal(view.Totals.Total))

	catalog.AssertNumberOfCalls(t, "ProductStock", 2)
	catalog.AssertNumberOfCalls(t, "ActiveOffer", 3)
}

func TestService_Load_ClampsOfferAndStock(t *testing.T) {
	store := new(MockCartStore)
	catalog := new(MockCatalog)
	svc := newTestService(store, catalog)
	ctx := context.Background()

	store.On("GetCart", ctx, "ana@example.com").Return([]model.CartLine{cartLine("7", "P1", "100", 1)}, nil)
	catalog.On("ActiveOffer", mock.Anything, "P1").Return(&model.Offer{ProductID: "P1", DiscountPercent: dec("150")}, nil)
	catalog.On("ProductStock", ctx, "P1").Return(-3, nil)

	view, err := svc.Load(ctx, testIdentity)

	require.NoError(t, err)
	assert.True(t, dec("100").Equal(view.Lines[0].ActiveOffer.DiscountPercent))
	assert.True(t, view.Lines[0].DisplayUnitPrice.IsZero())
	assert.Equal(t, 0, view.Stock["P1"])
}

func TestService_Load_CartFetchFails(t *testing.T) {
	store := new(MockCartStore)
	catalog := new(MockCatalog)
	svc := newTestService(store, catalog)
	ctx := context.Background()

	apiErr := &storeapi.Error{Op: "get cart", Status: 500}
	store.On("GetCart", ctx, "ana@example.com").Return(nil, apiErr)

	view, err := svc.Load(ctx, testIdentity)

	assert.Nil(t, view)
	assert.ErrorIs(t, err, apiErr)
	catalog.AssertNotCalled(t, "ActiveOffer", mock.Anything, mock.Anything)
}

func TestService_UpdateQuantity(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		requested     int
		lineID        string
		stock         model.StockLimits
		storeErr      error
		expectApplied int
		expectWarning bool
		expectError   error
		expectCall    bool
	}{
		{
			name:          "Within stock",
			requested:     3,
			lineID:        "7",
			stock:         model.StockLimits{"P1": 5},
			expectApplied: 3,
			expectCall:    true,
		},
		{
			name:          "Clamped to stock",
			requested:     9,
			lineID:        "7",
			stock:         model.StockLimits{"P1": 5},
			expectApplied: 5,
			expectWarning: true,
			expectCall:    true,
		},
		{
			name:          "Unknown stock uses ceiling",
			requested:     25,
			lineID:        "7",
			stock:         model.StockLimits{},
			expectApplied: 10,
			expectWarning: true,
			expectCall:    true,
		},
		{
			name:        "Zero quantity rejected",
			requested:   0,
			lineID:      "7",
			stock:       model.StockLimits{"P1": 5},
			expectError: model.ErrInvalidQuantity,
		},
		{
			name:        "Negative quantity rejected",
			requested:   -2,
			lineID:      "7",
			stock:       model.StockLimits{"P1": 5},
			expectError: model.ErrInvalidQuantity,
		},
		{
			name:        "Out of stock",
			requested:   1,
			lineID:      "7",
			stock:       model.StockLimits{"P1": 0},
			expectError: model.ErrOutOfStock,
		},
		{
			name:        "Unknown line",
			requested:   1,
			lineID:      "99",
			stock:       model.StockLimits{"P1": 5},
			expectError: model.ErrLineNotFound,
		},
		{
			name:          "Store failure",
			requested:     2,
			lineID:        "7",
			stock:         model.StockLimits{"P1": 5},
			storeErr:      &storeapi.Error{Op: "update cart line", Message: "timeout"},
			expectApplied: 2,
			expectCall:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockCartStore)
			catalog := new(MockCatalog)
			svc := newTestService(store, catalog)

			view := viewOf(tt.stock, cartLine("7", "P1", "100000", 1), cartLine("8", "P2", "5000", 2))
			before := view.Clone()

			if tt.expectCall {
				store.On("UpdateQuantity", ctx, "7", tt.expectApplied).Return(tt.storeErr)
			}

			result, err := svc.UpdateQuantity(ctx, testIdentity, view, tt.lineID, tt.requested)

			assert.Equal(t, before, view, "input view must not change")

			switch {
			case tt.expectError != nil:
				assert.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, result)
				store.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything)
			case tt.storeErr != nil:
				assert.ErrorIs(t, err, tt.storeErr)
				assert.Nil(t, result)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.expectApplied, result.Applied)
				assert.Equal(t, tt.expectApplied, result.View.Lines[0].Quantity)
				assert.Equal(t, tt.expectWarning, result.Warning != "")

				expected := pricing.DefaultRules().Compute(result.View.Lines)
				assert.True(t, expected.Total.Equal(result.View.Totals.Total))
				assert.True(t, expected.Subtotal.Equal(result.View.Totals.Subtotal))
			}
			store.AssertExpectations(t)
		})
	}
}

func TestService_UpdateQuantity_RequiresIdentity(t *testing.T) {
	store := new(MockCartStore)
	svc := newTestService(store, new(MockCatalog))

	_, err := svc.UpdateQuantity(context.Background(), nil, viewOf(nil, cartLine("7", "P1", "1", 1)), "7", 2)

	assert.ErrorIs(t, err, model.ErrUnauthenticated)
}

func TestService_Confirm_RemoveOnlyLine(t *testing.T) {
	store := new(MockCartStore)
	svc := newTestService(store, new(MockCatalog))
	ctx := context.Background()

	view := viewOf(model.StockLimits{"P1": 10}, cartLine("7", "P1", "100000", 2))
	action, err := view.ProposeRemove("7")
	require.NoError(t, err)

	store.On("RemoveLine", ctx, "7").Return(nil)

	next, err := svc.Confirm(ctx, testIdentity, view, action.Token)

	require.NoError(t, err)
	assert.Empty(t, next.Lines)
	assert.Empty(t, next.Pending)
	assert.True(t, next.Totals.Subtotal.IsZero())
	assert.True(t, next.Totals.Shipping.IsZero())
	assert.True(t, next.Totals.Taxes.IsZero())
	assert.True(t, next.Totals.Total.IsZero())
	assert.Len(t, view.Lines, 1, "input view must not change")
}

func TestService_Confirm_ClearFails(t *testing.T) {
	store := new(MockCartStore)
	svc := newTestService(store, new(MockCatalog))
	ctx := context.Background()

	view := viewOf(model.StockLimits{}, cartLine("7", "P1", "100000", 2), cartLine("8", "P2", "100", 1))
	action, err := view.ProposeClear()
	require.NoError(t, err)
	before := view.Clone()

	netErr := &storeapi.Error{Op: "clear cart", Err: errors.New("connection reset")}
	store.On("ClearCart", ctx, "ana@example.com").Return(netErr)

	next, err := svc.Confirm(ctx, testIdentity, view, action.Token)

	assert.Nil(t, next)
	assert.ErrorIs(t, err, netErr)
	assert.Equal(t, before, view)
	_, stillPending := view.Lookup(action.Token)
	assert.True(t, stillPending, "failed confirmation can be retried")
}

func TestService_Confirm_Clear(t *testing.T) {
	store := new(MockCartStore)
	svc := newTestService(store, new(MockCatalog))
	ctx := context.Background()

	view := viewOf(model.StockLimits{}, cartLine("7", "P1", "100000", 2), cartLine("8", "P2", "100", 1))
	_, err := view.ProposeRemove("8")
	require.NoError(t, err)
	action, err := view.ProposeClear()
	require.NoError(t, err)

	store.On("ClearCart", ctx, "ana@example.com").Return(nil)

	next, err := svc.Confirm(ctx, testIdentity, view, action.Token)

	require.NoError(t, err)
	assert.Empty(t, next.Lines)
	assert.Empty(t, next.Pending, "removals of cleared lines are dropped")
	assert.True(t, next.Totals.Total.IsZero())
}

func TestService_Confirm_UnknownToken(t *testing.T) {
	store := new(MockCartStore)
	svc := newTestService(store, new(MockCatalog))

	view := viewOf(nil, cartLine("7", "P1", "100000", 2))

	_, err := svc.Confirm(context.Background(), testIdentity, view, "no-such-token")

	assert.ErrorIs(t, err, model.ErrUnknownConfirmation)
	store.AssertNotCalled(t, "RemoveLine", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "ClearCart", mock.Anything, mock.Anything)
}

func TestService_Add(t *testing.T) {
	ctx := context.Background()
	valid := model.AddToCartRequest{ProductID: "P1", Name: "Camisa", UnitPrice: dec("100000"), Quantity: 1}

	tests := []struct {
		name        string
		identity    *model.Identity
		req         model.AddToCartRequest
		storeErr    error
		expectError error
		expectCall  bool
	}{
		{name: "Success", identity: testIdentity, req: valid, expectCall: true},
		{name: "Unauthenticated", identity: nil, req: valid, expectError: model.ErrUnauthenticated},
		{
			name:        "Zero quantity",
			identity:    testIdentity,
			req:         model.AddToCartRequest{ProductID: "P1", UnitPrice: dec("1"), Quantity: 0},
			expectError: model.ErrInvalidQuantity,
		},
		{
			name:        "Negative price",
			identity:    testIdentity,
			req:         model.AddToCartRequest{ProductID: "P1", UnitPrice: dec("-1"), Quantity: 1},
			expectError: model.ErrInvalidPrice,
		},
		{
			name:       "Store failure",
			identity:   testIdentity,
			req:        valid,
			storeErr:   errors.New("boom"),
			expectCall: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockCartStore)
			svc := newTestService(store, new(MockCatalog))
			if tt.expectCall {
				store.On("AddLine", ctx, "ana@example.com", tt.req).Return(tt.storeErr)
			}

			err := svc.Add(ctx, tt.identity, tt.req)

			switch {
			case tt.expectError != nil:
				assert.ErrorIs(t, err, tt.expectError)
				store.AssertNotCalled(t, "AddLine", mock.Anything, mock.Anything, mock.Anything)
			case tt.storeErr != nil:
				assert.ErrorIs(t, err, tt.storeErr)
			default:
				assert.NoError(t, err)
			}
			store.AssertExpectations(t)
		})
	}
}

func TestService_Add_MissingProduct(t *testing.T) {
	svc := newTestService(new(MockCartStore), new(MockCatalog))

	err := svc.Add(context.Background(), testIdentity, model.AddToCartRequest{Quantity: 1})

	var domainErr *model.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, model.ErrCodeMissingField, domainErr.Code)
}
