package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/model"
	"storefront/internal/storeapi"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductCatalog is a mock implementation of storeapi.ProductCatalog.
type MockProductCatalog struct {
	mock.Mock
}

func (m *MockProductCatalog) ActiveOffer(ctx context.Context, productID string) (*model.Offer, error) {
	args := m.Called(ctx, productID)
	offer, _ := args.Get(0).(*model.Offer)
	return offer, args.Error(1)
}

func (m *MockProductCatalog) ProductStock(ctx context.Context, productID string) (int, error) {
	args := m.Called(ctx, productID)
	return args.Int(0), args.Error(1)
}

func (m *MockProductCatalog) ListProducts(ctx context.Context, page int, categoryID string) (*model.ProductPage, error) {
	args := m.Called(ctx, page, categoryID)
	result, _ := args.Get(0).(*model.ProductPage)
	return result, args.Error(1)
}

func (m *MockProductCatalog) Categories(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	categories, _ := args.Get(0).([]model.Category)
	return categories, args.Error(1)
}

func (m *MockProductCatalog) Product(ctx context.Context, productID string) (*model.Product, error) {
	args := m.Called(ctx, productID)
	product, _ := args.Get(0).(*model.Product)
	return product, args.Error(1)
}

func (m *MockProductCatalog) SearchProducts(ctx context.Context, query string) ([]model.ProductSummary, error) {
	args := m.Called(ctx, query)
	results, _ := args.Get(0).([]model.ProductSummary)
	return results, args.Error(1)
}

func (m *MockProductCatalog) GeneralPromotion(ctx context.Context) (*model.Promotion, error) {
	args := m.Called(ctx)
	promo, _ := args.Get(0).(*model.Promotion)
	return promo, args.Error(1)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var backendDown = &storeapi.Error{Op: "test", Status: 500, Message: "backend down"}

func TestService_List(t *testing.T) {
	tests := []struct {
		name           string
		page           int
		category       string
		expectPage     int
		expectCategory string
	}{
		{name: "First page of everything", page: 1, category: "", expectPage: 1, expectCategory: ""},
		{name: "Zero page becomes first", page: 0, category: "4", expectPage: 1, expectCategory: "4"},
		{name: "Category zero means all", page: 3, category: "0", expectPage: 3, expectCategory: ""},
		{name: "Category is trimmed", page: 2, category: " 7 ", expectPage: 2, expectCategory: "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockProductCatalog)
			api.On("ListProducts", mock.Anything, tt.expectPage, tt.expectCategory).
				Return(&model.ProductPage{Page: tt.expectPage, TotalPages: 5}, nil)
			svc := NewService(api, Config{}, zerolog.Nop())

			page, err := svc.List(context.Background(), tt.page, tt.category)

			require.NoError(t, err)
			assert.Equal(t, tt.expectPage, page.Page)
			assert.Equal(t, 5, page.TotalPages)
			assert.Equal(t, tt.expectCategory, page.Category)
			assert.NotNil(t, page.Products)
			api.AssertExpectations(t)
		})
	}
}

func TestService_List_DerivesDisplayPrices(t *testing.T) {
	api := new(MockProductCatalog)
	api.On("ListProducts", mock.Anything, 1, "").Return(&model.ProductPage{
		Page:       1,
		TotalPages: 1,
		Products: []model.ProductSummary{
			{ID: "12", Name: "Mango", Price: dec("100000"), DiscountPercent: dec("20")},
			{ID: "13", Name: "Pera", Price: dec("5000")},
			{ID: "14", Name: "Uva", Price: dec("3000"), DiscountPercent: dec("150")},
		},
	}, nil)
	svc := NewService(api, Config{}, zerolog.Nop())

	page, err := svc.List(context.Background(), 1, "")

	require.NoError(t, err)
	require.Len(t, page.Products, 3)
	assert.True(t, dec("80000").Equal(page.Products[0].DisplayPrice))
	assert.True(t, dec("5000").Equal(page.Products[1].DisplayPrice))
	assert.True(t, page.Products[2].DisplayPrice.IsZero(), "discount is clamped to 100%")
}

func TestService_List_BackendFailure(t *testing.T) {
	api := new(MockProductCatalog)
	api.On("ListProducts", mock.Anything, 1, "").Return(nil, backendDown)
	svc := NewService(api, Config{}, zerolog.Nop())

	_, err := svc.List(context.Background(), 1, "")

	var apiErr *storeapi.Error
	assert.True(t, errors.As(err, &apiErr))
}

func TestService_Product(t *testing.T) {
	mango := &model.Product{ID: "12", Name: "Mango", Price: dec("100000"), Stock: 5, Brand: "Tommy"}

	tests := []struct {
		name          string
		productID     string
		setupMock     func(*MockProductCatalog)
		expectPrice   string
		expectOffer   bool
		expectStock   int
		expectError   error
		expectCode    string
		expectInStock bool
	}{
		{
			name:      "With offer",
			productID: "12",
			setupMock: func(api *MockProductCatalog) {
				api.On("Product", mock.Anything, "12").Return(mango, nil)
				api.On("ActiveOffer", mock.Anything, "12").Return(&model.Offer{ProductID: "12", DiscountPercent: dec("20")}, nil)
			},
			expectPrice:   "80000",
			expectOffer:   true,
			expectStock:   5,
			expectInStock: true,
		},
		{
			name:      "Offer lookup fails",
			productID: "12",
			setupMock: func(api *MockProductCatalog) {
				api.On("Product", mock.Anything, "12").Return(mango, nil)
				api.On("ActiveOffer", mock.Anything, "12").Return(nil, backendDown)
			},
			expectPrice:   "100000",
			expectStock:   5,
			expectInStock: true,
		},
		{
			name:      "Negative stock is sold out",
			productID: "13",
			setupMock: func(api *MockProductCatalog) {
				api.On("Product", mock.Anything, "13").Return(&model.Product{ID: "13", Price: dec("5000"), Stock: -2}, nil)
				api.On("ActiveOffer", mock.Anything, "13").Return(nil, nil)
			},
			expectPrice: "5000",
			expectStock: 0,
		},
		{
			name:      "Unknown product",
			productID: "999",
			setupMock: func(api *MockProductCatalog) {
				api.On("Product", mock.Anything, "999").Return(nil, &storeapi.Error{Op: "get product", Err: storeapi.ErrNotFound})
				api.On("ActiveOffer", mock.Anything, "999").Return(nil, nil).Maybe()
			},
			expectError: model.ErrProductNotFound,
		},
		{
			name:       "Blank id",
			productID:  " ",
			setupMock:  func(api *MockProductCatalog) {},
			expectCode: model.ErrCodeMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockProductCatalog)
			tt.setupMock(api)
			svc := NewService(api, Config{}, zerolog.Nop())

			view, err := svc.Product(context.Background(), tt.productID)

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				return
			}
			if tt.expectCode != "" {
				var domainErr *model.DomainError
				require.True(t, errors.As(err, &domainErr))
				assert.Equal(t, tt.expectCode, domainErr.Code)
				api.AssertNotCalled(t, "Product", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.True(t, dec(tt.expectPrice).Equal(view.DisplayPrice), "got %s", view.DisplayPrice)
			assert.Equal(t, tt.expectOffer, view.ActiveOffer != nil)
			assert.Equal(t, tt.expectStock, view.Stock)
			assert.Equal(t, tt.expectInStock, view.InStock)
			api.AssertExpectations(t)
		})
	}
}

func TestService_Categories_Cached(t *testing.T) {
	api := new(MockProductCatalog)
	api.On("Categories", mock.Anything).Return([]model.Category{{ID: "1", Name: "Frutas"}}, nil).Once()

	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(api, Config{CategoryTTL: time.Minute}, zerolog.Nop()).(*service)
	svc.now = func() time.Time { return now }

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			categories, err := svc.Categories(context.Background())
			assert.NoError(t, err)
			assert.Len(t, categories, 1)
		}()
	}
	wg.Wait()

	categories, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Frutas", categories[0].Name)
	api.AssertNumberOfCalls(t, "Categories", 1)

	now = now.Add(2 * time.Minute)
	api.On("Categories", mock.Anything).Return([]model.Category{{ID: "1", Name: "Frutas"}, {ID: "2", Name: "Verduras"}}, nil).Once()

	categories, err = svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, 2, "expired list is refreshed")
}

func TestService_Categories_Failure(t *testing.T) {
	api := new(MockProductCatalog)
	api.On("Categories", mock.Anything).Return(nil, backendDown)
	svc := NewService(api, Config{CategoryTTL: time.Minute}, zerolog.Nop())

	_, err := svc.Categories(context.Background())

	var apiErr *storeapi.Error
	assert.True(t, errors.As(err, &apiErr))
}

func TestService_Search(t *testing.T) {
	api := new(MockProductCatalog)
	api.On("SearchProducts", mock.Anything, "mango").Return([]model.ProductSummary{
		{ID: "12", Name: "Mango", Price: dec("100000"), DiscountPercent: dec("10")},
	}, nil)
	svc := NewService(api, Config{}, zerolog.Nop())

	results, err := svc.Search(context.Background(), "  mango ")

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, dec("90000").Equal(results[0].DisplayPrice))
}

func TestService_Promotion(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		promo        *model.Promotion
		expectNil    bool
		expectEndsIn int64
	}{
		{name: "None running", promo: nil, expectNil: true},
		{
			name:         "Running",
			promo:        &model.Promotion{Description: "Semana fresca", DiscountPercent: dec("15"), EndDate: now.Add(90 * time.Minute)},
			expectEndsIn: 5400,
		},
		{
			name:         "Already ended",
			promo:        &model.Promotion{Description: "Ayer", DiscountPercent: dec("15"), EndDate: now.Add(-time.Hour)},
			expectEndsIn: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockProductCatalog)
			api.On("GeneralPromotion", mock.Anything).Return(tt.promo, nil)
			svc := NewService(api, Config{}, zerolog.Nop()).(*service)
			svc.now = func() time.Time { return now }

			view, err := svc.Promotion(context.Background())

			require.NoError(t, err)
			if tt.expectNil {
				assert.Nil(t, view)
				return
			}
			require.NotNil(t, view)
			assert.Equal(t, tt.promo.Description, view.Description)
			assert.Equal(t, tt.expectEndsIn, view.EndsInSeconds)
		})
	}
}
