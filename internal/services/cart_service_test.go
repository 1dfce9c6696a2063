package services_test

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/models"
	"storefront/internal/pricing"
	"storefront/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func newCartService(carts *MockCartRepository, products *MockProductRepository) *services.CartService {
	return services.NewCartService(carts, products, pricing.ThresholdConfig(), zap.NewNop())
}

func TestCartService_GetCart(t *testing.T) {
	ctx := context.Background()
	carts := new(MockCartRepository)
	service := newCartService(carts, new(MockProductRepository))

	carts.On("ListByUser", ctx, "u1").Return([]models.CartItem{
		{ID: "c1", ProductID: "p1", Quantity: 2, Price: decimal.RequireFromString("10.99")},
	}, nil).Once()

	cart, err := service.GetCart(ctx, "u1")
	assert.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, "21.98", cart.Totals.Subtotal.StringFixed(2))
	assert.Equal(t, "2.20", cart.Totals.Tax.StringFixed(2))
	assert.Equal(t, "10.00", cart.Totals.Shipping.StringFixed(2))
	assert.Equal(t, "34.18", cart.Totals.Total.StringFixed(2))

	// Empty cart still renders an items array
	carts.On("ListByUser", ctx, "u2").Return(nil, nil).Once()
	cart, err = service.GetCart(ctx, "u2")
	assert.NoError(t, err)
	assert.NotNil(t, cart.Items)
	assert.Empty(t, cart.Items)
	carts.AssertExpectations(t)
}

func TestCartService_AddItem_New(t *testing.T) {
	ctx := context.Background()
	carts := new(MockCartRepository)
	products := new(MockProductRepository)
	service := newCartService(carts, products)

	products.On("GetByID", ctx, "p1").Return(&models.Product{ID: "p1", Stock: 10}, nil).Once()
	carts.On("GetByProduct", ctx, "u1", "p1").Return(nil, notFound("cart item")).Once()
	carts.On("Create", ctx, mock.MatchedBy(func(item *models.CartItem) bool {
		return item.UserID == "u1" && item.ProductID == "p1" && item.Quantity == 2
	})).Return(nil).Once()

	item, created, err := service.AddItem(ctx, "u1", "p1", 2)
	assert.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, item.Quantity)
	carts.AssertExpectations(t)
	products.AssertExpectations(t)
}

func TestCartService_AddItem_MergesExisting(t *testing.T) {
	ctx := context.Background()
	carts := new(MockCartRepository)
	products := new(MockProductRepository)
	service := newCartService(carts, products)

	products.On("GetByID", ctx, "p1").Return(&models.Product{ID: "p1", Stock: 5}, nil).Twice()
	carts.On("GetByProduct", ctx, "u1", "p1").Return(&models.CartItem{ID: "c1", UserID: "u1", ProductID: "p1", Quantity: 3}, nil).Twice()
	carts.On("UpdateQuantity", ctx, "u1", "c1", 5).Return(nil).Once()

	item, created, err := service.AddItem(ctx, "u1", "p1", 2)
	assert.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 5, item.Quantity)

	// Merged quantity above stock is rejected
	_, _, err = service.AddItem(ctx, "u1", "p1", 3)
	assert.ErrorIs(t, err, services.ErrInsufficientStock)
	carts.AssertExpectations(t)
}

func TestCartService_AddItem_Rejections(t *testing.T) {
	ctx := context.Background()
	carts := new(MockCartRepository)
	products := new(MockProductRepository)
	service := newCartService(carts, products)

	_, _, err := service.AddItem(ctx, "u1", "", 1)
	assert.ErrorIs(t, err, services.ErrInvalidRequest)
	_, _, err = service.AddItem(ctx, "u1", "p1", 0)
	assert.ErrorIs(t, err, services.ErrInvalidRequest)

	products.On("GetByID", ctx, "ghost").Return(nil, notFound("product")).Once()
	_, _, err = service.AddItem(ctx, "u1", "ghost", 1)
	assert.ErrorIs(t, err, services.ErrProductNotFound)

	products.On("GetByID", ctx, "p1").Return(&models.Product{ID: "p1", Stock: 1}, nil).Once()
	_, _, err = service.AddItem(ctx, "u1", "p1", 2)
	assert.ErrorIs(t, err, services.ErrInsufficientStock)

	carts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCartService_UpdateItem(t *testing.T) {
	ctx := context.Background()
	carts := new(MockCartRepository)
	products := new(MockProductRepository)
	service := newCartService(carts, products)

	_, err := service.UpdateItem(ctx, "u1", "c1", 0)
	assert.ErrorIs(t, err, services.ErrInvalidRequest)

	carts.On("GetByID", ctx, "u1", "missing").Return(nil, notFound("cart item")).Once()
	_, err = service.UpdateItem(ctx, "u1", "missing", 1)
	assert.ErrorIs(t, err, services.ErrCartItemNotFound)

	carts.On("GetByID", ctx, "u1", "c1").Return(&models.CartItem{ID: "c1", ProductID: "p1", Quantity: 1}, nil).Twice()
	products.On("GetByID", ctx, "p1").Return(&models.Product{ID: "p1", Stock: 10}, nil).Twice()
	carts.On("UpdateQuantity", ctx, "u1", "c1", 3).Return(nil).Once()

	item, err := service.UpdateItem(ctx, "u1", "c1", 3)
	assert.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)

	_, err = service.UpdateItem(ctx, "u1", "c1", 11)
	assert.ErrorIs(t, err, services.ErrInsufficientStock)
	carts.AssertExpectations(t)
}

func TestCartService_RemoveAndClear(t *testing.T) {
	ctx := context.Background()
	carts := new(MockCartRepository)
	service := newCartService(carts, new(MockProductRepository))

	carts.On("Delete", ctx, "u1", "c1").Return(nil).Once()
	assert.NoError(t, service.RemoveItem(ctx, "u1", "c1"))

	carts.On("Delete", ctx, "u1", "c2").Return(notFound("cart item")).Once()
	assert.ErrorIs(t, service.RemoveItem(ctx, "u1", "c2"), services.ErrCartItemNotFound)

	carts.On("ClearByUser", ctx, "u1").Return(int64(3), nil).Once()
	n, err := service.Clear(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)

	carts.On("ClearByUser", ctx, "u2").Return(int64(0), errors.New("boom")).Once()
	_, err = service.Clear(ctx, "u2")
	assert.Error(t, err)
	carts.AssertExpectations(t)
}
