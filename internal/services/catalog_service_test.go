package services_test

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/cache"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestCatalogService_GetAllProducts_NoCache(t *testing.T) {
	ctx := context.Background()
	products := new(MockProductRepository)
	service := services.NewCatalogService(products, new(MockCategoryRepository), nil, zap.NewNop())

	expected := []models.Product{
		{ID: "1", Name: "Product A", Price: decimal.NewFromInt(10), Stock: 100},
		{ID: "2", Name: "Product B", Price: decimal.NewFromInt(20), Stock: 50},
	}
	products.On("GetAll", ctx).Return(expected, nil).Once()

	got, err := service.GetAllProducts(ctx)
	assert.NoError(t, err)
	assert.Equal(t, expected, got)
	products.AssertExpectations(t)
}

func TestCatalogService_GetAllProducts_ReadThrough(t *testing.T) {
	ctx := context.Background()
	products := new(MockProductRepository)
	c := new(MockCatalogCache)
	service := services.NewCatalogService(products, new(MockCategoryRepository), c, zap.NewNop())

	expected := []models.Product{{ID: "1", Name: "Product A"}}

	// Miss: load from the repository and fill the cache
	c.On("GetProducts", ctx).Return(nil, cache.ErrCacheMiss).Once()
	products.On("GetAll", ctx).Return(expected, nil).Once()
	c.On("SetProducts", ctx, expected).Return(nil).Once()

	got, err := service.GetAllProducts(ctx)
	assert.NoError(t, err)
	assert.Equal(t, expected, got)

	// Hit: repository untouched
	c.On("GetProducts", ctx).Return(expected, nil).Once()
	got, err = service.GetAllProducts(ctx)
	assert.NoError(t, err)
	assert.Equal(t, expected, got)

	products.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestCatalogService_GetAllProducts_CacheErrorFallsBack(t *testing.T) {
	ctx := context.Background()
	products := new(MockProductRepository)
	c := new(MockCatalogCache)
	service := services.NewCatalogService(products, new(MockCategoryRepository), c, zap.NewNop())

	expected := []models.Product{{ID: "1"}}
	c.On("GetProducts", ctx).Return(nil, errors.New("redis down")).Once()
	products.On("GetAll", ctx).Return(expected, nil).Once()
	c.On("SetProducts", ctx, expected).Return(errors.New("redis down")).Once()

	got, err := service.GetAllProducts(ctx)
	assert.NoError(t, err)
	assert.Equal(t, expected, got)
	c.AssertExpectations(t)
}

func TestCatalogService_GetProductByID(t *testing.T) {
	ctx := context.Background()
	products := new(MockProductRepository)
	service := services.NewCatalogService(products, new(MockCategoryRepository), nil, zap.NewNop())

	expected := &models.Product{ID: "1", Name: "Product A"}
	products.On("GetByID", ctx, "1").Return(expected, nil).Once()
	got, err := service.GetProductByID(ctx, "1")
	assert.NoError(t, err)
	assert.Equal(t, expected, got)

	// Test product not found
	products.On("GetByID", ctx, "99").Return(nil, notFound("product")).Once()
	got, err = service.GetProductByID(ctx, "99")
	assert.ErrorIs(t, err, services.ErrProductNotFound)
	assert.Nil(t, got)

	var perr *services.ProductError
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, "99", perr.ProductID)
	products.AssertExpectations(t)
}

func TestCatalogService_ReadOverlappingInvalidationIsNotCached(t *testing.T) {
	ctx := context.Background()
	products := new(MockProductRepository)
	c := new(MockCatalogCache)
	service := services.NewCatalogService(products, new(MockCategoryRepository), c, zap.NewNop())

	stale := &models.Product{ID: "p1", Price: decimal.NewFromInt(10), Stock: 5}
	fresh := &models.Product{ID: "p1", Price: decimal.NewFromInt(10), Stock: 3}
	c.On("Invalidate", ctx, []string{"p1"}).Return(nil)

	// A checkout commits and invalidates while the row is being read.
	c.On("GetProduct", ctx, "p1").Return(nil, cache.ErrCacheMiss).Twice()
	products.On("GetByID", ctx, "p1").
		Run(func(mock.Arguments) { service.InvalidateProducts(ctx, "p1") }).
		Return(stale, nil).Once()

	got, err := service.GetProductByID(ctx, "p1")
	assert.NoError(t, err)
	assert.Equal(t, 5, got.Stock)
	c.AssertNotCalled(t, "SetProduct", mock.Anything, mock.Anything)

	// The next read fills the cache with the committed row.
	products.On("GetByID", ctx, "p1").Return(fresh, nil).Once()
	c.On("SetProduct", ctx, fresh).Return(nil).Once()
	got, err = service.GetProductByID(ctx, "p1")
	assert.NoError(t, err)
	assert.Equal(t, 3, got.Stock)

	// Same for the product list.
	c.On("GetProducts", ctx).Return(nil, cache.ErrCacheMiss).Once()
	products.On("GetAll", ctx).
		Run(func(mock.Arguments) { service.InvalidateProducts(ctx, "p1") }).
		Return([]models.Product{*stale}, nil).Once()
	_, err = service.GetAllProducts(ctx)
	assert.NoError(t, err)
	c.AssertNotCalled(t, "SetProducts", mock.Anything, mock.Anything)

	products.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestCatalogService_CreateProduct(t *testing.T) {
	ctx := context.Background()
	products := new(MockProductRepository)
	categories := new(MockCategoryRepository)
	c := new(MockCatalogCache)
	service := services.NewCatalogService(products, categories, c, zap.NewNop())

	catID := "cat-1"
	newProduct := &models.Product{ID: "p-1", Name: "New Product", Price: decimal.NewFromInt(50), Stock: 20, CategoryID: &catID}

	categories.On("GetByID", ctx, catID).Return(&models.Category{ID: catID}, nil).Once()
	products.On("Create", ctx, newProduct).Return(nil).Once()
	c.On("Invalidate", ctx, []string{"p-1"}).Return(nil).Once()
	assert.NoError(t, service.CreateProduct(ctx, newProduct))

	// Unknown category
	categories.On("GetByID", ctx, catID).Return(nil, notFound("category")).Once()
	err := service.CreateProduct(ctx, newProduct)
	assert.ErrorIs(t, err, services.ErrCategoryNotFound)

	// Repository failure
	categories.On("GetByID", ctx, catID).Return(&models.Category{ID: catID}, nil).Once()
	products.On("Create", ctx, newProduct).Return(errors.New("database error")).Once()
	err = service.CreateProduct(ctx, newProduct)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database error")

	products.AssertExpectations(t)
	categories.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestCatalogService_UpdateProduct(t *testing.T) {
	ctx := context.Background()
	products := new(MockProductRepository)
	service := services.NewCatalogService(products, new(MockCategoryRepository), nil, zap.NewNop())

	updated := &models.Product{ID: "1", Name: "Product A Updated", Price: decimal.NewFromInt(12), Stock: 95}
	products.On("Update", ctx, updated).Return(nil).Once()
	assert.NoError(t, service.UpdateProduct(ctx, updated))

	missing := &models.Product{ID: "99", Name: "NonExistent"}
	products.On("Update", ctx, missing).Return(notFound("product")).Once()
	err := service.UpdateProduct(ctx, missing)
	assert.ErrorIs(t, err, services.ErrProductNotFound)
	products.AssertExpectations(t)
}

func TestCatalogService_DeleteProduct(t *testing.T) {
	ctx := context.Background()
	products := new(MockProductRepository)
	c := new(MockCatalogCache)
	service := services.NewCatalogService(products, new(MockCategoryRepository), c, zap.NewNop())

	products.On("Delete", ctx, "1").Return(nil).Once()
	c.On("Invalidate", ctx, []string{"1"}).Return(errors.New("redis down")).Once()
	assert.NoError(t, service.DeleteProduct(ctx, "1"))

	products.On("Delete", ctx, "99").Return(notFound("product")).Once()
	err := service.DeleteProduct(ctx, "99")
	assert.ErrorIs(t, err, services.ErrProductNotFound)

	products.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestCatalogService_Categories(t *testing.T) {
	ctx := context.Background()
	categories := new(MockCategoryRepository)
	service := services.NewCatalogService(new(MockProductRepository), categories, nil, zap.NewNop())

	all := []models.Category{{ID: "c1", Name: "Books"}}
	categories.On("GetAll", ctx).Return(all, nil).Once()
	got, err := service.GetAllCategories(ctx)
	assert.NoError(t, err)
	assert.Equal(t, all, got)

	categories.On("GetByID", ctx, "nope").Return(nil, notFound("category")).Once()
	_, err = service.GetCategoryByID(ctx, "nope")
	assert.ErrorIs(t, err, services.ErrCategoryNotFound)

	categories.On("GetByID", ctx, mock.Anything).Return(nil, errors.New("boom")).Once()
	_, err = service.GetCategoryByID(ctx, "x")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, services.ErrCategoryNotFound)
	categories.AssertExpectations(t)
}
