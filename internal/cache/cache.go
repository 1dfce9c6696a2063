// Package cache keeps read-mostly catalog data in Redis.
package cache

import (
	"context"
	"errors"

	"storefront/internal/models"
)

// ErrCacheMiss is returned when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// CatalogCache stores catalog reads. It is never consulted for checkout,
// which always reads stock inside its transaction.
type CatalogCache interface {
	GetProducts(ctx context.Context) ([]models.Product, error)
	SetProducts(ctx context.Context, products []models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	SetProduct(ctx context.Context, product *models.Product) error
	// Invalidate drops the product list and the given product entries.
	Invalidate(ctx context.Context, productIDs ...string) error
}
