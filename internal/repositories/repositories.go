package repositories

import (
	"context"
	"errors"

	"storefront/internal/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientStock is returned by DecrementStock when the product
	// holds fewer units than requested.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// CategoryRepository defines the interface for category data access.
type CategoryRepository interface {
	GetAll(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id string) (*models.Category, error)
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	// GetForUpdate reads the product and locks its row until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.Product, error)
	DecrementStock(ctx context.Context, id string, amount int) error
	// IncrementStock returns units to stock, also for soft-deleted products.
	IncrementStock(ctx context.Context, id string, amount int) error
}

// CartRepository defines the interface for cart data access. Every method
// is scoped to the owning user.
type CartRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.CartItem, error)
	GetByID(ctx context.Context, userID, id string) (*models.CartItem, error)
	GetByProduct(ctx context.Context, userID, productID string) (*models.CartItem, error)
	Create(ctx context.Context, item *models.CartItem) error
	UpdateQuantity(ctx context.Context, userID, id string, quantity int) error
	Delete(ctx context.Context, userID, id string) error
	ClearByUser(ctx context.Context, userID string) (int64, error)
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	GetByIDForUser(ctx context.Context, userID, id string) (*models.Order, error)
	// GetForUpdate reads any order with its items and locks the order row
	// until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id string, status string) error
}
