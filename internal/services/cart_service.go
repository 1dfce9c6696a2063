package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/pricing"
	"storefront/internal/repositories"

	"go.uber.org/zap"
)

// Cart is a user's cart lines with totals priced under the active policy.
type Cart struct {
	Items  []models.CartItem `json:"items"`
	Totals pricing.Totals    `json:"totals"`
}

// CartService handles business logic related to shopping carts.
type CartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
	pricing  pricing.Config
	log      *zap.Logger
}

// NewCartService creates a new CartService.
func NewCartService(carts repositories.CartRepository, products repositories.ProductRepository, cfg pricing.Config, log *zap.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		pricing:  cfg,
		log:      log,
	}
}

// GetCart returns the user's cart with computed totals.
func (s *CartService) GetCart(ctx context.Context, userID string) (*Cart, error) {
	items, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.CartItem{}
	}

	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, pricing.Line{UnitPrice: item.Price, Quantity: item.Quantity})
	}
	return &Cart{Items: items, Totals: pricing.Quote(s.pricing, lines)}, nil
}

// AddItem puts quantity units of a product in the cart, merging with an
// existing line for the same product. created reports whether a new line
// was inserted.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (item *models.CartItem, created bool, err error) {
	if productID == "" || quantity < 1 {
		return nil, false, fmt.Errorf("%w: product ID and a quantity of at least 1 are required", ErrInvalidRequest)
	}

	product, err := s.lookupProduct(ctx, productID)
	if err != nil {
		return nil, false, err
	}
	if product.Stock < quantity {
		return nil, false, productError(productID, ErrInsufficientStock)
	}

	existing, err := s.carts.GetByProduct(ctx, userID, productID)
	switch {
	case err == nil:
		newQuantity := existing.Quantity + quantity
		if product.Stock < newQuantity {
			return nil, false, productError(productID, ErrInsufficientStock)
		}
		if err := s.carts.UpdateQuantity(ctx, userID, existing.ID, newQuantity); err != nil {
			return nil, false, err
		}
		existing.Quantity = newQuantity
		return existing, false, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, false, err
	}

	item = &models.CartItem{UserID: userID, ProductID: productID, Quantity: quantity}
	if err := s.carts.Create(ctx, item); err != nil {
		return nil, false, err
	}
	s.log.Debug("cart item added", zap.String("user_id", userID), zap.String("product_id", productID), zap.Int("quantity", quantity))
	return item, true, nil
}

// UpdateItem sets the quantity of one of the user's cart lines.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID string, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: valid quantity is required", ErrInvalidRequest)
	}

	item, err := s.carts.GetByID(ctx, userID, itemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}

	product, err := s.lookupProduct(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if product.Stock < quantity {
		return nil, productError(item.ProductID, ErrInsufficientStock)
	}

	if err := s.carts.UpdateQuantity(ctx, userID, itemID, quantity); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	item.Quantity = quantity
	return item, nil
}

// RemoveItem deletes one of the user's cart lines.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) error {
	if err := s.carts.Delete(ctx, userID, itemID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrCartItemNotFound
		}
		return err
	}
	return nil
}

// Clear empties the user's cart and returns how many lines were removed.
func (s *CartService) Clear(ctx context.Context, userID string) (int64, error) {
	return s.carts.ClearByUser(ctx, userID)
}

func (s *CartService) lookupProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, productError(id, ErrProductNotFound)
		}
		return nil, err
	}
	return product, nil
}
