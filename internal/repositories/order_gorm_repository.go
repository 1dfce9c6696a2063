package repositories

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// Create inserts the order row, then its items.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if len(order.Items) == 0 {
		return errors.New("order has no items")
	}
	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.OrderID = order.ID
		item.Line = i + 1
	}
	if err := db.Create(&order.Items).Error; err != nil {
		return fmt.Errorf("failed to create items for order %s: %w", order.ID, err)
	}
	return nil
}

// withProductDetails joins the product name and image onto order items.
func withProductDetails(db *gorm.DB) *gorm.DB {
	return db.
		Select("order_items.*, products.name AS product_name, products.image_url AS product_image").
		Joins("LEFT JOIN products ON products.id = order_items.product_id").
		Order("order_items.line")
}

// ListByUser returns the user's orders, newest first, with their items.
func (r *GORMOrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", withProductDetails).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for user %s: %w", userID, err)
	}
	return orders, nil
}

// GetByIDForUser returns an order with its items when it belongs to userID.
func (r *GORMOrderRepository) GetByIDForUser(ctx context.Context, userID, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", withProductDetails).
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	return &order, nil
}

// GetForUpdate returns any order with its items, locking the order row.
func (r *GORMOrderRepository) GetForUpdate(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items", withProductDetails).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	return &order, nil
}

// UpdateStatus updates the status of an order.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update status of order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	return nil
}
