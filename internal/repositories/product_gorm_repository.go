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

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// GetAll retrieves all active products with their category name.
func (r *GORMProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("products.*, categories.name AS category_name").
		Joins("LEFT JOIN categories ON categories.id = products.category_id").
		Where("products.is_active = ?", true).
		Order("products.name").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	return r.first(r.db.WithContext(ctx), id)
}

// GetForUpdate reads a product with a row lock (SELECT ... FOR UPDATE).
// SQLite has no row locks; its writers are serialized by the database lock.
func (r *GORMProductRepository) GetForUpdate(ctx context.Context, id string) (*models.Product, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GORMProductRepository) first(db *gorm.DB, id string) (*models.Product, error) {
	var product models.Product
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update overwrites the editable columns of an existing product.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	res := r.db.WithContext(ctx).
		Model(product).
		Select("category_id", "name", "description", "price", "stock", "image_url", "is_active", "updated_at").
		Updates(product)
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s: %w", product.ID, ErrNotFound)
	}
	return nil
}

// Delete soft-deletes a product by its ID.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

// DecrementStock lowers stock by amount only while enough units remain, so
// stock never goes negative even without a prior locked read.
func (r *GORMProductRepository) DecrementStock(ctx context.Context, id string, amount int) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, amount).
		UpdateColumn("stock", gorm.Expr("stock - ?", amount))
	if res.Error != nil {
		return fmt.Errorf("failed to decrement stock for product %s: %w", id, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&models.Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check product %s: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("product with ID %s: %w", id, ErrInsufficientStock)
}

// IncrementStock adds amount back to a product's stock.
func (r *GORMProductRepository) IncrementStock(ctx context.Context, id string, amount int) error {
	res := r.db.WithContext(ctx).Unscoped().Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("failed to increment stock for product %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return nil
}
