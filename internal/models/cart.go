package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one product line in a user's cart. A user holds at most one
// line per product.
type CartItem struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_user_product"`
	ProductID string    `json:"product_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_user_product"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Read-only columns joined from products.
	ProductName string          `json:"product_name,omitempty" gorm:"->;-:migration"`
	Price       decimal.Decimal `json:"price" gorm:"->;-:migration"`
	ImageURL    string          `json:"image_url,omitempty" gorm:"->;-:migration"`
}
