package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// ValidOrderStatus reports whether status is one an order may hold.
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem represents a single item within an order.
type OrderItem struct {
	ID        string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID   string          `json:"order_id" gorm:"type:varchar(36);not null;index"`
	Line      int             `json:"line" gorm:"not null"` // 1-based position in the request
	ProductID string          `json:"product_id" gorm:"type:varchar(36);not null"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"` // Price at the time of order
	Subtotal  decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2);not null"`

	ProductName  string `json:"product_name,omitempty" gorm:"->;-:migration"`
	ProductImage string `json:"product_image,omitempty" gorm:"->;-:migration"`
}

// Order represents a customer order. Amounts are rounded to cents.
type Order struct {
	ID        string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string          `json:"user_id" gorm:"type:varchar(36);not null;index"`
	Status    string          `json:"status" gorm:"type:varchar(20);not null"`
	Subtotal  decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2);not null"`
	Tax       decimal.Decimal `json:"tax" gorm:"type:numeric(12,2);not null"`
	Shipping  decimal.Decimal `json:"shipping" gorm:"type:numeric(12,2);not null"`
	Total     decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null"`
	Items     []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
