package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category groups products in the catalog.
type Category struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" gorm:"uniqueIndex;type:varchar(100)"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Product represents a product in the store.
type Product struct {
	ID           string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CategoryID   *string         `json:"category_id,omitempty" gorm:"type:varchar(36);index"`
	CategoryName string          `json:"category_name,omitempty" gorm:"->;-:migration"` // filled by joined reads
	Name         string          `json:"name" gorm:"type:varchar(100)"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Stock        int             `json:"stock" gorm:"not null;default:0"`
	ImageURL     string          `json:"image_url"`
	IsActive     bool            `json:"is_active" gorm:"not null"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `json:"-" gorm:"index"`
}
