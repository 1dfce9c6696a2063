package repositories

import (
	"context"
	"fmt"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the database selected by driver ("postgres" or "sqlite").
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	if driver == "sqlite" {
		// One connection keeps in-memory databases alive and avoids
		// "database is locked" between a transaction and pooled readers.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

// SeedCatalog inserts a starter catalog when no product exists yet.
func SeedCatalog(ctx context.Context, db *gorm.DB) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return nil
	}

	electronics := models.Category{ID: uuid.New().String(), Name: "Electronics", Description: "Computers and accessories"}
	books := models.Category{ID: uuid.New().String(), Name: "Books", Description: "Printed and digital books"}
	products := []models.Product{
		{Name: "Laptop", Description: "High performance laptop", Price: decimal.RequireFromString("1200.00"), Stock: 10, CategoryID: &electronics.ID},
		{Name: "Keyboard", Description: "Mechanical keyboard", Price: decimal.RequireFromString("75.00"), Stock: 25, CategoryID: &electronics.ID},
		{Name: "Mouse", Description: "Ergonomic wireless mouse", Price: decimal.RequireFromString("25.00"), Stock: 50, CategoryID: &electronics.ID},
		{Name: "Go in Practice", Description: "Paperback", Price: decimal.RequireFromString("10.99"), Stock: 100, CategoryID: &books.ID},
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&[]models.Category{electronics, books}).Error; err != nil {
			return fmt.Errorf("failed to seed categories: %w", err)
		}
		for i := range products {
			products[i].ID = uuid.New().String()
			products[i].IsActive = true
		}
		if err := tx.Create(&products).Error; err != nil {
			return fmt.Errorf("failed to seed products: %w", err)
		}
		return nil
	})
}
