package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront/internal/cache"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CatalogService serves products and categories. Reads go through an
// optional cache; writes invalidate it.
type CatalogService struct {
	products   repositories.ProductRepository
	categories repositories.CategoryRepository
	cache      cache.CatalogCache // nil disables caching
	sfg        singleflight.Group
	log        *zap.Logger

	// gen counts invalidations. A read that overlapped one does not write
	// its result back, so a pre-invalidation row never outlives it in cache.
	genMu sync.RWMutex
	gen   uint64
}

// NewCatalogService creates a new CatalogService. c may be nil.
func NewCatalogService(products repositories.ProductRepository, categories repositories.CategoryRepository, c cache.CatalogCache, log *zap.Logger) *CatalogService {
	return &CatalogService{
		products:   products,
		categories: categories,
		cache:      c,
		log:        log,
	}
}

// GetAllProducts retrieves all active products.
func (s *CatalogService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	if s.cache == nil {
		return s.products.GetAll(ctx)
	}

	v, err, _ := s.sfg.Do("products", func() (interface{}, error) {
		products, err := s.cache.GetProducts(ctx)
		if err == nil {
			return products, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("catalog cache read failed", zap.Error(err))
		}

		gen := s.generation()
		products, err = s.products.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		s.fill(gen, func() error { return s.cache.SetProducts(ctx, products) })
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Product), nil
}

// GetProductByID retrieves a single product by its ID.
func (s *CatalogService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	v, err, _ := s.sfg.Do("product:"+id, func() (interface{}, error) {
		if s.cache != nil {
			product, err := s.cache.GetProduct(ctx, id)
			if err == nil {
				return product, nil
			}
			if !errors.Is(err, cache.ErrCacheMiss) {
				s.log.Warn("catalog cache read failed", zap.String("product_id", id), zap.Error(err))
			}
		}

		gen := s.generation()
		product, err := s.products.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, productError(id, ErrProductNotFound)
			}
			return nil, err
		}
		if s.cache != nil {
			s.fill(gen, func() error { return s.cache.SetProduct(ctx, product) })
		}
		return product, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Product), nil
}

// CreateProduct creates a new product.
func (s *CatalogService) CreateProduct(ctx context.Context, product *models.Product) error {
	if err := s.checkCategory(ctx, product.CategoryID); err != nil {
		return err
	}
	if err := s.products.Create(ctx, product); err != nil {
		return err
	}
	s.invalidate(ctx, product.ID)
	return nil
}

// UpdateProduct updates an existing product.
func (s *CatalogService) UpdateProduct(ctx context.Context, product *models.Product) error {
	if err := s.checkCategory(ctx, product.CategoryID); err != nil {
		return err
	}
	if err := s.products.Update(ctx, product); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return productError(product.ID, ErrProductNotFound)
		}
		return err
	}
	s.invalidate(ctx, product.ID)
	return nil
}

// DeleteProduct deletes a product by its ID.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return productError(id, ErrProductNotFound)
		}
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// InvalidateProducts drops cached entries for the given products.
func (s *CatalogService) InvalidateProducts(ctx context.Context, ids ...string) {
	s.invalidate(ctx, ids...)
}

func (s *CatalogService) invalidate(ctx context.Context, ids ...string) {
	if s.cache == nil {
		return
	}

	s.genMu.Lock()
	s.gen++
	s.genMu.Unlock()
	s.sfg.Forget("products")
	for _, id := range ids {
		s.sfg.Forget("product:" + id)
	}

	if err := s.cache.Invalidate(ctx, ids...); err != nil {
		s.log.Warn("catalog cache invalidation failed", zap.Strings("product_ids", ids), zap.Error(err))
	}
}

func (s *CatalogService) generation() uint64 {
	s.genMu.RLock()
	defer s.genMu.RUnlock()
	return s.gen
}

// fill runs set unless an invalidation happened since gen was taken. The
// read lock keeps an invalidation from slipping between check and write.
func (s *CatalogService) fill(gen uint64, set func() error) {
	s.genMu.RLock()
	defer s.genMu.RUnlock()
	if s.gen != gen {
		s.log.Debug("catalog cache fill skipped after invalidation")
		return
	}
	if err := set(); err != nil {
		s.log.Warn("catalog cache write failed", zap.Error(err))
	}
}

func (s *CatalogService) checkCategory(ctx context.Context, id *string) error {
	if id == nil || *id == "" {
		return nil
	}
	if _, err := s.GetCategoryByID(ctx, *id); err != nil {
		return err
	}
	return nil
}

// GetAllCategories retrieves all categories.
func (s *CatalogService) GetAllCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories.GetAll(ctx)
}

// GetCategoryByID retrieves a single category.
func (s *CatalogService) GetCategoryByID(ctx context.Context, id string) (*models.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("category %s: %w", id, ErrCategoryNotFound)
		}
		return nil, err
	}
	return category, nil
}
