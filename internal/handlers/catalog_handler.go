package handlers

import (
	"errors"
	"fmt"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogHandler handles HTTP requests for products and categories.
type CatalogHandler struct {
	service  *services.CatalogService
	validate *validator.Validate
	log      *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(service *services.CatalogService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		service:  service,
		validate: validator.New(),
		log:      log,
	}
}

// RegisterRoutes registers the product and category routes. Reads are
// public; product writes need an admin.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	admin := middleware.AdminRequired()

	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", auth, admin, h.HandleCreateProduct)
	productRoutes.Put("/:id", auth, admin, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", auth, admin, h.HandleDeleteProduct)

	categoryRoutes := router.Group("/categories")
	categoryRoutes.Get("/", h.HandleGetCategories)
	categoryRoutes.Get("/:id", h.HandleGetCategoryByID)
}

// ProductRequest is the body of product create and update requests.
type ProductRequest struct {
	CategoryID  *string         `json:"category_id"`
	Name        string          `json:"name" validate:"required,max=100"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"min=0"`
	ImageURL    string          `json:"image_url"`
	IsActive    *bool           `json:"is_active"`
}

func (r ProductRequest) product(id string) *models.Product {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &models.Product{
		ID:          id,
		CategoryID:  r.CategoryID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price.Round(2),
		Stock:       r.Stock,
		ImageURL:    r.ImageURL,
		IsActive:    active,
	}
}

func (h *CatalogHandler) parseProduct(c *fiber.Ctx) (*ProductRequest, fiber.Map) {
	var req ProductRequest
	if body := parseRequest(c, h.validate, &req); body != nil {
		return nil, body
	}
	if req.Price.IsNegative() {
		return nil, fiber.Map{"message": "Validation failed", "errors": map[string]string{"Price": "Price must not be negative"}}
	}
	return &req, nil
}

// HandleGetProducts retrieves all active products.
func (h *CatalogHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext())
	if err != nil {
		h.log.Error("error fetching products", zap.Error(err))
		return errorBody(c, fiber.StatusInternalServerError, err, "Error fetching products")
	}
	if products == nil {
		products = []models.Product{}
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *CatalogHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err, "Error fetching product")
	}
	return c.JSON(product)
}

// HandleCreateProduct creates a new product.
func (h *CatalogHandler) HandleCreateProduct(c *fiber.Ctx) error {
	req, body := h.parseProduct(c)
	if body != nil {
		return c.Status(fiber.StatusBadRequest).JSON(body)
	}

	product := req.product("")
	if err := h.service.CreateProduct(c.UserContext(), product); err != nil {
		return h.fail(c, err, "Could not create product")
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct replaces the editable fields of a product.
func (h *CatalogHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	req, body := h.parseProduct(c)
	if body != nil {
		return c.Status(fiber.StatusBadRequest).JSON(body)
	}

	product := req.product(c.Params("id"))
	if err := h.service.UpdateProduct(c.UserContext(), product); err != nil {
		return h.fail(c, err, "Could not update product")
	}
	updated, err := h.service.GetProductByID(c.UserContext(), product.ID)
	if err != nil {
		return h.fail(c, err, "Could not update product")
	}
	return c.JSON(updated)
}

// HandleDeleteProduct removes a product from the catalog.
func (h *CatalogHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		return h.fail(c, err, "Could not delete product")
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Product %s deleted successfully", c.Params("id")),
	})
}

// HandleGetCategories retrieves all categories.
func (h *CatalogHandler) HandleGetCategories(c *fiber.Ctx) error {
	categories, err := h.service.GetAllCategories(c.UserContext())
	if err != nil {
		h.log.Error("error fetching categories", zap.Error(err))
		return errorBody(c, fiber.StatusInternalServerError, err, "Error fetching categories")
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return c.JSON(categories)
}

// HandleGetCategoryByID retrieves a single category.
func (h *CatalogHandler) HandleGetCategoryByID(c *fiber.Ctx) error {
	category, err := h.service.GetCategoryByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err, "Error fetching category")
	}
	return c.JSON(category)
}

func (h *CatalogHandler) fail(c *fiber.Ctx, err error, fallback string) error {
	status := statusFor(err)
	// An unknown category in a product body is a bad request, not a
	// missing resource.
	if errors.Is(err, services.ErrCategoryNotFound) && c.Method() != fiber.MethodGet {
		status = fiber.StatusBadRequest
	}
	if status >= fiber.StatusInternalServerError {
		h.log.Error(fallback, zap.String("path", c.Path()), zap.Error(err))
	}
	return errorBody(c, status, err, fallback)
}
