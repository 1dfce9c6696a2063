package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CartHandler handles HTTP requests for the authenticated user's cart.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
	log      *zap.Logger
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService, log *zap.Logger) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
		log:      log,
	}
}

// RegisterRoutes registers the cart routes, all behind auth.
func (h *CartHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	cartRoutes := router.Group("/cart", auth)
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/", h.HandleAddItem)
	cartRoutes.Put("/:id", h.HandleUpdateItem)
	cartRoutes.Delete("/:id", h.HandleRemoveItem)
	cartRoutes.Delete("/", h.HandleClearCart)
}

// AddCartItemRequest is the body of POST /cart.
type AddCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// UpdateCartItemRequest is the body of PUT /cart/:id.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// HandleGetCart returns the cart lines and their totals.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	cart, err := h.service.GetCart(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return h.fail(c, err, "Error fetching cart items")
	}
	return c.JSON(cart)
}

// HandleAddItem adds a product to the cart. Adding a product already in the
// cart raises its quantity and answers 200 instead of 201.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddCartItemRequest
	if body := parseRequest(c, h.validate, &req); body != nil {
		return c.Status(fiber.StatusBadRequest).JSON(body)
	}

	item, created, err := h.service.AddItem(c.UserContext(), middleware.UserID(c), req.ProductID, req.Quantity)
	if err != nil {
		return h.fail(c, err, "Error adding item to cart")
	}
	if created {
		return c.Status(fiber.StatusCreated).JSON(item)
	}
	return c.JSON(item)
}

// HandleUpdateItem sets the quantity of a cart line.
func (h *CartHandler) HandleUpdateItem(c *fiber.Ctx) error {
	var req UpdateCartItemRequest
	if body := parseRequest(c, h.validate, &req); body != nil {
		return c.Status(fiber.StatusBadRequest).JSON(body)
	}

	item, err := h.service.UpdateItem(c.UserContext(), middleware.UserID(c), c.Params("id"), req.Quantity)
	if err != nil {
		return h.fail(c, err, "Error updating cart item")
	}
	return c.JSON(item)
}

// HandleRemoveItem deletes a cart line.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	if err := h.service.RemoveItem(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return h.fail(c, err, "Error removing item from cart")
	}
	return c.JSON(fiber.Map{"message": "Item removed from cart"})
}

// HandleClearCart empties the cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	removed, err := h.service.Clear(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return h.fail(c, err, "Error clearing cart")
	}
	return c.JSON(fiber.Map{"message": "Cart cleared successfully", "removed": removed})
}

func (h *CartHandler) fail(c *fiber.Ctx, err error, fallback string) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		h.log.Error(fallback, zap.String("user_id", middleware.UserID(c)), zap.Error(err))
	}
	return errorBody(c, status, err, fallback)
}
