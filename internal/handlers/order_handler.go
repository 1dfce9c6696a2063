package handlers

import (
	"errors"

	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
	log      *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
		log:      log,
	}
}

// RegisterRoutes registers the order routes, all behind auth. Setting an
// arbitrary status is reserved for admins.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	orderRoutes := router.Group("/orders", auth)
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Post("/:id/cancel", h.HandleCancelOrder)
	orderRoutes.Patch("/:id/status", middleware.AdminRequired(), h.HandleUpdateOrderStatus)
}

// CreateOrderRequest is the body of POST /orders. Prices sent by the client
// are ignored; the current catalog price is used.
type CreateOrderRequest struct {
	Items []services.OrderLineRequest `json:"items" validate:"required,min=1,dive"`
}

// HandleGetOrders retrieves the user's orders, newest first.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders(c.UserContext(), middleware.UserID(c))
	if err != nil {
		h.log.Error("error fetching orders", zap.Error(err))
		return errorBody(c, fiber.StatusInternalServerError, err, "Error fetching orders")
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves one of the user's orders.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		status := statusFor(err)
		if status >= fiber.StatusInternalServerError {
			h.log.Error("error fetching order", zap.String("order_id", c.Params("id")), zap.Error(err))
		}
		return errorBody(c, status, err, "Error fetching order")
	}
	return c.JSON(order)
}

// HandleCreateOrder places an order from the requested lines.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if len(req.Items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "No items provided",
		})
	}
	if body := validateRequest(h.validate, &req); body != nil {
		return c.Status(fiber.StatusBadRequest).JSON(body)
	}

	order, err := h.service.PlaceOrder(c.UserContext(), middleware.UserID(c), req.Items)
	if err != nil {
		return h.placementError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order created successfully",
		"orderId": order.ID,
		"order":   order,
	})
}

// placementError answers 400 for request, product and stock errors and 500
// for everything else.
func (h *OrderHandler) placementError(c *fiber.Ctx, err error) error {
	var perr *services.ProductError
	switch {
	case errors.As(err, &perr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message":    perr.Error(),
			"product_id": perr.ProductID,
		})
	case errors.Is(err, services.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid order request",
			"error":   err.Error(),
		})
	}

	h.log.Error("error creating order", zap.String("user_id", middleware.UserID(c)), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Error creating order",
		"error":   err.Error(),
	})
}

// UpdateOrderStatusRequest is the body of PATCH /orders/:id/status.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// HandleUpdateOrderStatus sets the status of any order.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req UpdateOrderStatusRequest
	if body := parseRequest(c, h.validate, &req); body != nil {
		return c.Status(fiber.StatusBadRequest).JSON(body)
	}

	order, err := h.service.SetOrderStatus(c.UserContext(), c.Params("id"), req.Status)
	if err != nil {
		status := statusFor(err)
		if status >= fiber.StatusInternalServerError {
			h.log.Error("error updating order status", zap.String("order_id", c.Params("id")), zap.Error(err))
		}
		return errorBody(c, status, err, "Could not update order status")
	}

	return c.JSON(fiber.Map{
		"message": "Order status updated",
		"order":   order,
	})
}

// HandleCancelOrder cancels one of the user's pending orders.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	order, err := h.service.CancelOrder(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		status := statusFor(err)
		if status >= fiber.StatusInternalServerError {
			h.log.Error("error cancelling order", zap.String("order_id", c.Params("id")), zap.Error(err))
		}
		return errorBody(c, status, err, "Could not cancel order")
	}

	return c.JSON(fiber.Map{
		"message": "Order cancelled",
		"order":   order,
	})
}
