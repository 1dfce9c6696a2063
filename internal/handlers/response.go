package handlers

import (
	"errors"
	"fmt"

	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// parseRequest decodes the JSON body into req and validates it. A non-nil
// result is the 400 body to send back.
func parseRequest(c *fiber.Ctx, validate *validator.Validate, req interface{}) fiber.Map {
	if err := c.BodyParser(req); err != nil {
		return fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		}
	}

	return validateRequest(validate, req)
}

// validateRequest runs the struct validation tags of req.
func validateRequest(validate *validator.Validate, req interface{}) fiber.Map {
	if err := validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return fiber.Map{"message": "Validation failed", "error": err.Error()}
		}
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		}
	}
	return nil
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidRequest),
		errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrInvalidOrderStatus):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrCategoryNotFound),
		errors.Is(err, services.ErrCartItemNotFound),
		errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrEmailTaken):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// clientMessage is the message shown for a client error. Product errors
// name the product.
func clientMessage(err error) string {
	var perr *services.ProductError
	if errors.As(err, &perr) {
		return perr.Error()
	}
	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		return "Invalid request"
	case errors.Is(err, services.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, services.ErrCategoryNotFound):
		return "Category not found"
	case errors.Is(err, services.ErrCartItemNotFound):
		return "Cart item not found"
	case errors.Is(err, services.ErrOrderNotFound):
		return "Order not found"
	case errors.Is(err, services.ErrInvalidOrderStatus):
		return "Invalid order status"
	case errors.Is(err, services.ErrEmailTaken):
		return "Email already registered"
	}
	return err.Error()
}

// errorBody writes err with the given status. Server errors get the
// fallback message.
func errorBody(c *fiber.Ctx, status int, err error, fallback string) error {
	message := fallback
	if status < fiber.StatusInternalServerError {
		message = clientMessage(err)
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}
