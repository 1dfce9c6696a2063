package middleware

import (
	"strings"

	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Locals keys set by AuthRequired.
const (
	LocalUserID = "user_id"
	LocalUser   = "user"
)

// AuthRequired is a Fiber middleware to check for a valid JWT token. The
// token must name an existing user.
func AuthRequired(authService *services.AuthService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "No authentication token, access denied",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			log.Debug("JWT validation failed", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Token is invalid",
				"error":   err.Error(),
			})
		}

		userID, _ := claims["user_id"].(string)
		user, err := authService.GetUser(c.UserContext(), userID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "User not found",
			})
		}

		c.Locals(LocalUserID, user.ID)
		c.Locals(LocalUser, user)
		return c.Next()
	}
}

// AdminRequired only lets admins through. It must run after AuthRequired.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "No authentication token, access denied",
			})
		}
		if !user.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Admin access required",
			})
		}
		return c.Next()
	}
}

// UserID returns the authenticated user's ID, or "" outside AuthRequired.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

// CurrentUser returns the authenticated user, or nil outside AuthRequired.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(LocalUser).(*models.User)
	return user
}
