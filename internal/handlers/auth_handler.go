package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
	log         *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
		log:         log,
	}
}

// RegisterRoutes registers the authentication routes. /me sits behind auth.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Get("/me", auth, h.HandleMe)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if body := parseRequest(c, h.validate, &req); body != nil {
		return c.Status(fiber.StatusBadRequest).JSON(body)
	}

	user, token, err := h.authService.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		status := statusFor(err)
		if status >= fiber.StatusInternalServerError {
			h.log.Error("error registering user", zap.Error(err))
		}
		return errorBody(c, status, err, "Error registering user")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"token":   token,
		"user":    user,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if body := parseRequest(c, h.validate, &req); body != nil {
		return c.Status(fiber.StatusBadRequest).JSON(body)
	}

	user, token, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return errorBody(c, statusFor(err), err, "Error logging in")
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// HandleMe returns the authenticated user.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	return c.JSON(middleware.CurrentUser(c))
}
