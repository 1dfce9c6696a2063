// Package server assembles the HTTP application.
package server

import (
	"errors"
	"fmt"
	"time"

	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps are the services and settings the HTTP application is built from.
type Deps struct {
	Auth    *services.AuthService
	Catalog *services.CatalogService
	Cart    *services.CartService
	Orders  *services.OrderService

	// Gatherer backs /metrics; nil omits the endpoint.
	Gatherer prometheus.Gatherer
	Log      *zap.Logger

	CORSOrigin string
	// AccessLog adds Fiber's plain-text access log next to the zap one.
	AccessLog bool
	// Components is reported verbatim by /health, e.g. {"rabbitmq": "connected"}.
	Components map[string]string
}

// New builds the Fiber app with middleware and every route.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "storefront",
		ErrorHandler: errorHandler(d.Log),
	})

	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     d.CORSOrigin,
		AllowCredentials: true,
	}))
	if d.AccessLog {
		app.Use(logger.New())
	}
	app.Use(middleware.RequestLogger(d.Log))

	app.Get("/health", func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		}
		for name, state := range d.Components {
			body[name] = state
		}
		return c.JSON(body)
	})
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	api.Get("/test", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "API is working!"})
	})

	auth := middleware.AuthRequired(d.Auth, d.Log)
	handlers.NewAuthHandler(d.Auth, d.Log).RegisterRoutes(api, auth)
	handlers.NewCatalogHandler(d.Catalog, d.Log).RegisterRoutes(api, auth)
	handlers.NewCartHandler(d.Cart, d.Log).RegisterRoutes(api, auth)
	handlers.NewOrderHandler(d.Orders, d.Log).RegisterRoutes(api, auth)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": fmt.Sprintf("Cannot %s %s", c.Method(), c.Path()),
		})
	})

	return app
}

func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("unhandled error", zap.String("method", c.Method()), zap.String("path", c.Path()), zap.Error(err))
			return c.Status(code).JSON(fiber.Map{
				"error":   "Internal server error",
				"message": err.Error(),
			})
		}
		return c.Status(code).JSON(fiber.Map{
			"error":   err.Error(),
			"message": err.Error(),
		})
	}
}
