package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/repositories"
	"storefront/internal/server"
	"storefront/internal/services"
	"storefront/pkg/rabbitmq"
)

// application is the assembled server and the resources it owns.
type application struct {
	app     *fiber.App
	log     *zap.Logger
	closers []func() error
}

// newApp connects storage and the optional Redis and RabbitMQ backends and
// builds the HTTP application. Redis and RabbitMQ are best effort: when they
// cannot be reached the server runs without a catalog cache or order events.
func newApp(cfg *config.Config, logger *zap.Logger) (*application, error) {
	a := &application{log: logger}
	components := map[string]string{}

	pricingCfg, err := cfg.Pricing()
	if err != nil {
		return nil, err
	}

	// --- Database ---
	db, err := repositories.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	if err := repositories.Migrate(db); err != nil {
		a.Close()
		return nil, err
	}
	if cfg.SeedCatalog {
		if err := repositories.SeedCatalog(context.Background(), db); err != nil {
			a.Close()
			return nil, err
		}
	}
	components["database"] = cfg.DBDriver

	// --- Catalog cache ---
	var catalogCache cache.CatalogCache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Warn("redis unavailable, catalog cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			client.Close()
			components["redis"] = "unavailable"
		} else {
			a.closers = append(a.closers, client.Close)
			catalogCache = cache.NewRedisCache(client, cfg.CacheTTL)
			components["redis"] = "connected"
		}
	}

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics, err := metrics.NewCheckout(reg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to register checkout metrics: %w", err)
	}

	// --- Repositories and services ---
	productRepo := repositories.NewGORMProductRepository(db)
	authService := services.NewAuthService(repositories.NewGORMUserRepository(db), cfg.JWTSecret, cfg.JWTTTL, logger,
		services.WithAdminEmails(cfg.AdminEmails...))
	catalogService := services.NewCatalogService(productRepo, repositories.NewGORMCategoryRepository(db), catalogCache, logger)
	cartService := services.NewCartService(repositories.NewGORMCartRepository(db), productRepo, pricingCfg, logger)

	orderOpts := []services.OrderOption{
		services.WithCheckoutMetrics(checkoutMetrics),
		services.WithStockListener(catalogService.InvalidateProducts),
	}

	// --- RabbitMQ ---
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, logger)
		if err != nil {
			logger.Warn("rabbitmq unavailable, order events disabled", zap.Error(err))
			components["rabbitmq"] = "unavailable"
		} else {
			a.closers = append(a.closers, mqClient.Close)
			orderOpts = append(orderOpts, services.WithEventPublisher(mqClient))
			if err := mqClient.ConsumeOrderEvents(rabbitmq.LogOrderEvent(logger)); err != nil {
				logger.Error("failed to start order event consumer", zap.Error(err))
			}
			components["rabbitmq"] = "connected"
		}
	}

	orderService := services.NewOrderService(repositories.NewStore(db), repositories.NewGORMOrderRepository(db), pricingCfg, logger, orderOpts...)

	if cfg.JWTSecret == config.DefaultJWTSecret {
		logger.Warn("JWT_SECRET is not set, using the development secret")
	}

	a.app = server.New(server.Deps{
		Auth:       authService,
		Catalog:    catalogService,
		Cart:       cartService,
		Orders:     orderService,
		Gatherer:   reg,
		Log:        logger,
		CORSOrigin: cfg.CORSOrigin,
		AccessLog:  cfg.LogLevel == "debug",
		Components: components,
	})
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	// --- Start HTTP Server ---
	logger.Info("starting server", zap.String("port", cfg.AppPort))

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := a.app.Listen(cfg.AppPort); err != nil {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	if err := a.app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("error during fiber shutdown", zap.Error(err))
	}
	if err := a.Close(); err != nil {
		logger.Error("error releasing resources", zap.Error(err))
	}
	logger.Info("server gracefully stopped")
}
