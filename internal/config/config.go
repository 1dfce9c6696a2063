// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"storefront/internal/pricing"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// DefaultJWTSecret is only fit for local development.
const DefaultJWTSecret = "dev_jwt_secret"

// Config holds every setting the server reads at startup.
type Config struct {
	AppPort     string
	DBDriver    string
	DatabaseDSN string
	JWTSecret   string
	JWTTTL      time.Duration
	RabbitMQURL string
	RedisAddr   string
	CacheTTL    time.Duration
	LogLevel    string
	CORSOrigin  string
	SeedCatalog bool
	AdminEmails []string

	ShippingPolicy        string
	ShippingFlatFee       string
	ShippingThresholdFee  string
	FreeShippingThreshold string
	TaxRate               string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "file:storefront.db?cache=shared")
	v.SetDefault("JWT_SECRET", DefaultJWTSecret)
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGIN", "http://localhost:3000")
	v.SetDefault("SEED_CATALOG", true)
	v.SetDefault("ADMIN_EMAILS", "")
	v.SetDefault("SHIPPING_POLICY", string(pricing.ShippingThreshold))
	v.SetDefault("SHIPPING_FLAT_FEE", "15")
	v.SetDefault("SHIPPING_THRESHOLD_FEE", "10")
	v.SetDefault("FREE_SHIPPING_THRESHOLD", "100")
	v.SetDefault("TAX_RATE", "0.10")
}

// Load reads an optional .env file, then the environment. Invalid durations
// or pricing settings are reported as errors.
func Load() (*Config, error) {
	// A missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	jwtTTL, err := time.ParseDuration(v.GetString("JWT_TTL"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	cacheTTL, err := time.ParseDuration(v.GetString("CACHE_TTL"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}

	cfg := &Config{
		AppPort:               v.GetString("APP_PORT"),
		DBDriver:              strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseDSN:           v.GetString("DATABASE_DSN"),
		JWTSecret:             v.GetString("JWT_SECRET"),
		JWTTTL:                jwtTTL,
		RabbitMQURL:           v.GetString("RABBITMQ_URL"),
		RedisAddr:             v.GetString("REDIS_ADDR"),
		CacheTTL:              cacheTTL,
		LogLevel:              v.GetString("LOG_LEVEL"),
		CORSOrigin:            v.GetString("CORS_ORIGIN"),
		SeedCatalog:           v.GetBool("SEED_CATALOG"),
		AdminEmails:           splitList(v.GetString("ADMIN_EMAILS")),
		ShippingPolicy:        v.GetString("SHIPPING_POLICY"),
		ShippingFlatFee:       v.GetString("SHIPPING_FLAT_FEE"),
		ShippingThresholdFee:  v.GetString("SHIPPING_THRESHOLD_FEE"),
		FreeShippingThreshold: v.GetString("FREE_SHIPPING_THRESHOLD"),
		TaxRate:               v.GetString("TAX_RATE"),
	}

	if cfg.DBDriver != "sqlite" && cfg.DBDriver != "postgres" {
		return nil, fmt.Errorf("invalid DB_DRIVER %q: want sqlite or postgres", cfg.DBDriver)
	}
	if _, err := cfg.Pricing(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList parses a comma separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Pricing builds the tax and shipping configuration.
func (c *Config) Pricing() (pricing.Config, error) {
	kind, err := pricing.ParseShippingKind(c.ShippingPolicy)
	if err != nil {
		return pricing.Config{}, fmt.Errorf("invalid SHIPPING_POLICY: %w", err)
	}

	taxRate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return pricing.Config{}, fmt.Errorf("invalid TAX_RATE %q: %w", c.TaxRate, err)
	}

	cfg := pricing.Config{TaxRate: taxRate, Shipping: pricing.ShippingPolicy{Kind: kind}}
	switch kind {
	case pricing.ShippingFlat:
		if cfg.Shipping.Fee, err = decimal.NewFromString(c.ShippingFlatFee); err != nil {
			return pricing.Config{}, fmt.Errorf("invalid SHIPPING_FLAT_FEE %q: %w", c.ShippingFlatFee, err)
		}
	case pricing.ShippingThreshold:
		if cfg.Shipping.Fee, err = decimal.NewFromString(c.ShippingThresholdFee); err != nil {
			return pricing.Config{}, fmt.Errorf("invalid SHIPPING_THRESHOLD_FEE %q: %w", c.ShippingThresholdFee, err)
		}
		if cfg.Shipping.FreeAbove, err = decimal.NewFromString(c.FreeShippingThreshold); err != nil {
			return pricing.Config{}, fmt.Errorf("invalid FREE_SHIPPING_THRESHOLD %q: %w", c.FreeShippingThreshold, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return pricing.Config{}, err
	}
	return cfg, nil
}
