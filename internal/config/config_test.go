package config

import (
	"testing"
	"time"

	"storefront/internal/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Empty(t, cfg.RabbitMQURL)
	assert.Empty(t, cfg.RedisAddr)
	assert.True(t, cfg.SeedCatalog)
	assert.Empty(t, cfg.AdminEmails)

	p, err := cfg.Pricing()
	require.NoError(t, err)
	assert.Equal(t, pricing.ShippingThreshold, p.Shipping.Kind)
	assert.Equal(t, "10", p.Shipping.Fee.String())
	assert.Equal(t, "100", p.Shipping.FreeAbove.String())
	assert.Equal(t, "0.1", p.TaxRate.String())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", ":9090")
	t.Setenv("DB_DRIVER", "POSTGRES")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("SEED_CATALOG", "false")
	t.Setenv("SHIPPING_POLICY", "flat")
	t.Setenv("SHIPPING_FLAT_FEE", "7.5")
	t.Setenv("TAX_RATE", "0.2")
	t.Setenv("ADMIN_EMAILS", " ops@example.com,, Boss@Example.com ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"ops@example.com", "Boss@Example.com"}, cfg.AdminEmails)
	assert.Equal(t, ":9090", cfg.AppPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 90*time.Minute, cfg.JWTTTL)
	assert.False(t, cfg.SeedCatalog)

	p, err := cfg.Pricing()
	require.NoError(t, err)
	assert.Equal(t, pricing.ShippingFlat, p.Shipping.Kind)
	assert.Equal(t, "7.5", p.Shipping.Fee.String())
	assert.Equal(t, "0.2", p.TaxRate.String())
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown policy":   {"SHIPPING_POLICY": "drone"},
		"negative tax":     {"TAX_RATE": "-0.1"},
		"malformed fee":    {"SHIPPING_POLICY": "flat", "SHIPPING_FLAT_FEE": "cheap"},
		"bad duration":     {"JWT_TTL": "forever"},
		"unknown database": {"DB_DRIVER": "oracle"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
