// Package pricing computes order and cart totals.
//
// Amounts are carried as decimals end to end. Quote rounds each output
// field once, half-up to cents, from the unrounded subtotal.
package pricing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ShippingKind selects how shipping is charged.
type ShippingKind string

const (
	// ShippingFlat charges Fee on every quote, including an empty one.
	ShippingFlat ShippingKind = "flat"
	// ShippingThreshold charges Fee while the subtotal is below FreeAbove
	// and nothing at or above it.
	ShippingThreshold ShippingKind = "threshold"
)

// ParseShippingKind accepts "flat" or "threshold", case-insensitively.
func ParseShippingKind(s string) (ShippingKind, error) {
	switch k := ShippingKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ShippingFlat, ShippingThreshold:
		return k, nil
	}
	return "", fmt.Errorf("unknown shipping policy %q", s)
}

// ShippingPolicy is the active shipping rule.
type ShippingPolicy struct {
	Kind      ShippingKind    `json:"kind"`
	Fee       decimal.Decimal `json:"fee"`
	FreeAbove decimal.Decimal `json:"free_above,omitempty"`
}

// Charge returns the shipping amount for an unrounded subtotal.
func (p ShippingPolicy) Charge(subtotal decimal.Decimal) decimal.Decimal {
	if p.Kind == ShippingThreshold && subtotal.GreaterThanOrEqual(p.FreeAbove) {
		return decimal.Zero
	}
	return p.Fee
}

// Config holds the tax rate and the shipping policy used for a quote.
type Config struct {
	TaxRate  decimal.Decimal `json:"tax_rate"`
	Shipping ShippingPolicy  `json:"shipping"`
}

// DefaultTaxRate is 10%.
var DefaultTaxRate = decimal.RequireFromString("0.10")

// FlatConfig returns a flat 15.00 shipping configuration.
func FlatConfig() Config {
	return Config{
		TaxRate:  DefaultTaxRate,
		Shipping: ShippingPolicy{Kind: ShippingFlat, Fee: decimal.NewFromInt(15)},
	}
}

// ThresholdConfig returns 10.00 shipping, free from a 100.00 subtotal.
func ThresholdConfig() Config {
	return Config{
		TaxRate: DefaultTaxRate,
		Shipping: ShippingPolicy{
			Kind:      ShippingThreshold,
			Fee:       decimal.NewFromInt(10),
			FreeAbove: decimal.NewFromInt(100),
		},
	}
}

// Validate rejects negative rates and fees and unknown policies.
func (c Config) Validate() error {
	if _, err := ParseShippingKind(string(c.Shipping.Kind)); err != nil {
		return err
	}
	if c.TaxRate.IsNegative() {
		return fmt.Errorf("tax rate must not be negative, got %s", c.TaxRate)
	}
	if c.Shipping.Fee.IsNegative() {
		return fmt.Errorf("shipping fee must not be negative, got %s", c.Shipping.Fee)
	}
	if c.Shipping.FreeAbove.IsNegative() {
		return fmt.Errorf("free shipping threshold must not be negative, got %s", c.Shipping.FreeAbove)
	}
	return nil
}

// Line is one priced entry: a unit price and a quantity of at least one.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Subtotal is the unrounded unit price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals is the outcome of a quote, every field rounded to cents.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// MarshalJSON renders every amount with exactly two fractional digits.
func (t Totals) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Subtotal string `json:"subtotal"`
		Tax      string `json:"tax"`
		Shipping string `json:"shipping"`
		Total    string `json:"total"`
	}{
		Subtotal: t.Subtotal.StringFixed(2),
		Tax:      t.Tax.StringFixed(2),
		Shipping: t.Shipping.StringFixed(2),
		Total:    t.Total.StringFixed(2),
	})
}

// Round2 rounds half-up to two fractional digits. Amounts here are never
// negative, so decimal's half-away-from-zero rounding is half-up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Quote prices lines under cfg. It has no side effects.
func Quote(cfg Config, lines []Line) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
	}
	tax := subtotal.Mul(cfg.TaxRate)
	shipping := cfg.Shipping.Charge(subtotal)
	total := subtotal.Add(tax).Add(shipping)

	return Totals{
		Subtotal: Round2(subtotal),
		Tax:      Round2(tax),
		Shipping: Round2(shipping),
		Total:    Round2(total),
	}
}
