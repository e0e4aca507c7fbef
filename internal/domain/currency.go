package domain

import (
	"github.com/shopspring/decimal"
)

// CurrencyScope constants
const (
	ScopeLocal  = "LOCAL"
	ScopeGlobal = "GLOBAL"
)

// TaxFunc computes the tax charged on a transfer amount
type TaxFunc func(amount decimal.Decimal) decimal.Decimal

// Currency describes one configured monetary type.
// The set of currencies is registered once at startup and immutable afterwards.
type Currency struct {
	// Identifier is the unique string key for this currency
	Identifier string `json:"identifier"`

	// Scope is either ScopeLocal (per-server) or ScopeGlobal (shared across servers)
	Scope string `json:"scope"`

	// DecimalPlaces is the display/rounding precision
	DecimalPlaces int `json:"decimal_places"`

	// Payable controls whether players may transfer this currency to one another
	Payable bool `json:"payable"`

	// DefaultBalance is returned for any user with no stored row for this currency
	DefaultBalance decimal.Decimal `json:"default_balance"`

	// Tax computes the tax on a transfer amount; nil means no tax
	Tax TaxFunc `json:"-"`
}

// CalculateTax returns the tax charged on a transfer of the given amount
func (c *Currency) CalculateTax(amount decimal.Decimal) decimal.Decimal {
	if c.Tax == nil {
		return decimal.Zero
	}
	return c.Tax(amount)
}

// Round rounds an amount to this currency's configured precision
func (c *Currency) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(int32(c.DecimalPlaces))
}
