// Package currency provides fixed-rate conversion between the supported
// wallet currencies. The rate table is configuration; ledger logic never
// depends on specific rates.
package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrRateMissing is returned when no rate (in either direction) is
// configured for a currency pair.
var ErrRateMissing = errors.New("currency conversion rate missing")

// Pair is a directed currency pair.
type Pair struct {
	From string
	To   string
}

// Converter performs stateless fixed-rate conversions. Reverse rates are
// derived as reciprocals when only one direction is configured.
type Converter struct {
	rates map[Pair]decimal.Decimal
}

// DefaultRates returns the built-in rate table.
func DefaultRates() map[Pair]decimal.Decimal {
	return map[Pair]decimal.Decimal{
		{From: "USD", To: "INR"}: decimal.NewFromFloat(83.20),
		{From: "EUR", To: "USD"}: decimal.NewFromFloat(1.09),
		{From: "EUR", To: "INR"}: decimal.NewFromFloat(90.69),
	}
}

// NewConverter creates a converter over the given rate table. Keys are
// normalized to uppercase.
func NewConverter(rates map[Pair]decimal.Decimal) *Converter {
	normalized := make(map[Pair]decimal.Decimal, len(rates))
	for p, r := range rates {
		normalized[Pair{From: strings.ToUpper(p.From), To: strings.ToUpper(p.To)}] = r
	}
	return &Converter{rates: normalized}
}

// Convert converts amount from one currency to another, rounding
// half-up to two decimal places. Identity conversions return the input
// exactly, with no rounding applied.
func (c *Converter) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return amount, nil
	}

	if rate, ok := c.rates[Pair{From: from, To: to}]; ok {
		return amount.Mul(rate).Round(2), nil
	}
	if rate, ok := c.rates[Pair{From: to, To: from}]; ok {
		return amount.Div(rate).Round(2), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s->%s", ErrRateMissing, from, to)
}

// Supports reports whether the currency appears in the rate table.
func (c *Converter) Supports(code string) bool {
	code = strings.ToUpper(code)
	for p := range c.rates {
		if p.From == code || p.To == code {
			return true
		}
	}
	return false
}
