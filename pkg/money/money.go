// Package money formats and parses store amounts. All arithmetic is decimal.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrencyPrefix is used when no prefix is configured.
const DefaultCurrencyPrefix = "GHS"

// Format renders amount with two decimals and the given prefix, e.g. "GHS 165.00".
func Format(prefix string, amount decimal.Decimal) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultCurrencyPrefix
	}
	return prefix + " " + amount.StringFixed(2)
}

// Round2 rounds half away from zero to two places.
func Round2(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// Parse reads a decimal from user input, rejecting negatives.
func Parse(raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount %q must not be negative", raw)
	}
	return value, nil
}
