package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// microFactor converts between display units and micro-units (6 decimals).
var microFactor = decimal.New(1, 6)

// ParseAmount converts a display-currency string ("10.50") into micro-units.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount %q must not be negative", s)
	}
	micro := d.Mul(microFactor)
	if !micro.Equal(micro.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has more than 6 decimal places", s)
	}
	if !micro.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	return micro.IntPart(), nil
}

// FormatAmount renders micro-units as a display-currency string.
func FormatAmount(micro int64) string {
	return decimal.New(micro, -6).StringFixed(6)
}
