package services

import (
	"math"
	"math/bits"

	"opinion-market/internal/models"
)

// checkedAdd adds two non-negative int64 values, failing on overflow. A
// negative operand is rejected outright: the overflow test below is only
// valid for b >= 0.
func checkedAdd(a, b int64) (int64, error) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, models.ErrArithmeticOverflow
	}
	return a + b, nil
}

// checkedMul multiplies two non-negative int64 values, failing on overflow.
func checkedMul(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > math.MaxInt64/b {
		return 0, models.ErrArithmeticOverflow
	}
	return a * b, nil
}

// mulDiv computes floor(a*b/den) with a 128-bit intermediate. Requires
// b <= den so the quotient fits in an int64 (the proportional-payout case:
// pool * weight / totalWeight with weight <= totalWeight).
func mulDiv(a, b, den int64) (int64, error) {
	if a < 0 || b < 0 || den <= 0 || b > den {
		return 0, models.ErrArithmeticOverflow
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi >= uint64(den) {
		return 0, models.ErrArithmeticOverflow
	}
	q, _ := bits.Div64(hi, lo, uint64(den))
	return int64(q), nil
}
