// internal/curve/safemath.go
package curve

import (
	"math"
	"math/big"
	"math/bits"
)

// Checked arithmetic for supply, price, volume and fee accounting: any
// overflow or zero divisor rejects the whole operation. Saturating helpers
// exist only for the two spots where clamping is the documented behavior
// (sell-side price floor, treasury floor).

func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrArithmeticOverflow
	}
	return sum, nil
}

func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrArithmeticOverflow
	}
	return diff, nil
}

func CheckedMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrArithmeticOverflow
	}
	return lo, nil
}

func CheckedDiv(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	return a / b, nil
}

// CheckedMulDiv computes a*b/den over a 128-bit intermediate, failing only
// when the final quotient does not fit in 64 bits.
func CheckedMulDiv(a, b, den uint64) (uint64, error) {
	if den == 0 {
		return 0, ErrDivideByZero
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return 0, ErrArithmeticOverflow
	}
	q, _ := bits.Div64(hi, lo, den)
	return q, nil
}

// SaturatingMulDiv is CheckedMulDiv clamped at MaxUint64 instead of failing.
func SaturatingMulDiv(a, b, den uint64) uint64 {
	v, err := CheckedMulDiv(a, b, den)
	if err != nil {
		return math.MaxUint64
	}
	return v
}

func SaturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// avg returns the arithmetic mean of two uint64 values without overflow.
func avg(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	return sum>>1 | carry<<63
}

var (
	bpsBig = big.NewInt(BasisPoints)

	// powCap sits above any multiplier that could still yield a 64-bit
	// price. The bases we raise are >= 1.0 in fixed point, so the series
	// is monotone and clamping at powCap is exact for every representable
	// result while keeping intermediates small.
	powCap = new(big.Int).Mul(
		new(big.Int).Lsh(big.NewInt(1), 64),
		big.NewInt(BasisPoints),
	)
)

// powFixedBps raises a basis-10000 fixed-point base (>= 1.0) to an integer
// exponent by repeated squaring over big.Int intermediates.
func powFixedBps(base uint64, exp uint64) *big.Int {
	result := new(big.Int).Set(bpsBig)
	cur := new(big.Int).SetUint64(base)
	for e := exp; e > 0; e >>= 1 {
		if e&1 == 1 {
			result.Mul(result, cur)
			result.Div(result, bpsBig)
			if result.Cmp(powCap) > 0 {
				result.Set(powCap)
			}
		}
		cur.Mul(cur, cur)
		cur.Div(cur, bpsBig)
		if cur.Cmp(powCap) > 0 {
			cur.Set(powCap)
		}
	}
	return result
}
