// internal/curve/math.go
package curve

import (
	"math/big"
)

// Pure pricing functions over an immutable snapshot of State. No side
// effects; the state machine in internal/engine owns all mutation.

// PriceAt returns the unit price at the given cumulative supply.
//
// Exponential: initial_price * (1 + growth_rate/10000)^(supply/SupplyStep),
// computed in basis-10000 fixed point with exponentiation by squaring. The
// result must fit in 64 bits. Supply 0 returns the initial price exactly.
//
// Linear and Logarithmic curves track price incrementally in the state
// machine, so their PriceAt is the current snapshot price.
func PriceAt(s *State, supply uint64) (uint64, error) {
	switch s.CurveType {
	case CurveExponential:
		steps := supply / SupplyStep
		if steps == 0 {
			return s.InitialPrice, nil
		}
		mult := powFixedBps(BasisPoints+s.GrowthRate, steps)
		price := new(big.Int).SetUint64(s.InitialPrice)
		price.Mul(price, mult)
		price.Div(price, bpsBig)
		if !price.IsUint64() {
			return 0, ErrArithmeticOverflow
		}
		return price.Uint64(), nil
	case CurveLinear, CurveLogarithmic:
		return s.CurrentPrice, nil
	default:
		return 0, ErrInvalidGrowthRate
	}
}

// TokensForSol converts a lamport amount into tokens at the current price,
// truncating toward zero. The exponential curve deliberately uses the same
// flat-rate division: current price stands in for the average execution
// price over the fill.
func TokensForSol(s *State, solIn uint64) (uint64, error) {
	return CheckedDiv(solIn, s.CurrentPrice)
}

// SolForTokens returns the gross lamports a sell of tokenAmount realizes.
// Linear (and the logarithmic placeholder) execute at the current price.
// Exponential executes at the mean of the current price and the price the
// curve would have after the supply is removed.
func SolForTokens(s *State, tokenAmount uint64) (uint64, error) {
	switch s.CurveType {
	case CurveExponential:
		remaining, err := CheckedSub(s.TotalSupply, tokenAmount)
		if err != nil {
			return 0, err
		}
		newPrice, err := PriceAt(s, remaining)
		if err != nil {
			return 0, err
		}
		return CheckedMul(tokenAmount, avg(s.CurrentPrice, newPrice))
	case CurveLinear, CurveLogarithmic:
		return CheckedMul(tokenAmount, s.CurrentPrice)
	default:
		return 0, ErrInvalidGrowthRate
	}
}

// NextBuyPrice simulates the price after minting tokens on top of the
// current supply. Linear moves by price_increment per SupplyStep tokens;
// exponential recomputes from the new supply.
func NextBuyPrice(s *State, tokens uint64) (uint64, error) {
	switch s.CurveType {
	case CurveExponential:
		newSupply, err := CheckedAdd(s.TotalSupply, tokens)
		if err != nil {
			return 0, err
		}
		return PriceAt(s, newSupply)
	case CurveLinear, CurveLogarithmic:
		delta, err := CheckedMulDiv(s.PriceIncrement, tokens, SupplyStep)
		if err != nil {
			return 0, err
		}
		return CheckedAdd(s.CurrentPrice, delta)
	default:
		return 0, ErrInvalidGrowthRate
	}
}

// NextSellPrice mirrors NextBuyPrice for a sell of tokenAmount. This is the
// one place price arithmetic saturates: availability of sells beats
// precision at the floor, and the floor is one lamport so the curve stays
// priceable. The caller must have verified tokenAmount <= TotalSupply.
func NextSellPrice(s *State, tokenAmount uint64) (uint64, error) {
	switch s.CurveType {
	case CurveExponential:
		return PriceAt(s, s.TotalSupply-tokenAmount)
	case CurveLinear, CurveLogarithmic:
		delta := SaturatingMulDiv(s.PriceIncrement, tokenAmount, SupplyStep)
		price := SaturatingSub(s.CurrentPrice, delta)
		if price == 0 {
			price = 1
		}
		return price, nil
	default:
		return 0, ErrInvalidGrowthRate
	}
}

// PriceImpactBps simulates a buy of solIn lamports and returns the relative
// price movement in basis points, saturating at MaxUint64 instead of
// overflowing. A buy too small to mint a token has zero impact.
func PriceImpactBps(s *State, solIn uint64) (uint64, error) {
	if solIn == 0 {
		return 0, nil
	}
	tokens, err := TokensForSol(s, solIn)
	if err != nil {
		return 0, err
	}
	if tokens == 0 {
		return 0, nil
	}
	newPrice, err := NextBuyPrice(s, tokens)
	if err != nil {
		return 0, err
	}
	if newPrice <= s.CurrentPrice {
		return 0, nil
	}
	// A zero current price cannot reach here: TokensForSol above already
	// fails the division.
	diff := newPrice - s.CurrentPrice
	return SaturatingMulDiv(diff, BasisPoints, s.CurrentPrice), nil
}
