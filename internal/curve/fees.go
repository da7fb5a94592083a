// internal/curve/fees.go
package curve

// FeeBreakdown decomposes a gross trade amount. The invariant
// CreatorShare + PlatformShare <= Fee always holds; rounding dust stays
// with the curve's treasury, never lost or double-counted.
type FeeBreakdown struct {
	Gross         uint64
	Net           uint64
	Fee           uint64
	CreatorShare  uint64
	PlatformShare uint64
}

// SplitFee computes fee = gross * fee_bps / 10000 and splits it between
// creator and platform proportionally to their bps shares of the
// transaction fee. A zero gross amount produces zero everywhere, so the
// caller never issues a payout for nothing.
func SplitFee(gross uint64, fees FeeConfig) (FeeBreakdown, error) {
	bd := FeeBreakdown{Gross: gross, Net: gross}
	if gross == 0 || fees.TransactionFeeBps == 0 {
		return bd, nil
	}

	fee, err := CheckedMulDiv(gross, fees.TransactionFeeBps, BasisPoints)
	if err != nil {
		return FeeBreakdown{}, err
	}
	net, err := CheckedSub(gross, fee)
	if err != nil {
		return FeeBreakdown{}, err
	}
	bd.Fee = fee
	bd.Net = net
	if fee == 0 {
		return bd, nil
	}

	bd.CreatorShare, err = CheckedMulDiv(fee, fees.CreatorFeeBps, fees.TransactionFeeBps)
	if err != nil {
		return FeeBreakdown{}, err
	}
	bd.PlatformShare, err = CheckedMulDiv(fee, fees.PlatformFeeBps, fees.TransactionFeeBps)
	if err != nil {
		return FeeBreakdown{}, err
	}
	return bd, nil
}

// TreasuryRetained is the slice of the fee that stays in the treasury after
// the creator and platform payouts (rounding dust plus any unallocated bps).
func (bd FeeBreakdown) TreasuryRetained() uint64 {
	return bd.Fee - bd.CreatorShare - bd.PlatformShare
}
