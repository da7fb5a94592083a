// internal/curve/types.go
package curve

import (
	"github.com/gagliardetto/solana-go"
)

// CurveType selects the pricing function. Logarithmic is reserved: it is
// accepted at initialization but currently priced with the linear placeholder.
type CurveType uint8

const (
	CurveLinear CurveType = iota
	CurveExponential
	CurveLogarithmic
)

func (t CurveType) String() string {
	switch t {
	case CurveLinear:
		return "linear"
	case CurveExponential:
		return "exponential"
	case CurveLogarithmic:
		return "logarithmic"
	default:
		return "unknown"
	}
}

const (
	// BasisPoints is the fixed-point basis for fee rates and growth rates.
	BasisPoints = 10_000

	// SupplyStep is the supply granularity of the pricing functions: the
	// exponential curve advances one growth step per SupplyStep tokens and
	// the linear curve applies price_increment per SupplyStep tokens.
	SupplyStep = 1_000

	LamportsPerSOL = 1_000_000_000

	// DefaultGraduationThreshold is the market cap (lamports) at which a
	// curve stops trading and hands liquidity to an external venue.
	// Fixed in SOL terms rather than USD to avoid an oracle dependency.
	DefaultGraduationThreshold = 500 * LamportsPerSOL

	// MigrationPercent of the treasury is earmarked for external liquidity
	// at graduation.
	MigrationPercent = 85
)

// FeeConfig holds the basis-point fee schedule of a curve.
// CreatorFeeBps + PlatformFeeBps must not exceed TransactionFeeBps.
type FeeConfig struct {
	CreationFee       uint64 `json:"creation_fee"`
	TransactionFeeBps uint64 `json:"transaction_fee_bps"`
	CreatorFeeBps     uint64 `json:"creator_fee_bps"`
	PlatformFeeBps    uint64 `json:"platform_fee_bps"`
}

// GuardConfig holds the anti-bot policy parameters of a curve. Timestamps
// are unix seconds.
type GuardConfig struct {
	CreationTimestamp      int64  `json:"creation_timestamp"`
	LaunchProtectionPeriod int64  `json:"launch_protection_period"`
	MaxBuyDuringProtection uint64 `json:"max_buy_during_protection"`
	TransactionCooldown    int64  `json:"transaction_cooldown"`
	MaxPriceImpactBps      uint64 `json:"max_price_impact_bps"`
}

// State is the mutable bonding-curve record, one per issued asset. All
// monetary values are lamports; prices are lamports per whole token.
// CurveType, GrowthRate, PriceIncrement and MaxSupply are immutable after
// initialization.
type State struct {
	Mint      solana.PublicKey `json:"mint"`
	Authority solana.PublicKey `json:"authority"`

	CurveType      CurveType `json:"curve_type"`
	InitialPrice   uint64    `json:"initial_price"`
	CurrentPrice   uint64    `json:"current_price"`
	PriceIncrement uint64    `json:"price_increment"`
	GrowthRate     uint64    `json:"growth_rate"` // bps, 0 for linear

	TotalSupply uint64 `json:"total_supply"`
	MaxSupply   uint64 `json:"max_supply"`

	TreasuryBalance uint64 `json:"treasury_balance"`
	TotalVolume     uint64 `json:"total_volume"`

	GraduationThreshold uint64 `json:"graduation_threshold"`
	IsGraduated         bool   `json:"is_graduated"`

	// MigrationAmount is the treasury share earmarked for external
	// liquidity at graduation; PoolCreated is the single-use idempotency
	// flag of the external pool bootstrap.
	MigrationAmount uint64 `json:"migration_amount"`
	PoolCreated     bool   `json:"pool_created"`

	Fees  FeeConfig   `json:"fees"`
	Guard GuardConfig `json:"guard"`
}

// UserActivity tracks per-(curve, trader) buy history for the anti-bot guard.
type UserActivity struct {
	LastTransactionTime int64  `json:"last_transaction_time"`
	TotalBought         uint64 `json:"total_bought"`
	TransactionCount    uint64 `json:"transaction_count"`
}

// ValidateParams checks the immutable curve parameters at initialization.
func ValidateParams(curveType CurveType, initialPrice, priceIncrement, growthRate, maxSupply uint64) error {
	if initialPrice == 0 {
		return ErrInvalidPrice
	}
	if maxSupply == 0 {
		return ErrInvalidMaxSupply
	}
	switch curveType {
	case CurveLinear, CurveLogarithmic:
		if priceIncrement == 0 {
			return ErrInvalidIncrement
		}
		if growthRate != 0 {
			return ErrInvalidGrowthRate
		}
	case CurveExponential:
		if growthRate == 0 || growthRate > BasisPoints {
			return ErrInvalidGrowthRate
		}
	default:
		return ErrInvalidGrowthRate
	}
	return nil
}

// ValidateFees enforces creator + platform <= transaction fee and bps ranges.
func ValidateFees(fees FeeConfig) error {
	if fees.TransactionFeeBps > BasisPoints {
		return ErrInvalidFeeConfig
	}
	if fees.CreatorFeeBps+fees.PlatformFeeBps > fees.TransactionFeeBps {
		return ErrInvalidFeeConfig
	}
	return nil
}
