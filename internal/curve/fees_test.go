// internal/curve/fees_test.go
package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFee(t *testing.T) {
	fees := FeeConfig{
		TransactionFeeBps: 100, // 1%
		CreatorFeeBps:     50,
		PlatformFeeBps:    50,
	}

	bd, err := SplitFee(1_000_000, fees)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), bd.Fee)
	assert.Equal(t, uint64(990_000), bd.Net)
	assert.Equal(t, uint64(5_000), bd.CreatorShare)
	assert.Equal(t, uint64(5_000), bd.PlatformShare)
	assert.Equal(t, uint64(0), bd.TreasuryRetained())
}

func TestSplitFeeRoundingDustStaysInTreasury(t *testing.T) {
	fees := FeeConfig{
		TransactionFeeBps: 300,
		CreatorFeeBps:     100,
		PlatformFeeBps:    100,
	}

	// fee = 10001*300/10000 = 300; each share = 300*100/300 = 100,
	// leaving 100 bps worth of fee with the treasury.
	bd, err := SplitFee(10_001, fees)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), bd.Fee)
	assert.LessOrEqual(t, bd.CreatorShare+bd.PlatformShare, bd.Fee)
	assert.Equal(t, bd.Fee-bd.CreatorShare-bd.PlatformShare, bd.TreasuryRetained())
	assert.Equal(t, bd.Gross, bd.Net+bd.Fee, "nothing lost, nothing double-counted")
}

func TestSplitFeeUnevenShares(t *testing.T) {
	fees := FeeConfig{
		TransactionFeeBps: 100,
		CreatorFeeBps:     70,
		PlatformFeeBps:    30,
	}

	bd, err := SplitFee(999, fees)
	require.NoError(t, err)
	// fee = 999*100/10000 = 9; creator = 9*70/100 = 6, platform = 9*30/100 = 2.
	assert.Equal(t, uint64(9), bd.Fee)
	assert.Equal(t, uint64(6), bd.CreatorShare)
	assert.Equal(t, uint64(2), bd.PlatformShare)
	assert.Equal(t, uint64(1), bd.TreasuryRetained())
}

func TestSplitFeeZeroAmount(t *testing.T) {
	fees := FeeConfig{TransactionFeeBps: 100, CreatorFeeBps: 50, PlatformFeeBps: 50}

	bd, err := SplitFee(0, fees)
	require.NoError(t, err)
	assert.Equal(t, FeeBreakdown{}, bd, "zero trades produce zero fees and no payouts")
}

func TestSplitFeeZeroRate(t *testing.T) {
	bd, err := SplitFee(123_456, FeeConfig{})
	require.NoError(t, err)
	assert.Equal(t, uint64(123_456), bd.Net)
	assert.Equal(t, uint64(0), bd.Fee)
}

func TestValidateFees(t *testing.T) {
	assert.NoError(t, ValidateFees(FeeConfig{TransactionFeeBps: 100, CreatorFeeBps: 50, PlatformFeeBps: 50}))
	assert.ErrorIs(t, ValidateFees(FeeConfig{TransactionFeeBps: 100, CreatorFeeBps: 60, PlatformFeeBps: 50}), ErrInvalidFeeConfig)
	assert.ErrorIs(t, ValidateFees(FeeConfig{TransactionFeeBps: 10_001}), ErrInvalidFeeConfig)
}
