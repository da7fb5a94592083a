// ==============================================
// File: internal/engine/engine_test.go
// ==============================================
package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adeavid/degenie/internal/curve"
	"github.com/adeavid/degenie/internal/custody"
	"github.com/adeavid/degenie/internal/store"
)

type testEnv struct {
	engine   *Engine
	custody  *custody.Memory
	store    *store.Store
	now      int64
	platform solana.PublicKey
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		custody:  custody.NewMemory(),
		store:    store.New(),
		now:      1_700_000_000,
		platform: solana.NewWallet().PublicKey(),
	}
	clock := custody.ClockFunc(func() int64 { return env.now })
	env.engine = New(env.store, env.custody, env.custody, clock, Options{
		ProgramID:      solana.NewWallet().PublicKey(),
		PlatformWallet: env.platform,
	}, zap.NewNop())
	return env
}

func linearParams(mint, authority solana.PublicKey) InitializeParams {
	return InitializeParams{
		Mint:           mint,
		Authority:      authority,
		Name:           "Test Token",
		Symbol:         "TEST",
		URI:            "https://example.com/test.json",
		Decimals:       9,
		CurveType:      curve.CurveLinear,
		InitialPrice:   1000,
		PriceIncrement: 100,
		MaxSupply:      1_000_000_000,
		Guard: curve.GuardConfig{
			MaxPriceImpactBps: curve.BasisPoints,
		},
	}
}

func (env *testEnv) initialize(t *testing.T, p InitializeParams) curve.State {
	t.Helper()
	state, err := env.engine.Initialize(context.Background(), p)
	require.NoError(t, err)
	return state
}

func TestInitialize(t *testing.T) {
	env := newTestEnv(t)
	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()

	p := linearParams(mint, creator)
	p.Fees.CreationFee = 5000

	state := env.initialize(t, p)
	assert.Equal(t, uint64(1000), state.CurrentPrice)
	assert.Equal(t, uint64(0), state.TotalSupply)
	assert.Equal(t, uint64(5000), state.TreasuryBalance, "creation fee lands in the treasury")
	assert.Equal(t, uint64(curve.DefaultGraduationThreshold), state.GraduationThreshold)
	assert.Equal(t, env.now, state.Guard.CreationTimestamp)
	assert.False(t, state.IsGraduated)

	meta, ok := env.custody.Metadata(mint)
	require.True(t, ok)
	assert.Equal(t, "Test Token", meta.Name)
	assert.Equal(t, "TEST", meta.Symbol)
	assert.Equal(t, uint8(9), meta.Decimals)
}

func TestInitializeAppliesEngineDefaults(t *testing.T) {
	opts := Options{
		ProgramID:      solana.NewWallet().PublicKey(),
		PlatformWallet: solana.NewWallet().PublicKey(),
		DefaultFees: curve.FeeConfig{
			TransactionFeeBps: 100,
			CreatorFeeBps:     50,
			PlatformFeeBps:    50,
		},
		DefaultGuard: curve.GuardConfig{
			TransactionCooldown: 30,
			MaxPriceImpactBps:   500,
		},
		GraduationThreshold: 200_000,
	}
	mem := custody.NewMemory()
	clock := custody.ClockFunc(func() int64 { return 1_700_000_000 })
	eng := New(store.New(), mem, mem, clock, opts, zap.NewNop())
	ctx := context.Background()

	// Sections left zero pick up the configured defaults.
	p := linearParams(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	p.Fees = curve.FeeConfig{}
	p.Guard = curve.GuardConfig{}
	p.GraduationThreshold = 0

	state, err := eng.Initialize(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, opts.DefaultFees, state.Fees)
	assert.Equal(t, int64(30), state.Guard.TransactionCooldown)
	assert.Equal(t, uint64(500), state.Guard.MaxPriceImpactBps)
	assert.Equal(t, int64(1_700_000_000), state.Guard.CreationTimestamp)
	assert.Equal(t, uint64(200_000), state.GraduationThreshold)

	// Explicit sections win over the defaults.
	p2 := linearParams(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	p2.Fees = curve.FeeConfig{TransactionFeeBps: 200, CreatorFeeBps: 100, PlatformFeeBps: 100}

	state, err = eng.Initialize(ctx, p2)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), state.Fees.TransactionFeeBps)
	assert.Equal(t, uint64(curve.BasisPoints), state.Guard.MaxPriceImpactBps)
}

func TestInitializeRejectsBadParams(t *testing.T) {
	env := newTestEnv(t)
	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*InitializeParams)
		want   error
	}{
		{"empty name", func(p *InitializeParams) { p.Name = "" }, curve.ErrInvalidName},
		{"long symbol", func(p *InitializeParams) { p.Symbol = "TOOLONGSYMBOL" }, curve.ErrInvalidSymbol},
		{"empty uri", func(p *InitializeParams) { p.URI = "" }, curve.ErrInvalidURI},
		{"decimals", func(p *InitializeParams) { p.Decimals = 10 }, curve.ErrInvalidDecimals},
		{"zero price", func(p *InitializeParams) { p.InitialPrice = 0 }, curve.ErrInvalidPrice},
		{"zero increment", func(p *InitializeParams) { p.PriceIncrement = 0 }, curve.ErrInvalidIncrement},
		{"growth on linear", func(p *InitializeParams) { p.GrowthRate = 100 }, curve.ErrInvalidGrowthRate},
		{"fee split too large", func(p *InitializeParams) {
			p.Fees = curve.FeeConfig{TransactionFeeBps: 100, CreatorFeeBps: 80, PlatformFeeBps: 80}
		}, curve.ErrInvalidFeeConfig},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := linearParams(mint, creator)
			tc.mutate(&p)
			_, err := env.engine.Initialize(ctx, p)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	env.initialize(t, linearParams(mint, creator))
	_, err := env.engine.Initialize(ctx, linearParams(mint, creator))
	assert.ErrorIs(t, err, curve.ErrCurveExists, "mint is taken")
}

func TestBuyLinearWithFees(t *testing.T) {
	env := newTestEnv(t)
	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	trader := solana.NewWallet().PublicKey()
	ctx := context.Background()

	p := linearParams(mint, creator)
	p.Fees = curve.FeeConfig{TransactionFeeBps: 100, CreatorFeeBps: 50, PlatformFeeBps: 50}
	env.initialize(t, p)

	res, err := env.engine.Buy(ctx, mint, trader, 100_000)
	require.NoError(t, err)

	// 1% fee: net 99_000 buys 99 tokens at 1000; price moves by
	// 100 * 99 / 1000 = 9.
	assert.Equal(t, uint64(99), res.TokensMinted)
	assert.Equal(t, uint64(1000), res.Fees.Fee)
	assert.Equal(t, uint64(500), res.Fees.CreatorShare)
	assert.Equal(t, uint64(500), res.Fees.PlatformShare)
	assert.Equal(t, uint64(1009), res.NewPrice)
	assert.False(t, res.Graduated)

	state, err := env.engine.State(mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), state.TotalSupply)
	assert.Equal(t, uint64(1009), state.CurrentPrice)
	assert.Equal(t, uint64(99_000), state.TreasuryBalance, "gross in minus fee payouts")
	assert.Equal(t, uint64(100_000), state.TotalVolume)

	assert.Equal(t, uint64(99), env.custody.TokenBalance(mint, trader))

	activity, err := env.engine.Activity(mint, trader)
	require.NoError(t, err)
	assert.Equal(t, env.now, activity.LastTransactionTime)
	assert.Equal(t, uint64(100_000), activity.TotalBought)
	assert.Equal(t, uint64(1), activity.TransactionCount)
}

func TestBuyRejections(t *testing.T) {
	env := newTestEnv(t)
	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	trader := solana.NewWallet().PublicKey()
	ctx := context.Background()

	env.initialize(t, linearParams(mint, creator))

	_, err := env.engine.Buy(ctx, mint, trader, 0)
	assert.ErrorIs(t, err, curve.ErrInvalidAmount)

	// A buy too small to mint a single token is rejected, not silently
	// swallowed into the treasury.
	_, err = env.engine.Buy(ctx, mint, trader, 999)
	assert.ErrorIs(t, err, curve.ErrZeroTokenPurchase)

	_, err = env.engine.Buy(ctx, solana.NewWallet().PublicKey(), trader, 1000)
	assert.ErrorIs(t, err, curve.ErrCurveNotFound)
}

func TestBuySupplyCap(t *testing.T) {
	env := newTestEnv(t)
	mint := solana.NewWallet().PublicKey()
	trader := solana.NewWallet().PublicKey()

	p := linearParams(mint, solana.NewWallet().PublicKey())
	p.MaxSupply = 50
	env.initialize(t, p)

	_, err := env.engine.Buy(context.Background(), mint, trader, 51_000)
	assert.ErrorIs(t, err, curve.ErrExceedsMaxSupply)

	state, err := env.engine.State(mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), state.TotalSupply, "rejected buy leaves no trace")
}

func TestBuyCooldown(t *testing.T) {
	env := newTestEnv(t)
	mint := solana.NewWallet().PublicKey()
	trader := solana.NewWallet().PublicKey()
	ctx := context.Background()

	p := linearParams(mint, solana.NewWallet().PublicKey())
	p.Guard.TransactionCooldown = 30
	env.initialize(t, p)

	_, err := env.engine.Buy(ctx, mint, trader, 10_000)
	require.NoError(t, err)

	env.now += 29
	_, err = env.engine.Buy(ctx, mint, trader, 10_000)
	assert.ErrorIs(t, err, curve.ErrCooldownActive)

	// The boundary is inclusive: exactly cooldown seconds later passes.
	env.now += 1
	_, err = env.engine.Buy(ctx, mint, trader, 10_000)
	assert.NoError(t, err)

	// Other traders are never throttled by this trader's cooldown.
	_, err = env.engine.Buy(ctx, mint, solana.NewWallet().PublicKey(), 10_000)
	assert.NoError(t, err)
}

func TestBuyLaunchProtection(t *testing.T) {
	env := newTestEnv(t)
	mint := solana.NewWallet().PublicKey()
	trader := solana.NewWallet().PublicKey()
	ctx := context.Background()

	p := linearParams(mint, solana.NewWallet().PublicKey())
	p.Guard.LaunchProtectionPeriod = 3600
	p.Guard.MaxBuyDuringProtection = 50_000
	env.initialize(t, p)

	_, err := env.engine.Buy(ctx, mint, trader, 60_000)
	assert.ErrorIs(t, err, curve.ErrLaunchBuyLimit)

	_, err = env.engine.Buy(ctx, mint, trader, 50_000)
	assert.NoError(t, err, "at the cap is allowed")

	// Window expired: the cap no longer applies.
	env.now += 3600
	_, err = env.engine.Buy(ctx, mint, trader, 60_000)
	assert.NoError(t, err)
}

func TestBuyPriceImpactCap(t *testing.T) {
	env := newTestEnv(t)
	mint := solana.NewWallet().PublicKey()
	trader := solana.NewWallet().PublicKey()
	ctx := context.Background()

	p := linearParams(mint, solana.NewWallet().PublicKey())
	p.Guard.MaxPriceImpactBps = 500
	env.initialize(t, p)

	// 100_000 lamports moves the price 1000 -> 1010: 100 bps, under the cap.
	_, err := env.engine.Buy(ctx, mint, trader, 100_000)
	assert.NoError(t, err)
}

func TestBuyCustodyFailureLeavesStateUnchanged(t *testing.T) {
	env := newTestEnv(t)
	mint := solana.NewWallet().PublicKey()
	trader := solana.NewWallet().PublicKey()
	ctx := context.Background()

	env.initialize(t, linearParams(mint, solana.NewWallet().PublicKey()))

	before, err := env.engine.State(mint)
	require.NoError(t, err)

	env.custody.FailMint = errors.New("rpc unavailable")
	_, err = env.engine.Buy(ctx, mint, trader, 100_000)
	require.Error(t, err)

	after, err := env.engine.State(mint)
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed custody call must not commit state")

	activity, err := env.engine.Activity(mint, trader)
	require.NoError(t, err)
	assert.Equal(t, curve.UserActivity{}, activity)
}

func TestSellRoundTripConservation(t *testing.T) {
	env := newTestEnv(t)
	mint := solana.NewWallet().PublicKey()
	trader := solana.NewWallet().PublicKey()
	ctx := context.Background()

	// Zero fees so the round trip isolates curve arithmetic.
	env.initialize(t, linearParams(mint, solana.NewWallet().PublicKey()))

	buy, err := env.engine.Buy(ctx, mint, trader, 100_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), buy.TokensMinted)
	assert.Equal(t, uint64(1010), buy.NewPrice)

	sell, err := env.engine.Sell(ctx, mint, trader, 100)
	require.NoError(t, err)

	// The exit executes at the post-buy price, so the gross exceeds what
	// went in; the treasury floor clamps at zero instead of failing.
	assert.Equal(t, uint64(101_000), sell.GrossLamports)
	assert.Equal(t, uint64(101_000), sell.NetLamports)
	assert.Equal(t, uint64(1000), sell.NewPrice)

	state, err := env.engine.State(mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), state.TotalSupply)
	assert.Equal(t, uint64(1000), state.CurrentPrice, "price walks back to the initial price")
	assert.Equal(t, uint64(0), state.TreasuryBalance)
	assert.Equal(t, uint64(201_000), state.TotalVolume, "volume counts both legs gross")

	assert.Equal(t, uint64(0), env.custody.TokenBalance(mint, trader), "tokens burned")
}

func TestSellWithFees(t *testing.T) {
	env := newTestEnv(t)
	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	trader := solana.NewWallet().PublicKey()
	ctx := context.Background()

	p := linearParams(mint, creator)
	p.Fees = curve.FeeConfig{TransactionFeeBps: 100, CreatorFeeBps: 50, PlatformFeeBps: 50}
	env.initialize(t, p)

	_, err := env.engine.Buy(ctx, mint, trader, 100_000)
	require.NoError(t, err)

	sell, err := env.engine.Sell(ctx, mint, trader, 50)
	require.NoError(t, err)

	// 50 tokens at 1009 gross 50_450; 1% fee 504, net 49_946.
	assert.Equal(t, uint64(50_450), sell.GrossLamports)
	assert.Equal(t, uint64(504), sell.Fees.Fee)
	assert.Equal(t, uint64(49_946), sell.NetLamports)
	assert.Equal(t, uint64(252), sell.Fees.CreatorShare)
	assert.Equal(t, uint64(252), sell.Fees.PlatformShare)
	// Price walks down 100 * 50 / 1000 = 5.
	assert.Equal(t, uint64(1004), sell.NewPrice)
}

func TestSellRejections(t *testing.T) {
	env := newTestEnv(t)
	mint := solana.NewWallet().PublicKey()
	trader := solana.NewWallet().PublicKey()
	ctx := context.Background()

	env.initialize(t, linearParams(mint, solana.NewWallet().PublicKey()))

	_, err := env.engine.Sell(ctx, mint, trader, 0)
	assert.ErrorIs(t, err, curve.ErrInvalidAmount)

	_, err = env.engine.Sell(ctx, mint, trader, 1)
	assert.ErrorIs(t, err, curve.ErrArithmeticOverflow, "selling into zero supply underflows")
}

func TestSellsAreNeverThrottled(t *testing.T) {
	env := newTestEnv(t)
	mint := solana.NewWallet().PublicKey()
	trader := solana.NewWallet().PublicKey()
	ctx := context.Background()

	p := linearParams(mint, solana.NewWallet().PublicKey())
	p.Guard.TransactionCooldown = 3600
	env.initialize(t, p)

	_, err := env.engine.Buy(ctx, mint, trader, 100_000)
	require.NoError(t, err)

	// Still inside the buy cooldown, but sells always go through.
	for i := 0; i < 3; i++ {
		_, err = env.engine.Sell(ctx, mint, trader, 10)
		require.NoError(t, err)
	}
}
