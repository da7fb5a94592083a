// internal/store/store_test.go
package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adeavid/degenie/internal/curve"
)

func testState(mint solana.PublicKey) curve.State {
	return curve.State{
		Mint:         mint,
		CurveType:    curve.CurveLinear,
		InitialPrice: 1000,
		CurrentPrice: 1000,
		MaxSupply:    1_000_000,
	}
}

func TestCreateAndGet(t *testing.T) {
	s := New()
	mint := solana.NewWallet().PublicKey()

	require.NoError(t, s.Create(testState(mint)))

	got, err := s.Get(mint)
	require.NoError(t, err)
	assert.Equal(t, mint, got.Mint)

	assert.ErrorIs(t, s.Create(testState(mint)), curve.ErrCurveExists)

	_, err = s.Get(solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, curve.ErrCurveNotFound)
}

func TestUpdateTradeCommitsOnSuccess(t *testing.T) {
	s := New()
	mint := solana.NewWallet().PublicKey()
	trader := solana.NewWallet().PublicKey()
	require.NoError(t, s.Create(testState(mint)))

	err := s.UpdateTrade(mint, trader, func(state *curve.State, activity *curve.UserActivity) error {
		state.TotalSupply = 42
		activity.TransactionCount = 1
		return nil
	})
	require.NoError(t, err)

	got, err := s.Get(mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got.TotalSupply)

	activity, err := s.Activity(mint, trader)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), activity.TransactionCount)
}

func TestUpdateTradeRollsBackOnError(t *testing.T) {
	s := New()
	mint := solana.NewWallet().PublicKey()
	trader := solana.NewWallet().PublicKey()
	require.NoError(t, s.Create(testState(mint)))

	boom := errors.New("mid-flight failure")
	err := s.UpdateTrade(mint, trader, func(state *curve.State, activity *curve.UserActivity) error {
		state.TotalSupply = 42
		activity.TransactionCount = 7
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Get(mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got.TotalSupply, "failed update must not commit")

	activity, err := s.Activity(mint, trader)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), activity.TransactionCount)
}

func TestUpdateSerializesWriters(t *testing.T) {
	s := New()
	mint := solana.NewWallet().PublicKey()
	require.NoError(t, s.Create(testState(mint)))

	// 100 concurrent increments; per-curve locking means none are lost.
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update(mint, func(state *curve.State) error {
				state.TotalSupply++
				return nil
			})
		}()
	}
	wg.Wait()

	got, err := s.Get(mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), got.TotalSupply)
}

func TestActivityIsolatedPerTrader(t *testing.T) {
	s := New()
	mint := solana.NewWallet().PublicKey()
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	require.NoError(t, s.Create(testState(mint)))

	require.NoError(t, s.UpdateTrade(mint, a, func(_ *curve.State, activity *curve.UserActivity) error {
		activity.TotalBought = 500
		return nil
	}))

	activityB, err := s.Activity(mint, b)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), activityB.TotalBought)
}

func TestMints(t *testing.T) {
	s := New()
	m1 := solana.NewWallet().PublicKey()
	m2 := solana.NewWallet().PublicKey()
	require.NoError(t, s.Create(testState(m1)))
	require.NoError(t, s.Create(testState(m2)))

	assert.ElementsMatch(t, []solana.PublicKey{m1, m2}, s.Mints())
}
