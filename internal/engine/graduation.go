// ==============================================
// File: internal/engine/graduation.go
// ==============================================
package engine

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/adeavid/degenie/internal/curve"
	"github.com/adeavid/degenie/internal/custody"
)

// MarketCap is total_supply * current_price, checked. A curve whose market
// cap no longer fits in 64 bits has outgrown the engine and must fail
// loudly rather than report a wrapped number.
func MarketCap(s *curve.State) (uint64, error) {
	return curve.CheckedMul(s.TotalSupply, s.CurrentPrice)
}

// GraduationProgress reports how far along a curve is toward its threshold,
// in basis points, saturating at 10000.
func GraduationProgress(s *curve.State) (uint64, error) {
	mcap, err := MarketCap(s)
	if err != nil {
		return 0, err
	}
	if s.GraduationThreshold == 0 || mcap >= s.GraduationThreshold {
		return curve.BasisPoints, nil
	}
	return curve.SaturatingMulDiv(mcap, curve.BasisPoints, s.GraduationThreshold), nil
}

// GraduateResult reports a completed graduation.
type GraduateResult struct {
	MarketCap       uint64
	MigrationAmount uint64
	Retained        uint64
}

// Graduate finalizes a curve whose market cap has reached the threshold. It
// marks the curve graduated, freezing trading permanently, and earmarks
// MigrationPercent of the treasury for the external pool. Calling it on an
// already-graduated curve that never had its migration earmarked (the
// auto-flip path during a buy) completes the earmark; calling it again after
// that is rejected.
func (e *Engine) Graduate(ctx context.Context, mint solana.PublicKey) (GraduateResult, error) {
	var result GraduateResult

	err := e.store.Update(mint, func(s *curve.State) error {
		if s.IsGraduated && s.MigrationAmount > 0 {
			return curve.ErrCurveGraduated
		}

		mcap, err := MarketCap(s)
		if err != nil {
			return err
		}
		if mcap < s.GraduationThreshold {
			return curve.ErrThresholdNotMet
		}

		migration, err := curve.CheckedMulDiv(s.TreasuryBalance, curve.MigrationPercent, 100)
		if err != nil {
			return err
		}

		wasGraduated := s.IsGraduated
		s.IsGraduated = true
		s.MigrationAmount = migration
		s.TreasuryBalance -= migration

		result.MarketCap = mcap
		result.MigrationAmount = migration
		result.Retained = s.TreasuryBalance

		if !wasGraduated {
			e.metrics.RecordGraduation()
		}
		e.persistCurve(ctx, s)
		return nil
	})
	if err != nil {
		return GraduateResult{}, e.reject("graduate", err)
	}

	e.logger.Info("curve graduated",
		zap.String("mint", mint.String()),
		zap.Uint64("market_cap", result.MarketCap),
		zap.Uint64("migration_amount", result.MigrationAmount),
		zap.Uint64("retained", result.Retained))
	return result, nil
}

// PoolRecord is the one-shot bootstrap record for the external liquidity
// pool. Pool mechanics live outside the engine; the record pins down what
// was handed over.
type PoolRecord struct {
	Mint          solana.PublicKey
	PoolAuthority solana.PublicKey
	BaseTokens    uint64
	QuoteLamports uint64
	FinalPrice    uint64
	FinalSupply   uint64
}

// CreateExternalPool is the thin pass-through that seeds the external pool:
// it mints the base side to the pool authority and moves the quote side out
// of the graduation earmark. Requires a completed Graduate call; runs at
// most once per curve.
func (e *Engine) CreateExternalPool(ctx context.Context, mint, poolAuthority solana.PublicKey, baseAmount, quoteAmount uint64) (PoolRecord, error) {
	var record PoolRecord

	treasury, _, err := custody.DeriveTreasuryAddress(mint, e.programID)
	if err != nil {
		return record, fmt.Errorf("failed to derive treasury address: %w", err)
	}

	err = e.store.Update(mint, func(s *curve.State) error {
		if !s.IsGraduated {
			return curve.ErrNotGraduated
		}
		if s.PoolCreated {
			return curve.ErrPoolAlreadyCreated
		}
		if s.MigrationAmount == 0 {
			return curve.ErrThresholdNotMet
		}
		if baseAmount == 0 || quoteAmount == 0 || quoteAmount > s.MigrationAmount {
			return curve.ErrInvalidAmount
		}

		if err := e.custody.Mint(ctx, mint, poolAuthority, baseAmount); err != nil {
			return fmt.Errorf("failed to seed pool base side: %w", err)
		}
		if err := e.custody.TransferValue(ctx, treasury, poolAuthority, quoteAmount); err != nil {
			return fmt.Errorf("failed to move migration liquidity: %w", err)
		}

		record = PoolRecord{
			Mint:          mint,
			PoolAuthority: poolAuthority,
			BaseTokens:    baseAmount,
			QuoteLamports: quoteAmount,
			FinalPrice:    s.CurrentPrice,
			FinalSupply:   s.TotalSupply,
		}

		s.MigrationAmount -= quoteAmount
		s.PoolCreated = true

		e.persistCurve(ctx, s)
		return nil
	})
	if err != nil {
		return PoolRecord{}, e.reject("create_external_pool", err)
	}

	e.logger.Info("external pool bootstrapped",
		zap.String("mint", mint.String()),
		zap.String("pool_authority", poolAuthority.String()),
		zap.Uint64("base_tokens", record.BaseTokens),
		zap.Uint64("quote_lamports", record.QuoteLamports))
	return record, nil
}
