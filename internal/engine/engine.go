// ==============================================
// File: internal/engine/engine.go
// ==============================================
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/adeavid/degenie/internal/curve"
	"github.com/adeavid/degenie/internal/custody"
	"github.com/adeavid/degenie/internal/metrics"
	"github.com/adeavid/degenie/internal/store"
)

// Recorder is the optional write-behind persistence hook. Failures are
// logged, never propagated: the in-memory store is authoritative during a
// trade.
type Recorder interface {
	SaveCurve(ctx context.Context, state *curve.State) error
	SaveActivity(ctx context.Context, mint, trader solana.PublicKey, activity curve.UserActivity) error
	RecordTrade(ctx context.Context, trade store.TradeRecord) error
}

// Engine is the curve state machine. Each operation runs under the curve's
// lock as one indivisible unit: guard checks, then every computation, then
// the custody calls, and only after all of them succeed the state commit.
// Any rejection leaves the curve exactly as it was.
type Engine struct {
	store     *store.Store
	custody   custody.TokenCustody
	registrar custody.MetadataRegistrar
	clock     custody.Clock

	programID      solana.PublicKey
	platformWallet solana.PublicKey

	defaultFees      curve.FeeConfig
	defaultGuard     curve.GuardConfig
	defaultThreshold uint64

	recorder Recorder
	metrics  *metrics.Collector
	logger   *zap.Logger
}

type Options struct {
	ProgramID      solana.PublicKey
	PlatformWallet solana.PublicKey

	// DefaultFees, DefaultGuard and GraduationThreshold back-fill
	// InitializeParams sections the caller leaves zero. They come from
	// configuration in the daemon.
	DefaultFees         curve.FeeConfig
	DefaultGuard        curve.GuardConfig
	GraduationThreshold uint64

	Recorder Recorder
	Metrics  *metrics.Collector
}

func New(st *store.Store, tc custody.TokenCustody, reg custody.MetadataRegistrar, clock custody.Clock, opts Options, logger *zap.Logger) *Engine {
	return &Engine{
		store:            st,
		custody:          tc,
		registrar:        reg,
		clock:            clock,
		programID:        opts.ProgramID,
		platformWallet:   opts.PlatformWallet,
		defaultFees:      opts.DefaultFees,
		defaultGuard:     opts.DefaultGuard,
		defaultThreshold: opts.GraduationThreshold,
		recorder:         opts.Recorder,
		metrics:          opts.Metrics,
		logger:           logger.Named("engine"),
	}
}

// InitializeParams carries everything needed to launch a curve. CurveType,
// GrowthRate, PriceIncrement and MaxSupply become immutable.
type InitializeParams struct {
	Mint      solana.PublicKey
	Authority solana.PublicKey

	Name     string
	Symbol   string
	URI      string
	Decimals uint8

	CurveType      curve.CurveType
	InitialPrice   uint64
	PriceIncrement uint64
	GrowthRate     uint64
	MaxSupply      uint64

	Fees  curve.FeeConfig
	Guard curve.GuardConfig

	// GraduationThreshold of 0 selects the default.
	GraduationThreshold uint64
}

func validateMetadata(p InitializeParams) error {
	if p.Name == "" || len(p.Name) > 32 {
		return curve.ErrInvalidName
	}
	if p.Symbol == "" || len(p.Symbol) > 10 {
		return curve.ErrInvalidSymbol
	}
	if p.URI == "" {
		return curve.ErrInvalidURI
	}
	if p.Decimals > 9 {
		return curve.ErrInvalidDecimals
	}
	return nil
}

// Initialize validates parameters, registers metadata, charges the creation
// fee into the treasury and activates the curve at supply zero. Fee, guard
// and threshold sections left entirely zero take the engine defaults.
func (e *Engine) Initialize(ctx context.Context, p InitializeParams) (curve.State, error) {
	if p.Fees == (curve.FeeConfig{}) {
		p.Fees = e.defaultFees
	}
	if p.Guard == (curve.GuardConfig{}) {
		p.Guard = e.defaultGuard
	}
	if p.GraduationThreshold == 0 {
		p.GraduationThreshold = e.defaultThreshold
	}

	if err := validateMetadata(p); err != nil {
		return curve.State{}, e.reject("initialize", err)
	}
	if err := curve.ValidateParams(p.CurveType, p.InitialPrice, p.PriceIncrement, p.GrowthRate, p.MaxSupply); err != nil {
		return curve.State{}, e.reject("initialize", err)
	}
	if err := curve.ValidateFees(p.Fees); err != nil {
		return curve.State{}, e.reject("initialize", err)
	}
	// Reject taken mints before any external side effect; Create below
	// still arbitrates concurrent racers.
	if _, err := e.store.Get(p.Mint); err == nil {
		return curve.State{}, e.reject("initialize", curve.ErrCurveExists)
	}

	treasury, _, err := custody.DeriveTreasuryAddress(p.Mint, e.programID)
	if err != nil {
		return curve.State{}, fmt.Errorf("failed to derive treasury address: %w", err)
	}

	if err := e.registrar.RegisterMetadata(ctx, p.Mint, p.Name, p.Symbol, p.URI, p.Decimals); err != nil {
		return curve.State{}, fmt.Errorf("failed to register metadata: %w", err)
	}
	if p.Fees.CreationFee > 0 {
		if err := e.custody.TransferValue(ctx, p.Authority, treasury, p.Fees.CreationFee); err != nil {
			return curve.State{}, fmt.Errorf("failed to charge creation fee: %w", err)
		}
	}

	guard := p.Guard
	if guard.CreationTimestamp == 0 {
		guard.CreationTimestamp = e.clock.Now()
	}
	threshold := p.GraduationThreshold
	if threshold == 0 {
		threshold = curve.DefaultGraduationThreshold
	}

	state := curve.State{
		Mint:                p.Mint,
		Authority:           p.Authority,
		CurveType:           p.CurveType,
		InitialPrice:        p.InitialPrice,
		CurrentPrice:        p.InitialPrice,
		PriceIncrement:      p.PriceIncrement,
		GrowthRate:          p.GrowthRate,
		MaxSupply:           p.MaxSupply,
		TreasuryBalance:     p.Fees.CreationFee,
		GraduationThreshold: threshold,
		Fees:                p.Fees,
		Guard:               guard,
	}
	if err := e.store.Create(state); err != nil {
		return curve.State{}, e.reject("initialize", err)
	}

	e.metrics.CurveCreated()
	e.persistCurve(ctx, &state)
	e.logger.Info("bonding curve initialized",
		zap.String("mint", p.Mint.String()),
		zap.String("curve_type", p.CurveType.String()),
		zap.Uint64("initial_price", p.InitialPrice),
		zap.Uint64("max_supply", p.MaxSupply))
	return state, nil
}

// BuyResult reports an accepted buy.
type BuyResult struct {
	TokensMinted uint64
	Fees         curve.FeeBreakdown
	NewPrice     uint64
	Graduated    bool
}

// Buy prices sol_amount against the curve, mints the tokens through
// custody and applies all deltas as one atomic unit, then re-evaluates the
// graduation condition.
func (e *Engine) Buy(ctx context.Context, mint, trader solana.PublicKey, solAmount uint64) (BuyResult, error) {
	var result BuyResult

	treasury, _, err := custody.DeriveTreasuryAddress(mint, e.programID)
	if err != nil {
		return result, fmt.Errorf("failed to derive treasury address: %w", err)
	}

	err = e.store.UpdateTrade(mint, trader, func(s *curve.State, activity *curve.UserActivity) error {
		if s.IsGraduated {
			return curve.ErrCurveGraduated
		}
		if solAmount == 0 {
			return curve.ErrInvalidAmount
		}

		now := e.clock.Now()
		if err := curve.CheckBuy(s, activity, now, solAmount); err != nil {
			return err
		}

		fees, err := curve.SplitFee(solAmount, s.Fees)
		if err != nil {
			return err
		}
		tokens, err := curve.TokensForSol(s, fees.Net)
		if err != nil {
			return err
		}
		if tokens == 0 {
			return curve.ErrZeroTokenPurchase
		}

		newSupply, err := curve.CheckedAdd(s.TotalSupply, tokens)
		if err != nil {
			return err
		}
		if newSupply > s.MaxSupply {
			return curve.ErrExceedsMaxSupply
		}
		newPrice, err := curve.NextBuyPrice(s, tokens)
		if err != nil {
			return err
		}

		// Everything the commit needs is computed up front; an arithmetic
		// failure past this point cannot leave partial state.
		newTreasury, err := curve.CheckedAdd(s.TreasuryBalance, solAmount)
		if err != nil {
			return err
		}
		newTreasury, err = curve.CheckedSub(newTreasury, fees.CreatorShare)
		if err != nil {
			return err
		}
		newTreasury, err = curve.CheckedSub(newTreasury, fees.PlatformShare)
		if err != nil {
			return err
		}
		newVolume, err := curve.CheckedAdd(s.TotalVolume, solAmount)
		if err != nil {
			return err
		}
		totalBought, err := curve.CheckedAdd(activity.TotalBought, solAmount)
		if err != nil {
			return err
		}
		marketCap, err := curve.CheckedMul(newSupply, newPrice)
		if err != nil {
			return err
		}

		// Custody must succeed before any state is committed.
		if err := e.custody.TransferValue(ctx, trader, treasury, solAmount); err != nil {
			return fmt.Errorf("failed to collect payment: %w", err)
		}
		if err := e.custody.Mint(ctx, mint, trader, tokens); err != nil {
			return fmt.Errorf("failed to mint tokens: %w", err)
		}
		if fees.CreatorShare > 0 {
			if err := e.custody.TransferValue(ctx, treasury, s.Authority, fees.CreatorShare); err != nil {
				return fmt.Errorf("failed to pay creator fee: %w", err)
			}
		}
		if fees.PlatformShare > 0 {
			if err := e.custody.TransferValue(ctx, treasury, e.platformWallet, fees.PlatformShare); err != nil {
				return fmt.Errorf("failed to pay platform fee: %w", err)
			}
		}

		s.TotalSupply = newSupply
		s.CurrentPrice = newPrice
		s.TreasuryBalance = newTreasury
		s.TotalVolume = newVolume
		activity.LastTransactionTime = now
		activity.TotalBought = totalBought
		activity.TransactionCount++

		// Crossing the threshold flips the curve, irreversibly, even if
		// the triggering buyer would rather undo it.
		if marketCap >= s.GraduationThreshold {
			s.IsGraduated = true
			result.Graduated = true
		}

		result.TokensMinted = tokens
		result.Fees = fees
		result.NewPrice = newPrice

		e.persistTrade(ctx, s, trader, *activity, store.TradeRecord{
			Mint:      mint.String(),
			Trader:    trader.String(),
			Side:      "buy",
			Lamports:  solAmount,
			Tokens:    tokens,
			Price:     newPrice,
			Fee:       fees.Fee,
			Timestamp: time.Unix(now, 0).UTC(),
		})
		return nil
	})
	if err != nil {
		return BuyResult{}, e.reject("buy", err)
	}

	e.metrics.RecordTrade("buy", solAmount)
	if result.Graduated {
		e.metrics.RecordGraduation()
		e.logger.Info("curve graduated on buy", zap.String("mint", mint.String()))
	}
	e.logger.Debug("buy executed",
		zap.String("mint", mint.String()),
		zap.String("trader", trader.String()),
		zap.Uint64("sol_amount", solAmount),
		zap.Uint64("tokens_minted", result.TokensMinted),
		zap.Uint64("new_price", result.NewPrice))
	return result, nil
}

// SellResult reports an accepted sell.
type SellResult struct {
	GrossLamports uint64
	NetLamports   uint64
	Fees          curve.FeeBreakdown
	NewPrice      uint64
}

// Sell burns token_amount through custody and returns the net proceeds to
// the seller. Fees come out of the gross amount, so the treasury decreases
// by exactly the gross. Sells are not rate-limited.
func (e *Engine) Sell(ctx context.Context, mint, trader solana.PublicKey, tokenAmount uint64) (SellResult, error) {
	var result SellResult

	treasury, _, err := custody.DeriveTreasuryAddress(mint, e.programID)
	if err != nil {
		return result, fmt.Errorf("failed to derive treasury address: %w", err)
	}

	err = e.store.UpdateTrade(mint, trader, func(s *curve.State, _ *curve.UserActivity) error {
		if s.IsGraduated {
			return curve.ErrCurveGraduated
		}
		if tokenAmount == 0 {
			return curve.ErrInvalidAmount
		}

		newSupply, err := curve.CheckedSub(s.TotalSupply, tokenAmount)
		if err != nil {
			return err
		}
		gross, err := curve.SolForTokens(s, tokenAmount)
		if err != nil {
			return err
		}
		fees, err := curve.SplitFee(gross, s.Fees)
		if err != nil {
			return err
		}
		newPrice, err := curve.NextSellPrice(s, tokenAmount)
		if err != nil {
			return err
		}
		newVolume, err := curve.CheckedAdd(s.TotalVolume, gross)
		if err != nil {
			return err
		}
		// The treasury floor deliberately clamps instead of failing the
		// seller's exit.
		newTreasury := curve.SaturatingSub(s.TreasuryBalance, gross)

		if err := e.custody.Burn(ctx, mint, trader, tokenAmount); err != nil {
			return fmt.Errorf("failed to burn tokens: %w", err)
		}
		if fees.Net > 0 {
			if err := e.custody.TransferValue(ctx, treasury, trader, fees.Net); err != nil {
				return fmt.Errorf("failed to pay seller: %w", err)
			}
		}
		if fees.CreatorShare > 0 {
			if err := e.custody.TransferValue(ctx, treasury, s.Authority, fees.CreatorShare); err != nil {
				return fmt.Errorf("failed to pay creator fee: %w", err)
			}
		}
		if fees.PlatformShare > 0 {
			if err := e.custody.TransferValue(ctx, treasury, e.platformWallet, fees.PlatformShare); err != nil {
				return fmt.Errorf("failed to pay platform fee: %w", err)
			}
		}

		s.TotalSupply = newSupply
		s.CurrentPrice = newPrice
		s.TreasuryBalance = newTreasury
		s.TotalVolume = newVolume

		result.GrossLamports = gross
		result.NetLamports = fees.Net
		result.Fees = fees
		result.NewPrice = newPrice

		e.persistTrade(ctx, s, trader, curve.UserActivity{}, store.TradeRecord{
			Mint:      mint.String(),
			Trader:    trader.String(),
			Side:      "sell",
			Lamports:  gross,
			Tokens:    tokenAmount,
			Price:     newPrice,
			Fee:       fees.Fee,
			Timestamp: time.Unix(e.clock.Now(), 0).UTC(),
		})
		return nil
	})
	if err != nil {
		return SellResult{}, e.reject("sell", err)
	}

	e.metrics.RecordTrade("sell", result.GrossLamports)
	e.logger.Debug("sell executed",
		zap.String("mint", mint.String()),
		zap.String("trader", trader.String()),
		zap.Uint64("tokens_burned", tokenAmount),
		zap.Uint64("gross_lamports", result.GrossLamports),
		zap.Uint64("new_price", result.NewPrice))
	return result, nil
}

// reject logs and counts a rejection without touching curve state.
func (e *Engine) reject(op string, err error) error {
	kind := "external"
	switch curve.KindOf(err) {
	case curve.KindValidation:
		kind = "validation"
	case curve.KindArithmetic:
		kind = "arithmetic"
	case curve.KindPolicy:
		kind = "policy"
	case curve.KindState:
		kind = "state"
	}
	e.metrics.RecordRejection(kind)
	e.logger.Debug("operation rejected",
		zap.String("operation", op),
		zap.String("kind", kind),
		zap.Error(err))
	return err
}

func (e *Engine) persistCurve(ctx context.Context, s *curve.State) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.SaveCurve(ctx, s); err != nil {
		e.logger.Warn("failed to persist curve snapshot", zap.Error(err))
	}
}

func (e *Engine) persistTrade(ctx context.Context, s *curve.State, trader solana.PublicKey, activity curve.UserActivity, trade store.TradeRecord) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.SaveCurve(ctx, s); err != nil {
		e.logger.Warn("failed to persist curve snapshot", zap.Error(err))
	}
	if trade.Side == "buy" {
		if err := e.recorder.SaveActivity(ctx, s.Mint, trader, activity); err != nil {
			e.logger.Warn("failed to persist user activity", zap.Error(err))
		}
	}
	if err := e.recorder.RecordTrade(ctx, trade); err != nil {
		e.logger.Warn("failed to persist trade", zap.Error(err))
	}
}

// State returns a copy of the curve record.
func (e *Engine) State(mint solana.PublicKey) (curve.State, error) {
	return e.store.Get(mint)
}

// Activity returns a copy of the trader's activity record.
func (e *Engine) Activity(mint, trader solana.PublicKey) (curve.UserActivity, error) {
	return e.store.Activity(mint, trader)
}
