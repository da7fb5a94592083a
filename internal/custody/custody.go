// internal/custody/custody.go
package custody

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// TokenCustody is the external token-supply collaborator. The engine never
// holds balances itself: every accepted trade mints, burns or moves value
// through this interface, and the engine commits its own state only after
// the custody call reports success.
type TokenCustody interface {
	Mint(ctx context.Context, asset, destination solana.PublicKey, amount uint64) error
	Burn(ctx context.Context, asset, source solana.PublicKey, amount uint64) error
	TransferValue(ctx context.Context, from, to solana.PublicKey, lamports uint64) error
	Freeze(ctx context.Context, asset, account solana.PublicKey) error
	Thaw(ctx context.Context, asset, account solana.PublicKey) error
}

// MetadataRegistrar registers token metadata exactly once at curve creation.
type MetadataRegistrar interface {
	RegisterMetadata(ctx context.Context, asset solana.PublicKey, name, symbol, uri string, decimals uint8) error
}

// Clock supplies monotonic wall-clock seconds for the anti-bot guard and
// launch-window logic.
type Clock interface {
	Now() int64
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() int64

func (f ClockFunc) Now() int64 { return f() }

// CurveSeed and TreasurySeed are the derivation seeds of the curve's own
// escrow identities.
var (
	CurveSeed    = []byte("bonding_curve")
	TreasurySeed = []byte("treasury")
)

// DeriveCurveAddress returns the deterministic identity of the curve record
// for a mint under the given program.
func DeriveCurveAddress(mint, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{CurveSeed, mint.Bytes()}, programID)
}

// DeriveTreasuryAddress returns the escrow identity that holds the curve's
// lamports and signs its payouts.
func DeriveTreasuryAddress(mint, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{TreasurySeed, mint.Bytes()}, programID)
}
