// internal/custody/solana.go
package custody

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// SPL token program instruction indexes used by the adapter.
const (
	tokenIxMintTo        = 7
	tokenIxBurn          = 8
	tokenIxFreezeAccount = 10
	tokenIxThawAccount   = 11

	systemIxTransfer = 2
)

// Sender submits built instructions to the chain. It is the narrow seam
// between the custody adapter and the RPC layer, and what tests stub out.
type Sender interface {
	SendInstructions(ctx context.Context, ixs []solana.Instruction) (solana.Signature, error)
}

// Solana implements TokenCustody and MetadataRegistrar by building SPL
// token and system program instructions and submitting them through a
// Sender with exponential-backoff retries.
type Solana struct {
	sender          Sender
	authority       solana.PublicKey
	metadataProgram solana.PublicKey
	logger          *zap.Logger
}

func NewSolana(sender Sender, authority, metadataProgram solana.PublicKey, logger *zap.Logger) *Solana {
	return &Solana{
		sender:          sender,
		authority:       authority,
		metadataProgram: metadataProgram,
		logger:          logger.Named("custody"),
	}
}

func (c *Solana) submit(ctx context.Context, kind string, ix solana.Instruction) error {
	operation := func() error {
		_, err := c.sender.SendInstructions(ctx, []solana.Instruction{ix})
		return err
	}
	if err := backoff.Retry(operation, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		c.logger.Error("custody instruction failed", zap.String("kind", kind), zap.Error(err))
		return fmt.Errorf("failed to submit %s instruction: %w", kind, err)
	}
	c.logger.Debug("custody instruction confirmed", zap.String("kind", kind))
	return nil
}

func amountData(index byte, amount uint64) []byte {
	data := make([]byte, 9)
	data[0] = index
	binary.LittleEndian.PutUint64(data[1:], amount)
	return data
}

func (c *Solana) Mint(ctx context.Context, asset, destination solana.PublicKey, amount uint64) error {
	accounts := []*solana.AccountMeta{
		solana.Meta(asset).WRITE(),
		solana.Meta(destination).WRITE(),
		solana.Meta(c.authority).SIGNER(),
	}
	ix := solana.NewInstruction(solana.TokenProgramID, accounts, amountData(tokenIxMintTo, amount))
	return c.submit(ctx, "mint_to", ix)
}

func (c *Solana) Burn(ctx context.Context, asset, source solana.PublicKey, amount uint64) error {
	accounts := []*solana.AccountMeta{
		solana.Meta(source).WRITE(),
		solana.Meta(asset).WRITE(),
		solana.Meta(c.authority).SIGNER(),
	}
	ix := solana.NewInstruction(solana.TokenProgramID, accounts, amountData(tokenIxBurn, amount))
	return c.submit(ctx, "burn", ix)
}

func (c *Solana) TransferValue(ctx context.Context, from, to solana.PublicKey, lamports uint64) error {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], systemIxTransfer)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	accounts := []*solana.AccountMeta{
		solana.Meta(from).WRITE().SIGNER(),
		solana.Meta(to).WRITE(),
	}
	ix := solana.NewInstruction(solana.SystemProgramID, accounts, data)
	return c.submit(ctx, "transfer", ix)
}

func (c *Solana) Freeze(ctx context.Context, asset, account solana.PublicKey) error {
	accounts := []*solana.AccountMeta{
		solana.Meta(account).WRITE(),
		solana.Meta(asset),
		solana.Meta(c.authority).SIGNER(),
	}
	ix := solana.NewInstruction(solana.TokenProgramID, accounts, []byte{tokenIxFreezeAccount})
	return c.submit(ctx, "freeze_account", ix)
}

func (c *Solana) Thaw(ctx context.Context, asset, account solana.PublicKey) error {
	accounts := []*solana.AccountMeta{
		solana.Meta(account).WRITE(),
		solana.Meta(asset),
		solana.Meta(c.authority).SIGNER(),
	}
	ix := solana.NewInstruction(solana.TokenProgramID, accounts, []byte{tokenIxThawAccount})
	return c.submit(ctx, "thaw_account", ix)
}

// RegisterMetadata serializes name, symbol and uri as zero-terminated
// strings after a single-byte discriminator, matching the metadata
// program's create entry.
func (c *Solana) RegisterMetadata(ctx context.Context, asset solana.PublicKey, name, symbol, uri string, decimals uint8) error {
	data := []byte{0x21}
	data = append(data, []byte(name)...)
	data = append(data, 0)
	data = append(data, []byte(symbol)...)
	data = append(data, 0)
	data = append(data, []byte(uri)...)
	data = append(data, 0, decimals)

	accounts := []*solana.AccountMeta{
		solana.Meta(asset).WRITE(),
		solana.Meta(c.authority).SIGNER().WRITE(),
	}
	ix := solana.NewInstruction(c.metadataProgram, accounts, data)
	return c.submit(ctx, "register_metadata", ix)
}
