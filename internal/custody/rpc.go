// internal/custody/rpc.go
package custody

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// RPCSender is the production Sender: it wraps a solana RPC client and a
// signing key, packing instructions into one signed transaction per submit.
type RPCSender struct {
	client *rpc.Client
	signer solana.PrivateKey
	logger *zap.Logger
}

func NewRPCSender(endpoint string, signer solana.PrivateKey, logger *zap.Logger) *RPCSender {
	return &RPCSender{
		client: rpc.New(endpoint),
		signer: signer,
		logger: logger.Named("rpc"),
	}
}

func (s *RPCSender) SendInstructions(ctx context.Context, ixs []solana.Instruction) (solana.Signature, error) {
	blockhash, err := s.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		ixs,
		blockhash.Value.Blockhash,
		solana.TransactionPayer(s.signer.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if s.signer.PublicKey().Equals(key) {
			privateCopy := s.signer
			return &privateCopy
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := s.client.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	s.logger.Debug("transaction sent", zap.String("signature", sig.String()))
	return sig, nil
}
