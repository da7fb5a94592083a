// ====================================
// File: cmd/degenie/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"os"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/adeavid/degenie/internal/config"
	"github.com/adeavid/degenie/internal/custody"
	"github.com/adeavid/degenie/internal/daemon"
	"github.com/adeavid/degenie/internal/export"
	"github.com/adeavid/degenie/internal/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	exportFormat := flag.String("export", "", "export the persisted trade history (csv or json) and exit")
	exportDir := flag.String("export-dir", "exports", "directory for exported trade files")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		// No logger yet; this is the one bare-stderr exit.
		zap.NewExample().Fatal("failed to load configuration", zap.Error(err))
	}

	log, err := logger.New(&logger.Config{
		LogFile:     cfg.LogFile,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      7,
		Compress:    true,
		Development: cfg.DebugLogging,
	})
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("starting bonding curve engine")

	tc, reg := buildCustody(cfg, log.Logger)

	runner, err := daemon.NewRunner(cfg, tc, reg, log.Logger)
	if err != nil {
		log.Fatal("failed to initialize", zap.Error(err))
	}

	if err := runner.Restore(ctx); err != nil {
		log.Fatal("failed to restore state", zap.Error(err))
	}

	if *exportFormat != "" {
		path, err := runner.ExportTrades(ctx, export.ExportFormat(*exportFormat), *exportDir)
		if err != nil {
			log.Fatal("failed to export trades", zap.Error(err))
		}
		log.Info("trade history exported", zap.String("file", path))
		runner.Shutdown()
		return
	}

	if err := runner.Run(ctx); err != nil {
		log.Fatal("runtime error", zap.Error(err))
	}
}

// buildCustody selects on-chain custody when an RPC endpoint is configured,
// otherwise the in-memory simulation.
func buildCustody(cfg *config.Config, log *zap.Logger) (custody.TokenCustody, custody.MetadataRegistrar) {
	if cfg.RPCEndpoint == "" {
		log.Warn("no rpc_endpoint configured, running with simulated custody")
		mem := custody.NewMemory()
		return mem, mem
	}

	signer := solana.MustPrivateKeyFromBase58(cfg.AuthorityKey)
	metadataProgram := solana.MustPublicKeyFromBase58(cfg.MetadataProgram)
	sender := custody.NewRPCSender(cfg.RPCEndpoint, signer, log)
	sol := custody.NewSolana(sender, signer.PublicKey(), metadataProgram, log)
	return sol, sol
}
