// internal/daemon/runner.go
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adeavid/degenie/internal/config"
	"github.com/adeavid/degenie/internal/custody"
	"github.com/adeavid/degenie/internal/engine"
	"github.com/adeavid/degenie/internal/export"
	"github.com/adeavid/degenie/internal/metrics"
	"github.com/adeavid/degenie/internal/store"
	"github.com/adeavid/degenie/internal/store/sqlite"
)

// Runner wires the configuration, persistence, metrics and engine together
// and owns the process lifecycle.
type Runner struct {
	logger     *zap.Logger
	config     *config.Config
	db         *sqlite.DB
	store      *store.Store
	engine     *engine.Engine
	registry   *prometheus.Registry
	shutdownCh chan os.Signal
}

func NewRunner(cfg *config.Config, tc custody.TokenCustody, reg custody.MetadataRegistrar, logger *zap.Logger) (*Runner, error) {
	programID, err := solana.PublicKeyFromBase58(cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("invalid program id: %w", err)
	}
	platformWallet, err := solana.PublicKeyFromBase58(cfg.PlatformWallet)
	if err != nil {
		return nil, fmt.Errorf("invalid platform wallet: %w", err)
	}

	db, err := sqlite.Open(cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	st := store.New()
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	eng := engine.New(st, tc, reg, custody.SystemClock{}, engine.Options{
		ProgramID:           programID,
		PlatformWallet:      platformWallet,
		DefaultFees:         cfg.Fees.Curve(),
		DefaultGuard:        cfg.Guard.Curve(),
		GraduationThreshold: cfg.GraduationThreshold,
		Recorder:            db,
		Metrics:             collector,
	}, logger)

	return &Runner{
		logger:     logger.Named("daemon"),
		config:     cfg,
		db:         db,
		store:      st,
		engine:     eng,
		registry:   registry,
		shutdownCh: make(chan os.Signal, 1),
	}, nil
}

// Engine exposes the wired engine to the serving layer.
func (r *Runner) Engine() *engine.Engine {
	return r.engine
}

// Restore loads persisted curve snapshots into the in-memory store.
func (r *Runner) Restore(ctx context.Context) error {
	states, err := r.db.LoadCurves(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore curves: %w", err)
	}
	for _, state := range states {
		if err := r.store.Create(*state); err != nil {
			return fmt.Errorf("failed to restore curve %s: %w", state.Mint, err)
		}
	}
	r.logger.Info("curves restored", zap.Int("count", len(states)))
	return nil
}

// ExportTrades collects the persisted trade history of every known curve
// and writes it to a single file in outputDir. Call Restore first so the
// store knows the curves.
func (r *Runner) ExportTrades(ctx context.Context, format export.ExportFormat, outputDir string) (string, error) {
	var trades []store.TradeRecord
	for _, mint := range r.store.Mints() {
		history, err := r.db.ListTrades(ctx, mint.String(), 0)
		if err != nil {
			return "", fmt.Errorf("failed to load trade history for %s: %w", mint, err)
		}
		trades = append(trades, history...)
	}

	exporter := export.NewTradeExporter(r.logger)
	return exporter.ExportTrades(trades, export.ExportOptions{
		Format:    format,
		OutputDir: outputDir,
	})
}

// Run serves the metrics endpoint and blocks until a signal or a server
// failure.
func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:    r.config.MetricsAddr,
		Handler: mux,
	}

	g.Go(func() error {
		r.logger.Info("metrics server listening", zap.String("addr", r.config.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		select {
		case sig := <-r.shutdownCh:
			r.logger.Info("signal received", zap.String("signal", sig.String()))
		case <-gCtx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	r.Shutdown()
	return err
}

// Shutdown flushes and closes everything the runner owns.
func (r *Runner) Shutdown() {
	r.logger.Info("shutting down")
	if err := r.db.Close(); err != nil {
		r.logger.Warn("failed to close database", zap.Error(err))
	}
}
