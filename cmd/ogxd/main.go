package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ogxd/config"
	"ogxd/native/backing"
	"ogxd/native/debt"
	"ogxd/native/debtcache"
	"ogxd/native/issuer"
	"ogxd/native/rates"
	"ogxd/native/synth"
	"ogxd/observability/logging"
	"ogxd/observability/metrics"
	"ogxd/ops/api"
	"ogxd/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("ogxd", cfg.LogFile)

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "debt"))
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	store := debt.NewStore(db)
	ledger, err := store.Load()
	if err != nil {
		logger.Error("Failed to restore debt ledger", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("debt ledger restored",
		slog.Uint64("entries", ledger.Length()),
		slog.Uint64("issuers", ledger.IssuerCount()))

	registry := synth.NewRegistry()
	for _, sc := range cfg.Synths {
		if err := registry.Add(synth.NewToken(sc.Currency, sc.Name)); err != nil {
			logger.Error("Failed to register synth", slog.String("currency", sc.Currency), slog.Any("error", err))
			os.Exit(1)
		}
	}

	source := rates.NewStatic()
	parsedRates, err := cfg.ParsedRates()
	if err != nil {
		logger.Error("Failed to parse rates", slog.Any("error", err))
		os.Exit(1)
	}
	for currency, rate := range parsedRates {
		source.SetRate(currency, rate)
	}

	excluded := backing.NewAggregator(nil, nil)
	cache := debtcache.New(registry, source, excluded, cfg.CacheStaleThreshold())
	registry.SetInvalidator(cache)

	params := issuer.Params{
		BaseCurrency:       cfg.BaseCurrency,
		Stablecoin:         cfg.Stablecoin,
		IssuanceRatio:      cfg.IssuanceRatio(),
		MinStakeTime:       cfg.MinStakeTime(),
		LiquidationPenalty: cfg.LiquidationPenalty(),
	}
	engine := issuer.NewEngine(ledger, cache, source, registry, issuer.NewCollateralBook(), params)
	engine.SetLiquidations(issuer.NewFlagRegistry())

	svc := api.NewService(engine, ledger, cache, cfg.Stablecoin)
	svc.SetStore(store)
	svc.SetMetrics(metrics.Debt())
	svc.SetLogger(logger)

	if _, err := svc.Snapshot(); err != nil {
		logger.Error("Initial debt snapshot failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opsServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           api.NewServer(svc, 50, 100).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddress,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("ops API listening", slog.String("address", cfg.ListenAddress))
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("ops server: %w", err)
		}
	}()
	go func() {
		logger.Info("metrics listening", slog.String("address", cfg.MetricsAddress))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	go snapshotLoop(ctx, svc, cfg.SnapshotInterval(), logger)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server failed", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = opsServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	if err := svc.Checkpoint(); err != nil {
		logger.Error("Final ledger checkpoint failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// snapshotLoop refreshes the debt cache on the configured cadence so the
// cached figure never crosses the stale threshold during normal operation.
func snapshotLoop(ctx context.Context, svc *api.Service, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.Snapshot(); err != nil {
				logger.Error("Periodic debt snapshot failed", slog.Any("error", err))
			}
		}
	}
}
