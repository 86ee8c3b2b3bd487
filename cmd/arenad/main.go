package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"arenachain/config"
	"arenachain/core"
	"arenachain/native/common"
	"arenachain/observability/logging"
	telemetry "arenachain/observability/otel"
	"arenachain/state"
	"arenachain/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("arenad", cfg.LogEnv, cfg.LogDir)

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.FromEnv("arenad", cfg.LogEnv, os.Getenv))
	if err != nil {
		logger.Error("Failed to init telemetry", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("Telemetry shutdown", slog.Any("error", err))
		}
	}()

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	contract, err := cfg.Contract()
	if err != nil {
		logger.Error("Invalid contract address", slog.Any("error", err))
		os.Exit(1)
	}
	authority, err := cfg.Authority()
	if err != nil {
		logger.Error("Invalid authority address", slog.Any("error", err))
		os.Exit(1)
	}

	manager := state.NewManager(db)
	processor := core.NewProcessor(manager, core.Config{
		ChainID:   cfg.ChainID,
		Contract:  contract,
		Authority: authority,
		Quota: common.Quota{
			MaxOpsPerEpoch: cfg.QuotaOpsPerEpoch,
			EpochSeconds:   cfg.QuotaEpochSecs,
		},
	})
	processor.Chests().SetMaxBatch(cfg.MaxChestBatch)

	api := newAPI(processor, logger)
	srv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           otelhttp.NewHandler(api.router(), "arenad"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("arenad listening",
			slog.String("addr", cfg.ListenAddress),
			slog.String("network", cfg.NetworkName),
			slog.Uint64("chainId", cfg.ChainID))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server stopped", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", slog.Any("error", err))
	}
}
