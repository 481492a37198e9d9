package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/vizstack/rendertune/internal/alerting"
	"github.com/vizstack/rendertune/internal/api"
	"github.com/vizstack/rendertune/internal/bus"
	"github.com/vizstack/rendertune/internal/config"
	"github.com/vizstack/rendertune/internal/engine"
	"github.com/vizstack/rendertune/internal/metrics"
	"github.com/vizstack/rendertune/internal/platform"
	"github.com/vizstack/rendertune/internal/store"
	"github.com/vizstack/rendertune/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting rendertune", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var provider store.Provider = store.NoopProvider{}
	if cfg.Store.Enabled {
		badgerProvider, err := store.NewBadgerProvider(cfg.Store.Path, logger)
		if err != nil {
			logger.Warn("persistent store unavailable, running without history",
				slog.String("path", cfg.Store.Path), slog.Any("error", err))
		} else {
			provider = badgerProvider
		}
	}
	blobs := store.NewBlobs(provider, logger)
	defer blobs.Close()

	rules := alerting.DefaultRules()
	if cfg.Alerts.RulesPath != "" {
		loaded, err := alerting.LoadRulePack(cfg.Alerts.RulesPath, logger)
		if err != nil {
			logger.Error("failed to load rule pack", slog.String("path", cfg.Alerts.RulesPath), slog.Any("error", err))
			os.Exit(1)
		}
		if len(loaded) > 0 {
			rules = loaded
		}
	}

	events := bus.New(64)
	defer events.Close()

	eng := engine.New(cfg.Telemetry, platform.NewHost(), rules, blobs, events, utils.SystemClock{}, logger)

	server, err := api.NewServer(cfg.Server, eng, logger)
	if err != nil {
		logger.Error("failed to create server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := eng.Start(ctx); err != nil {
		logger.Error("failed to start engine", slog.Any("error", err))
		os.Exit(1)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("diagnostics server listening", slog.String("address", server.Address()))
		return server.Start()
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer cancel()
		server.Shutdown(shutdownCtx)
		return nil
	})

	<-ctx.Done()
	logger.Info("shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	eng.Stop(stopCtx)
	cancel()

	if err := group.Wait(); err != nil {
		logger.Warn("server exited", slog.Any("error", err))
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("rendertune stopped")
}
