package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/paaavkata/trend-trader/shared/pkg/binance"
	"github.com/paaavkata/trend-trader/shared/pkg/database"
	"github.com/paaavkata/trend-trader/shared/pkg/kucoin"
	"github.com/paaavkata/trend-trader/shared/pkg/utils"

	"github.com/paaavkata/trend-trader/services/price-collector/internal/collector"
	"github.com/paaavkata/trend-trader/services/price-collector/internal/config"
	"github.com/paaavkata/trend-trader/services/price-collector/internal/health"
	"github.com/paaavkata/trend-trader/services/price-collector/pkg/models"

	"github.com/sirupsen/logrus"
)

func main() {
	logger := utils.NewLogger("price-collector")

	cfg := config.Load()
	targets, err := models.ParseTargets(cfg.Targets)
	if err != nil {
		logger.WithError(err).Fatal("Invalid collection targets")
	}
	logger.WithFields(logrus.Fields{
		"targets":        len(targets),
		"schedule":       cfg.CollectSchedule,
		"lookback":       cfg.Lookback,
		"workers":        cfg.Workers,
		"retention_days": cfg.DataRetentionDays,
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, cfg.Database.DbUri, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

	repo := database.NewCandleRepository(db, logger)
	fetcher := collector.NewFetcher(
		kucoin.NewClient(cfg.KuCoin, logger),
		binance.NewClient(cfg.Binance, logger),
		cfg.Lookback,
		logger,
	)
	processor := collector.NewProcessor(repo, logger, cfg.DataRetentionDays)
	scheduler := collector.NewScheduler(fetcher, processor, targets, cfg.Workers, logger)

	healthChecker := health.NewHealthChecker(db, scheduler, 15*time.Minute, logger)
	healthServer := healthChecker.StartServer(cfg.MetricsPort)

	if err := scheduler.Start(ctx, cfg.CollectSchedule, cfg.CleanupSchedule); err != nil {
		logger.WithError(err).Fatal("Failed to start scheduler")
	}

	logger.Info("Price collector service started successfully")

	<-ctx.Done()

	logger.Info("Shutting down price collector service...")

	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shutdown health server gracefully")
	}

	logger.Info("Price collector service stopped")
}
