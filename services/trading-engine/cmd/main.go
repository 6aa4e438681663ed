package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	tradeDB "github.com/paaavkata/trend-trader/shared/pkg/database"
	"github.com/paaavkata/trend-trader/shared/pkg/utils"
	"golang.org/x/sync/errgroup"

	"github.com/paaavkata/trend-trader/services/trading-engine/internal/config"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/database"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/health"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/journal"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/notify"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/state"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/trader"

	"github.com/sirupsen/logrus"
)

func main() {
	logger := utils.NewLogger("trading-engine")

	cfg := config.Load()
	bots, err := config.LoadBots(cfg.BotsFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load bots")
	}
	logger.WithFields(logrus.Fields{
		"bots_file":     cfg.BotsFile,
		"bots":          len(bots),
		"paper_trading": cfg.PaperTrading,
		"candle_source": cfg.CandleSource,
		"database":      cfg.Database.Enabled(),
		"redis":         cfg.Redis.Enabled(),
		"telegram":      cfg.Telegram.Enabled(),
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		db     *tradeDB.DB
		repo   *database.Repository
		pinger health.Pinger
	)
	if cfg.Database.Enabled() {
		db, err = tradeDB.NewConnection(ctx, cfg.Database.DbUri, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to migrate database")
		}
		repo = database.NewRepository(db, logger)
		pinger = db
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Fatal("Failed to connect to redis")
		}
	}

	var store state.Store
	if rdb != nil {
		store = state.NewRedisStore(rdb, "")
	} else if store, err = state.NewFileStore(cfg.StateDir); err != nil {
		logger.WithError(err).Fatal("Failed to open state directory")
	}

	trades, err := journal.NewCSV(cfg.TradesCSV)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open trade journal")
	}

	risk := trader.NewRiskManager(cfg.Risk, logger)
	if repo != nil {
		today := time.Now().UTC().Truncate(24 * time.Hour)
		if pnl, err := repo.RealizedSince(ctx, today); err != nil {
			logger.WithError(err).Warn("Failed to read today's realized PnL")
		} else {
			risk.SeedDailyPnL(pnl)
		}
	}

	hub := health.NewHub(logger)
	notifiers := notify.Multi{notify.NewLogNotifier(logger), hub}
	if rdb != nil {
		notifiers = append(notifiers, notify.NewRedisStream(rdb, "", 10000))
	}
	var tg *notify.Telegram
	if cfg.Telegram.Enabled() {
		if tg, err = notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, logger); err != nil {
			logger.WithError(err).Warn("Telegram disabled")
			tg = nil
		} else {
			notifiers = append(notifiers, tg)
		}
	}

	venues := newVenues(cfg, db, logger)

	list := make([]*trader.Bot, 0, len(bots))
	for _, b := range bots {
		v, err := venues.get(b.Exchange)
		if err != nil {
			logger.WithError(err).Fatal("Failed to set up exchange")
		}

		deps := trader.Deps{
			Source:   v.source,
			Broker:   v.broker,
			Sizer:    v.sizer,
			Store:    store,
			Risk:     risk,
			Journal:  trades,
			Notifier: notifiers,
			Logger:   logger,
			Retries:  cfg.FetchRetries,
			Backoff:  cfg.RetryBackoff,
		}
		if repo != nil {
			deps.Repo = repo
		}

		bot, err := trader.NewBot(b, deps)
		if err != nil {
			logger.WithError(err).WithField("bot", b.Name).Fatal("Failed to create bot")
		}
		list = append(list, bot)
	}

	engine := trader.NewEngine(list, trades, risk, logger)
	server := health.NewHealthChecker(pinger, engine, hub, logger).StartServer(cfg.MetricsPort)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.Run(gctx)
	})
	if tg != nil {
		g.Go(func() error {
			tg.Listen(gctx, engine)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down trading engine service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		hub.Close()
		return server.Shutdown(shutdownCtx)
	})

	logger.Info("Trading engine service started successfully")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("Trading engine stopped with error")
	}

	logger.Info("Trading engine service stopped")
}
