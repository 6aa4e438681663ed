package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/paaavkata/trend-trader/shared/pkg/binance"
	tradeDB "github.com/paaavkata/trend-trader/shared/pkg/database"
	"github.com/paaavkata/trend-trader/shared/pkg/kucoin"
	"github.com/paaavkata/trend-trader/shared/pkg/models"
	"github.com/paaavkata/trend-trader/shared/pkg/utils"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/paaavkata/trend-trader/services/trading-engine/internal/backtest"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/config"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/exchange"
)

const dateLayout = "2006-01-02"

// Flags can also be set as BACKTEST_<FLAG> environment variables.
func flags() *viper.Viper {
	fs := pflag.NewFlagSet("backtest", pflag.ExitOnError)
	fs.String("bots", "bots.yaml", "bots file")
	fs.String("bot", "", "bot to replay (default: every bot in the file)")
	fs.String("source", config.CandleSourceExchange, "candle source: exchange or db")
	fs.String("from", "", "first candle, RFC3339 or 2006-01-02 (db source)")
	fs.String("to", "", "end of the replay, RFC3339 or 2006-01-02 (default now)")
	fs.Int("limit", 1000, "candles to fetch from the exchange")
	fs.Float64("equity", 1000, "starting equity in quote currency")
	fs.Float64("fee", -1, "fee rate per fill (default PAPER_FEE_RATE)")
	fs.Bool("risk", false, "apply the risk limits from the environment")
	fs.String("csv", "", "write the trades of each bot to <csv>-<bot>.csv")
	fs.Bool("json", false, "print reports as JSON")
	_ = fs.Parse(os.Args[1:])

	v := viper.New()
	v.SetEnvPrefix("backtest")
	v.AutomaticEnv()
	_ = v.BindPFlags(fs)
	return v
}

func parseTime(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", s)
	}
	return t.UTC(), nil
}

func main() {
	logger := utils.NewLogger("backtest")
	opts := flags()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bots, err := config.LoadBots(opts.GetString("bots"))
	if err != nil {
		logger.WithError(err).Fatal("Failed to load bots")
	}
	if name := opts.GetString("bot"); name != "" {
		bots = lo.Filter(bots, func(b config.Bot, _ int) bool { return b.Name == name })
		if len(bots) == 0 {
			logger.WithField("bot", name).Fatal("Bot not found")
		}
	}

	to, err := parseTime(opts.GetString("to"), time.Now().UTC())
	if err != nil {
		logger.WithError(err).Fatal("Invalid --to")
	}
	from, err := parseTime(opts.GetString("from"), time.Time{})
	if err != nil {
		logger.WithError(err).Fatal("Invalid --from")
	}

	loader, closeLoader, err := newLoader(ctx, opts, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to set up candle source")
	}
	defer closeLoader()

	fee := opts.GetFloat64("fee")
	if fee < 0 {
		fee = cfg.PaperFeeRate
	}

	runner := backtest.NewRunner(logger)
	failed := false
	for _, b := range bots {
		candles, err := loader(ctx, b, from, to)
		if err != nil {
			logger.WithError(err).WithField("bot", b.Name).Error("Failed to load candles")
			failed = true
			continue
		}

		run := backtest.Config{
			Bot:           b,
			InitialEquity: opts.GetFloat64("equity"),
			FeeRate:       fee,
		}
		if opts.GetBool("risk") {
			run.Risk = &cfg.Risk
		}

		report, err := runner.Run(ctx, run, candles)
		if err != nil {
			logger.WithError(err).WithField("bot", b.Name).Error("Backtest failed")
			failed = true
			continue
		}

		if err := output(opts, report); err != nil {
			logger.WithError(err).WithField("bot", b.Name).Error("Failed to write report")
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
}

type candleLoader func(ctx context.Context, b config.Bot, from, to time.Time) ([]models.Candle, error)

func newLoader(ctx context.Context, opts *viper.Viper, cfg *config.Config, logger *logrus.Logger) (candleLoader, func(), error) {
	switch source := opts.GetString("source"); source {
	case config.CandleSourceDB:
		if !cfg.Database.Enabled() {
			return nil, nil, fmt.Errorf("candle source %q needs DB_URI", source)
		}
		db, err := tradeDB.NewConnection(ctx, cfg.Database.DbUri, logger)
		if err != nil {
			return nil, nil, err
		}
		repo := tradeDB.NewCandleRepository(db, logger)
		load := func(ctx context.Context, b config.Bot, from, to time.Time) ([]models.Candle, error) {
			return repo.GetCandles(ctx, b.Exchange, b.Symbol, b.Interval, from, to)
		}
		return load, func() { db.Close() }, nil

	case config.CandleSourceExchange:
		kc := exchange.NewKuCoinExchange(kucoin.NewClient(cfg.KuCoin, logger), logger)
		bn := exchange.NewBinanceExchange(binance.NewClient(cfg.Binance, logger), logger)
		limit := opts.GetInt("limit")
		load := func(ctx context.Context, b config.Bot, from, to time.Time) ([]models.Candle, error) {
			var src exchange.CandleSource = kc
			if b.Exchange == config.ExchangeBinance {
				src = bn
			}
			candles, err := src.Candles(ctx, b.Symbol, b.Interval, limit)
			if err != nil {
				return nil, err
			}
			return lo.Filter(candles, func(c models.Candle, _ int) bool {
				return !c.Time.Before(from) && c.Time.Before(to)
			}), nil
		}
		return load, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown candle source %q", source)
	}
}

func output(opts *viper.Viper, report *backtest.Report) error {
	if opts.GetBool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		if err := report.WriteText(os.Stdout); err != nil {
			return err
		}
		fmt.Println()
	}

	prefix := opts.GetString("csv")
	if prefix == "" {
		return nil
	}
	path := fmt.Sprintf("%s-%s.csv", strings.TrimSuffix(prefix, ".csv"), report.Bot)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return report.WriteCSV(f)
}
