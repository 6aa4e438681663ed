package backtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/paaavkata/trend-trader/services/trading-engine/internal/config"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/exchange"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/position"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/state"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/strategy"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/trader"
	"github.com/paaavkata/trend-trader/shared/pkg/models"
	"github.com/sirupsen/logrus"
)

// Config describes one replay. Risk and Strategy are optional; Strategy
// overrides the one named in the bot config.
type Config struct {
	Bot           config.Bot
	InitialEquity float64
	FeeRate       float64
	Risk          *config.RiskConfig
	Strategy      strategy.Strategy
}

type Runner struct {
	logger *logrus.Logger
}

func NewRunner(logger *logrus.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run replays candles through a paper-trading bot, one closed candle at a
// time, with the bot's clock pinned to the close of the candle being replayed.
// A position still open after the last candle is reported, not closed.
func (r *Runner) Run(ctx context.Context, cfg Config, candles []models.Candle) (*Report, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles to replay for %s", cfg.Bot.Name)
	}
	interval, err := models.ParseInterval(cfg.Bot.Interval)
	if err != nil {
		return nil, err
	}

	sorted := make([]models.Candle, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	var now time.Time
	clock := func() time.Time { return now }

	src := &replaySource{candles: sorted}
	broker := exchange.NewPaperBroker(cfg.FeeRate, r.logger)
	trades := &tradeRecorder{}

	var risk *trader.RiskManager
	if cfg.Risk != nil {
		risk = trader.NewRiskManager(*cfg.Risk, r.logger).WithClock(clock)
	}

	bot, err := trader.NewBot(cfg.Bot, trader.Deps{
		Strategy: cfg.Strategy,
		Source:   src,
		Broker:   broker,
		Sizer:    trader.NewPositionSizer(nil, r.logger),
		Store:    state.NewMemoryStore(),
		Risk:     risk,
		Journal:  trades,
		Logger:   r.logger,
		Now:      clock,
	})
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"bot":      cfg.Bot.Name,
		"symbol":   cfg.Bot.Symbol,
		"strategy": bot.Strategy().Name(),
		"candles":  len(sorted),
		"from":     sorted[0].Time,
		"to":       sorted[len(sorted)-1].Time,
	}).Info("Starting backtest")

	equity := []Point{{Time: sorted[0].Time, Equity: cfg.InitialEquity}}
	var realized, fees float64
	seenFills, seenTrades := 0, 0

	for i, c := range sorted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src.advance(i + 1)
		now = c.Time.Add(interval)

		if err := bot.Poll(ctx); err != nil {
			return nil, fmt.Errorf("replay of candle %s failed: %w", c.Time.Format(time.RFC3339), err)
		}

		fills := broker.Fills()
		for _, f := range fills[seenFills:] {
			fees += f.Fee
		}
		seenFills = len(fills)
		closed := trades.all()
		for _, t := range closed[seenTrades:] {
			realized += t.PnL
		}
		seenTrades = len(closed)

		value := cfg.InitialEquity + realized - fees
		if pos, ok := bot.Machine().Position(); ok {
			value += pos.UnrealizedPnL(c.Close)
		}
		equity = append(equity, Point{Time: now, Equity: value})
	}

	report := &Report{
		Bot:           cfg.Bot.Name,
		Symbol:        cfg.Bot.Symbol,
		Interval:      cfg.Bot.Interval,
		Strategy:      bot.Strategy().Name(),
		From:          sorted[0].Time,
		To:            sorted[len(sorted)-1].Time.Add(interval),
		Candles:       len(sorted),
		InitialEquity: cfg.InitialEquity,
		Trades:        trades.all(),
		Equity:        equity,
		Fees:          fees,
	}
	if pos, ok := bot.Machine().Position(); ok {
		report.Open = &pos
	}
	report.Summary = Summarize(report.Trades, equity)
	report.NetPnL = report.Summary.TotalPnL - fees
	if report.Open != nil {
		report.NetPnL += report.Open.UnrealizedPnL(sorted[len(sorted)-1].Close)
	}

	r.logger.WithFields(logrus.Fields{
		"bot":       cfg.Bot.Name,
		"trades":    report.Summary.Trades,
		"total_pnl": report.Summary.TotalPnL,
		"net_pnl":   report.NetPnL,
	}).Info("Backtest finished")

	return report, nil
}

// replaySource serves the candles up to the replay cursor.
type replaySource struct {
	mu      sync.Mutex
	candles []models.Candle
	cursor  int
}

func (s *replaySource) advance(n int) {
	s.mu.Lock()
	s.cursor = n
	s.mu.Unlock()
}

func (s *replaySource) Candles(_ context.Context, _, _ string, limit int) ([]models.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if limit > 0 && s.cursor > limit {
		start = s.cursor - limit
	}
	return s.candles[start:s.cursor], nil
}

type tradeRecorder struct {
	mu     sync.Mutex
	trades []position.Trade
}

func (t *tradeRecorder) Append(tr position.Trade) error {
	t.mu.Lock()
	t.trades = append(t.trades, tr)
	t.mu.Unlock()
	return nil
}

func (t *tradeRecorder) all() []position.Trade {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]position.Trade, len(t.trades))
	copy(out, t.trades)
	return out
}
