package trader

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/paaavkata/trend-trader/services/trading-engine/internal/position"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// TradeHistory lists recent closed trades, newest last.
type TradeHistory interface {
	LastN(n int) ([]position.Trade, error)
}

// Engine schedules the bots and answers operator queries about them.
type Engine struct {
	bots    map[string]*Bot
	names   []string
	history TradeHistory
	risk    *RiskManager
	cron    *cron.Cron
	polls   sync.WaitGroup
	logger  *logrus.Logger
}

// NewEngine builds an engine over bots. history and risk may be nil.
func NewEngine(bots []*Bot, history TradeHistory, risk *RiskManager, logger *logrus.Logger) *Engine {
	e := &Engine{
		bots:    make(map[string]*Bot, len(bots)),
		history: history,
		risk:    risk,
		logger:  logger,
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.PrintfLogger(logger)),
			cron.SkipIfStillRunning(cron.PrintfLogger(logger)),
		)),
	}
	for _, b := range bots {
		e.bots[b.Name()] = b
		e.names = append(e.names, b.Name())
	}
	sort.Strings(e.names)
	return e
}

// Restore loads every bot's persisted state. A bot whose state cannot be
// restored fails the whole start so it never trades from a wrong position.
func (e *Engine) Restore(ctx context.Context) error {
	for _, name := range e.names {
		if err := e.bots[name].Restore(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Start schedules each bot on its poll interval and runs a first poll.
func (e *Engine) Start(ctx context.Context) error {
	for _, name := range e.names {
		b := e.bots[name]
		spec := fmt.Sprintf("@every %s", b.Config().PollEvery)
		if _, err := e.cron.AddFunc(spec, func() { e.poll(ctx, b) }); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", name, err)
		}

		e.logger.WithFields(logrus.Fields{
			"bot":        name,
			"symbol":     b.Config().Symbol,
			"interval":   b.Config().Interval,
			"strategy":   b.Config().Strategy,
			"poll_every": b.Config().PollEvery.String(),
		}).Info("Scheduled bot")
	}

	e.cron.Start()

	for _, name := range e.names {
		e.polls.Add(1)
		go func(b *Bot) {
			defer e.polls.Done()
			e.poll(ctx, b)
		}(e.bots[name])
	}
	return nil
}

// Run restores state, starts the schedule and blocks until ctx is done. Bots
// finish their current step before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.WithField("bots", len(e.bots)).Info("Starting trading engine")

	if err := e.Restore(ctx); err != nil {
		return err
	}
	if err := e.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	e.Stop()
	e.logger.Info("Trading engine stopped")
	return nil
}

// Stop halts the schedule and waits for running polls, including the first
// one Start launches.
func (e *Engine) Stop() {
	<-e.cron.Stop().Done()
	e.polls.Wait()
}

func (e *Engine) poll(ctx context.Context, b *Bot) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := b.Poll(ctx); err != nil {
		return
	}
	e.logger.WithFields(logrus.Fields{
		"bot":         b.Name(),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Bot poll completed")
}

func (e *Engine) Bot(name string) (*Bot, bool) {
	b, ok := e.bots[name]
	return b, ok
}

// Snapshot returns the status of every bot ordered by name.
func (e *Engine) Snapshot() []BotStatus {
	return lo.Map(e.names, func(name string, _ int) BotStatus {
		return e.bots[name].Status()
	})
}

// Trades returns up to n recent closed trades, newest last.
func (e *Engine) Trades(n int) ([]position.Trade, error) {
	if e.history == nil {
		return nil, nil
	}
	return e.history.LastN(n)
}

func (e *Engine) Pause(name string) error {
	b, ok := e.bots[name]
	if !ok {
		return fmt.Errorf("unknown bot %q", name)
	}
	b.Pause()
	e.logger.WithField("bot", name).Info("Bot paused")
	return nil
}

func (e *Engine) Resume(name string) error {
	b, ok := e.bots[name]
	if !ok {
		return fmt.Errorf("unknown bot %q", name)
	}
	b.Resume()
	e.logger.WithField("bot", name).Info("Bot resumed")
	return nil
}

// Status renders a one-line-per-bot summary for chat commands.
func (e *Engine) Status() string {
	var sb strings.Builder
	for _, s := range e.Snapshot() {
		fmt.Fprintf(&sb, "%s %s %s", s.Name, s.Symbol, s.Side)
		if s.Position != nil {
			fmt.Fprintf(&sb, " @ %g stop %g pnl %.4f", s.Position.EntryPrice, s.Position.Stop.Stop, s.UnrealizedPnL)
		}
		if s.Paused {
			sb.WriteString(" [paused]")
		}
		if s.HaltedUntil != nil {
			fmt.Fprintf(&sb, " [halted until %s]", s.HaltedUntil.Format(time.RFC3339))
		}
		if s.LastError != "" {
			fmt.Fprintf(&sb, " [error: %s]", s.LastError)
		}
		sb.WriteByte('\n')
	}
	if e.risk != nil {
		fmt.Fprintf(&sb, "daily pnl %.4f", e.risk.DailyPnL())
	}
	if sb.Len() == 0 {
		return "no bots"
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RecentTrades renders the last n trades for chat commands.
func (e *Engine) RecentTrades(n int) string {
	trades, err := e.Trades(n)
	if err != nil {
		return "failed to read trades: " + err.Error()
	}
	if len(trades) == 0 {
		return "no trades yet"
	}

	lines := lo.Map(trades, func(t position.Trade, _ int) string {
		return fmt.Sprintf("%s %s %s %g -> %g pnl %.4f (%.2f%%) %s",
			t.ExitTime.Format("01-02 15:04"), t.Bot, t.Side, t.EntryPrice, t.ExitPrice, t.PnL, t.PnLPercent, t.Reason)
	})
	return strings.Join(lines, "\n")
}
