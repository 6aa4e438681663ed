package trader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/config"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/exchange"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/notify"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/position"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/state"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/strategy"
	records "github.com/paaavkata/trend-trader/services/trading-engine/pkg/models"
	"github.com/paaavkata/trend-trader/shared/pkg/database"
	"github.com/paaavkata/trend-trader/shared/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TradeJournal receives every closed trade.
type TradeJournal interface {
	Append(t position.Trade) error
}

// TradeRepository mirrors positions and orders into the database.
type TradeRepository interface {
	CreatePosition(ctx context.Context, p *records.PositionRecord) error
	UpdateStop(ctx context.Context, id string, stop float64) error
	ClosePosition(ctx context.Context, id string, exitPrice, pnl float64, reason string, closedAt time.Time) error
	CreateOrder(ctx context.Context, o *records.OrderRecord) error
}

// Deps are the collaborators of a bot. Risk, Journal, Repo and Notifier are
// optional. Strategy overrides the one named in the bot config.
type Deps struct {
	Strategy strategy.Strategy
	Source   exchange.CandleSource
	Broker   exchange.Broker
	Sizer    *PositionSizer
	Store    state.Store
	Risk     *RiskManager
	Journal  TradeJournal
	Repo     TradeRepository
	Notifier notify.Notifier
	Logger   *logrus.Logger
	Now      func() time.Time
	// Retries is how many times a failed candle fetch is retried, waiting
	// Backoff and doubling it between attempts.
	Retries int
	Backoff time.Duration
}

// Bot runs one strategy on one symbol.
type Bot struct {
	cfg      config.Bot
	interval time.Duration
	strategy strategy.Strategy
	machine  *position.Machine
	deps     Deps
	logger   *logrus.Entry

	paused atomic.Bool
	run    sync.Mutex

	statusMu     sync.RWMutex
	lastDecision strategy.Decision
	lastPrice    float64
	lastRun      time.Time
	lastErr      string
}

func NewBot(cfg config.Bot, deps Deps) (*Bot, error) {
	interval, err := models.ParseInterval(cfg.Interval)
	if err != nil {
		return nil, err
	}
	s := deps.Strategy
	if s == nil {
		if s, err = strategy.New(cfg.Strategy, cfg.Params); err != nil {
			return nil, err
		}
	}
	if deps.Source == nil || deps.Broker == nil || deps.Sizer == nil || deps.Store == nil || deps.Logger == nil {
		return nil, fmt.Errorf("bot %s: source, broker, sizer, store and logger are required", cfg.Name)
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	b := &Bot{
		cfg:      cfg,
		interval: interval,
		strategy: s,
		machine:  position.NewMachine(cfg.Symbol),
		deps:     deps,
		logger: deps.Logger.WithFields(logrus.Fields{
			"bot":    cfg.Name,
			"symbol": cfg.Symbol,
		}),
	}
	b.paused.Store(cfg.Disabled)
	return b, nil
}

func (b *Bot) Name() string                { return b.cfg.Name }
func (b *Bot) Config() config.Bot          { return b.cfg }
func (b *Bot) Machine() *position.Machine  { return b.machine }
func (b *Bot) Strategy() strategy.Strategy { return b.strategy }

// Pause stops new entries. Open positions keep trailing and exiting.
func (b *Bot) Pause()       { b.paused.Store(true) }
func (b *Bot) Resume()      { b.paused.Store(false) }
func (b *Bot) Paused() bool { return b.paused.Load() }

// Restore loads the persisted machine state, if any.
func (b *Bot) Restore(ctx context.Context) error {
	snap, ok, err := b.deps.Store.Load(ctx, b.cfg.Name)
	if err != nil {
		return fmt.Errorf("failed to load state of %s: %w", b.cfg.Name, err)
	}
	if !ok {
		return nil
	}
	if err := b.machine.Restore(snap); err != nil {
		return fmt.Errorf("failed to restore state of %s: %w", b.cfg.Name, err)
	}

	b.logger.WithFields(logrus.Fields{
		"side":        snap.Side.String(),
		"last_candle": snap.LastCandle,
	}).Info("Restored bot state")
	return nil
}

// Poll fetches the latest candles and processes them.
func (b *Bot) Poll(ctx context.Context) error {
	var candles []models.Candle
	err := retry(ctx, b.deps.Retries, b.deps.Backoff, func() error {
		var err error
		candles, err = b.deps.Source.Candles(ctx, b.cfg.Symbol, b.cfg.Interval, b.cfg.History)
		return err
	})
	if err != nil {
		err = fmt.Errorf("failed to fetch candles: %w", err)
		b.fail(ctx, err)
		return err
	}
	return b.OnCandles(ctx, candles)
}

// OnCandles runs one step of the bot on a candle window, oldest first. The
// still-forming candle is dropped and a closed candle is acted on only once.
// When an order fails the remaining actions are abandoned and the candle stays
// unprocessed, so the next poll evaluates it again.
func (b *Bot) OnCandles(ctx context.Context, candles []models.Candle) error {
	b.run.Lock()
	defer b.run.Unlock()

	closed := models.Series(candles).ClosedOnly(b.interval, b.deps.Now())
	last, ok := closed.Last()
	if !ok || b.machine.Processed(last.Time) {
		return nil
	}

	decision := b.strategy.Evaluate(closed)
	if b.deps.Risk != nil {
		b.deps.Risk.CheckFlashCrash(b.cfg.Name, last)
	}
	actions := position.Plan(b.machine, last, decision, b.cfg.AllowShort)

	b.logger.WithFields(logrus.Fields{
		"candle":   last.Time,
		"close":    last.Close,
		"decision": decision.Action.String(),
		"reason":   decision.Reason,
		"side":     b.machine.Side().String(),
		"actions":  len(actions),
	}).Debug("Evaluated candle")

	at := last.Time.Add(b.interval)
	for _, a := range actions {
		if err := b.execute(ctx, a, last, decision, at); err != nil {
			err = fmt.Errorf("%s %s failed: %w", a.Kind, a.Side, err)
			b.fail(ctx, err)
			return err
		}
	}

	b.machine.MarkProcessed(last.Time)
	if err := b.deps.Store.Save(ctx, b.cfg.Name, b.machine.Snapshot()); err != nil {
		b.logger.WithError(err).Error("Failed to persist bot state")
	}

	b.statusMu.Lock()
	b.lastDecision = decision
	b.lastPrice = last.Close
	b.lastRun = b.deps.Now()
	b.lastErr = ""
	b.statusMu.Unlock()
	return nil
}

func (b *Bot) execute(ctx context.Context, a position.Action, c models.Candle, d strategy.Decision, at time.Time) error {
	switch a.Kind {
	case position.ActionTrail:
		b.trail(ctx, c)
		return nil
	case position.ActionClose:
		return b.close(ctx, a, at)
	case position.ActionOpen:
		return b.open(ctx, a, d, at)
	default:
		return fmt.Errorf("unknown action %v", a.Kind)
	}
}

func (b *Bot) trail(ctx context.Context, c models.Candle) {
	if !b.machine.Trail(c) {
		return
	}
	pos, _ := b.machine.Position()

	b.logger.WithField("stop", pos.Stop.Stop).Debug("Trailing stop moved")

	if b.deps.Repo != nil && pos.ID != "" {
		if err := b.deps.Repo.UpdateStop(ctx, pos.ID, pos.Stop.Stop); err != nil {
			b.logger.WithError(err).Warn("Failed to record trailing stop")
		}
	}
	b.notify(ctx, notify.Event{
		Kind:   notify.KindStopMoved,
		Side:   pos.Side.String(),
		Price:  c.Close,
		Stop:   pos.Stop.Stop,
		Qty:    pos.Qty,
		Symbol: pos.Symbol,
	})
}

func (b *Bot) close(ctx context.Context, a position.Action, at time.Time) error {
	pos, ok := b.machine.Position()
	if !ok {
		return position.ErrFlat
	}

	fill, err := b.deps.Broker.MarketOrder(ctx, exchange.Order{
		Symbol: b.cfg.Symbol,
		Side:   pos.Side.ExitOrderSide(),
		Qty:    decimal.NewFromFloat(pos.Qty),
		Price:  a.Price,
	})
	if err != nil {
		return err
	}

	trade, err := b.machine.Close(fill.Price, a.Reason, at)
	if err != nil {
		return err
	}
	trade.Bot = b.cfg.Name

	b.logger.WithFields(logrus.Fields{
		"side":     trade.Side.String(),
		"price":    trade.ExitPrice,
		"pnl":      trade.PnL,
		"reason":   trade.Reason,
		"order_id": fill.OrderID,
	}).Info("Position closed")

	if b.deps.Journal != nil {
		if err := b.deps.Journal.Append(trade); err != nil {
			b.logger.WithError(err).Error("Failed to journal trade")
		}
	}
	if b.deps.Repo != nil && pos.ID != "" {
		if err := b.deps.Repo.ClosePosition(ctx, pos.ID, trade.ExitPrice, trade.PnL, trade.Reason, at); err != nil {
			b.logger.WithError(err).Error("Failed to record closed position")
		}
		b.recordOrder(ctx, pos.ID, fill)
	}
	if b.deps.Risk != nil {
		b.deps.Risk.RecordTrade(b.cfg.Name, trade)
	}

	b.notify(ctx, notify.Event{
		Kind:   notify.KindExit,
		Symbol: trade.Symbol,
		Side:   trade.Side.String(),
		Price:  trade.ExitPrice,
		Qty:    trade.Qty,
		Trade:  &trade,
	})
	return nil
}

// open enters a position. Entries that are paused, halted or sized to zero are
// skipped without error.
func (b *Bot) open(ctx context.Context, a position.Action, d strategy.Decision, at time.Time) error {
	logger := b.logger.WithFields(logrus.Fields{
		"side":  a.Side.String(),
		"price": a.Price,
	})

	if b.Paused() {
		logger.Info("Bot paused, skipping entry")
		return nil
	}
	if b.deps.Risk != nil {
		if ok, reason := b.deps.Risk.CanEnter(b.cfg.Name); !ok {
			logger.WithField("reason", reason).Warn("Entry blocked by risk manager")
			return nil
		}
	}

	distance := StopDistance(b.cfg, a.Price, d.ATR)
	if distance <= 0 {
		logger.Warn("No stop distance available, skipping entry")
		return nil
	}
	qty := b.deps.Sizer.Size(ctx, b.cfg, a.Price, distance)
	if !qty.IsPositive() {
		logger.Warn("Position size rounds to zero, skipping entry")
		return nil
	}

	fill, err := b.deps.Broker.MarketOrder(ctx, exchange.Order{
		Symbol: b.cfg.Symbol,
		Side:   a.Side.EntryOrderSide(),
		Qty:    qty,
		Price:  a.Price,
	})
	if err != nil {
		return err
	}

	id := uuid.New().String()
	err = b.machine.Open(position.Entry{
		ID:                id,
		Side:              a.Side,
		Qty:               fill.Qty,
		Price:             fill.Price,
		StopDistance:      distance,
		TakeProfitPercent: b.cfg.TakeProfitPercent,
		Time:              at,
		OrderID:           fill.OrderID,
	})
	if err != nil {
		return err
	}
	pos, _ := b.machine.Position()

	logger.WithFields(logrus.Fields{
		"quantity":    pos.Qty,
		"entry_price": pos.EntryPrice,
		"stop":        pos.Stop.Stop,
		"take_profit": pos.TakeProfit,
		"order_id":    fill.OrderID,
	}).Info("Position opened")

	if b.deps.Repo != nil {
		rec := &records.PositionRecord{
			ID:         id,
			Bot:        b.cfg.Name,
			Symbol:     b.cfg.Symbol,
			Side:       pos.Side.String(),
			Quantity:   database.NewDecimal(pos.Qty),
			EntryPrice: database.NewDecimal(pos.EntryPrice),
			StopPrice:  database.NewDecimal(pos.Stop.Stop),
			OrderID:    fill.OrderID,
			OpenedAt:   at,
		}
		if err := b.deps.Repo.CreatePosition(ctx, rec); err != nil {
			b.logger.WithError(err).Error("Failed to record position")
		} else {
			b.recordOrder(ctx, id, fill)
		}
	}

	b.notify(ctx, notify.Event{
		Kind:   notify.KindEntry,
		Symbol: pos.Symbol,
		Side:   pos.Side.String(),
		Price:  pos.EntryPrice,
		Qty:    pos.Qty,
		Stop:   pos.Stop.Stop,
	})
	return nil
}

func (b *Bot) recordOrder(ctx context.Context, positionID string, fill exchange.Fill) {
	err := b.deps.Repo.CreateOrder(ctx, &records.OrderRecord{
		PositionID:      &positionID,
		Bot:             b.cfg.Name,
		Symbol:          b.cfg.Symbol,
		ExchangeOrderID: fill.OrderID,
		Side:            fill.Side,
		Quantity:        database.NewDecimal(fill.Qty),
		Price:           database.NewDecimal(fill.Price),
		Fee:             database.NewDecimal(fill.Fee),
		CreatedAt:       fill.Time,
	})
	if err != nil {
		b.logger.WithError(err).Error("Failed to record order")
	}
}

// fail records err and reports it once; repeats of the same error stay in
// the log only.
func (b *Bot) fail(ctx context.Context, err error) {
	b.logger.WithError(err).Error("Bot step failed")

	b.statusMu.Lock()
	repeated := b.lastErr == err.Error()
	b.lastErr = err.Error()
	b.lastRun = b.deps.Now()
	b.statusMu.Unlock()

	if repeated {
		return
	}
	b.notify(ctx, notify.Event{
		Kind:    notify.KindError,
		Symbol:  b.cfg.Symbol,
		Message: err.Error(),
	})
}

func (b *Bot) notify(ctx context.Context, e notify.Event) {
	e.Bot = b.cfg.Name
	if e.Time.IsZero() {
		e.Time = b.deps.Now().UTC()
	}
	if err := b.deps.Notifier.Notify(ctx, e); err != nil {
		b.logger.WithError(err).WithField("kind", string(e.Kind)).Warn("Failed to deliver notification")
	}
}

// BotStatus is the externally visible state of a bot.
type BotStatus struct {
	Name          string             `json:"name"`
	Symbol        string             `json:"symbol"`
	Exchange      string             `json:"exchange"`
	Interval      string             `json:"interval"`
	Strategy      string             `json:"strategy"`
	Side          string             `json:"side"`
	Position      *position.Position `json:"position,omitempty"`
	UnrealizedPnL float64            `json:"unrealized_pnl"`
	LastPrice     float64            `json:"last_price"`
	LastCandle    time.Time          `json:"last_candle"`
	LastDecision  string             `json:"last_decision"`
	LastRun       time.Time          `json:"last_run"`
	LastError     string             `json:"last_error,omitempty"`
	Paused        bool               `json:"paused"`
	HaltedUntil   *time.Time         `json:"halted_until,omitempty"`
}

func (b *Bot) Status() BotStatus {
	snap := b.machine.Snapshot()

	b.statusMu.RLock()
	s := BotStatus{
		Name:         b.cfg.Name,
		Symbol:       b.cfg.Symbol,
		Exchange:     b.cfg.Exchange,
		Interval:     b.cfg.Interval,
		Strategy:     b.strategy.Name(),
		Side:         snap.Side.String(),
		Position:     snap.Position,
		LastPrice:    b.lastPrice,
		LastCandle:   snap.LastCandle,
		LastDecision: b.lastDecision.Action.String(),
		LastRun:      b.lastRun,
		LastError:    b.lastErr,
		Paused:       b.Paused(),
	}
	b.statusMu.RUnlock()

	if s.Position != nil && s.LastPrice > 0 {
		s.UnrealizedPnL = s.Position.UnrealizedPnL(s.LastPrice)
	}
	if b.deps.Risk != nil {
		if until := b.deps.Risk.HaltedUntil(b.cfg.Name); !until.IsZero() {
			s.HaltedUntil = &until
		}
	}
	return s
}
