package trader

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/paaavkata/trend-trader/services/trading-engine/internal/config"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/position"
	"github.com/paaavkata/trend-trader/shared/pkg/models"
	"github.com/paaavkata/trend-trader/shared/pkg/utils"
	"github.com/sirupsen/logrus"
)

// RiskManager gates new entries. It never blocks exits.
type RiskManager struct {
	mu     sync.Mutex
	config config.RiskConfig
	logger *logrus.Logger
	now    func() time.Time

	consecutiveLosses map[string]int
	botHaltedUntil    map[string]time.Time
	haltReason        map[string]string

	day                  time.Time
	dailyRealized        float64
	portfolioHaltedUntil time.Time
}

func NewRiskManager(cfg config.RiskConfig, logger *logrus.Logger) *RiskManager {
	return &RiskManager{
		config:            cfg,
		logger:            logger,
		now:               time.Now,
		consecutiveLosses: make(map[string]int),
		botHaltedUntil:    make(map[string]time.Time),
		haltReason:        make(map[string]string),
	}
}

// SeedDailyPnL sets today's realized PnL, e.g. from the positions table after
// a restart.
func (r *RiskManager) SeedDailyPnL(pnl float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollDay()
	r.dailyRealized = pnl
	r.checkDailyLoss()
}

// CanEnter reports whether bot may open a new position, and why not.
func (r *RiskManager) CanEnter(bot string) (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.rollDay()

	if now.Before(r.portfolioHaltedUntil) {
		return false, fmt.Sprintf("daily loss limit reached, halted until %s", r.portfolioHaltedUntil.Format(time.RFC3339))
	}

	if until, ok := r.botHaltedUntil[bot]; ok {
		if now.Before(until) {
			return false, fmt.Sprintf("%s, halted until %s", r.haltReason[bot], until.Format(time.RFC3339))
		}
		r.logger.WithField("bot", bot).Info("Trading halt expired, resuming entries")
		delete(r.botHaltedUntil, bot)
		delete(r.haltReason, bot)
		r.consecutiveLosses[bot] = 0
	}

	return true, ""
}

// RecordTrade updates the loss streak of the bot and the daily PnL.
func (r *RiskManager) RecordTrade(bot string, t position.Trade) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rollDay()
	r.dailyRealized += t.PnL

	if t.Win() {
		r.consecutiveLosses[bot] = 0
	} else {
		r.consecutiveLosses[bot]++
	}

	if limit := r.config.MaxConsecutiveLosses; limit > 0 && r.consecutiveLosses[bot] >= limit {
		r.halt(bot, fmt.Sprintf("%d consecutive losses", r.consecutiveLosses[bot]))
	}
	r.checkDailyLoss()
}

// CheckFlashCrash halts the bot's entries when the candle's body moved more
// than the configured percentage. It reports whether a halt was triggered.
func (r *RiskManager) CheckFlashCrash(bot string, c models.Candle) bool {
	if r.config.FlashCrashPercent <= 0 || c.Open <= 0 {
		return false
	}

	move := math.Abs(utils.PercentChange(c.Open, c.Close)) * 100
	r.logger.WithFields(logrus.Fields{
		"bot":          bot,
		"move_percent": fmt.Sprintf("%.2f%%", move),
		"limit":        r.config.FlashCrashPercent,
	}).Debug("Flash crash check")

	if move < r.config.FlashCrashPercent {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.halt(bot, fmt.Sprintf("flash move of %.2f%%", move))
	return true
}

// HaltedUntil returns when the bot's entry halt ends, zero when not halted.
func (r *RiskManager) HaltedUntil(bot string) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	until := r.botHaltedUntil[bot]
	if r.portfolioHaltedUntil.After(until) {
		until = r.portfolioHaltedUntil
	}
	if !until.After(r.now()) {
		return time.Time{}
	}
	return until
}

func (r *RiskManager) DailyPnL() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollDay()
	return r.dailyRealized
}

func (r *RiskManager) halt(bot, reason string) {
	until := r.now().Add(r.config.HaltDuration)
	r.botHaltedUntil[bot] = until
	r.haltReason[bot] = reason

	r.logger.WithFields(logrus.Fields{
		"bot":          bot,
		"reason":       reason,
		"halted_until": until.Format(time.RFC3339),
	}).Warn("Circuit breaker triggered, halting entries")
}

func (r *RiskManager) checkDailyLoss() {
	if r.config.MaxDailyLoss <= 0 || r.dailyRealized > -r.config.MaxDailyLoss {
		return
	}
	if r.now().Before(r.portfolioHaltedUntil) {
		return
	}
	r.portfolioHaltedUntil = r.day.Add(24 * time.Hour)

	r.logger.WithFields(logrus.Fields{
		"daily_pnl":    r.dailyRealized,
		"limit":        -r.config.MaxDailyLoss,
		"halted_until": r.portfolioHaltedUntil.Format(time.RFC3339),
	}).Error("Daily loss limit reached, halting all entries")
}

// rollDay resets the daily PnL at UTC midnight.
func (r *RiskManager) rollDay() {
	today := r.now().UTC().Truncate(24 * time.Hour)
	if today.Equal(r.day) {
		return
	}
	r.day = today
	r.dailyRealized = 0
}

// WithClock replaces the wall clock, e.g. with the replay time of a backtest.
func (r *RiskManager) WithClock(now func() time.Time) *RiskManager {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
	return r
}
