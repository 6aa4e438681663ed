package trader

import (
	"context"
	"sync"

	"github.com/paaavkata/trend-trader/services/trading-engine/internal/config"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/exchange"
	"github.com/paaavkata/trend-trader/shared/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// defaultLotStep is used when neither the bot nor the exchange knows the
// symbol's quantity increment.
var defaultLotStep = decimal.New(1, -8)

type PositionSizer struct {
	lots   exchange.LotSizer
	logger *logrus.Logger

	mu    sync.Mutex
	steps map[string]decimal.Decimal
}

// NewPositionSizer builds a sizer. lots may be nil when no exchange metadata
// is available, as in backtests.
func NewPositionSizer(lots exchange.LotSizer, logger *logrus.Logger) *PositionSizer {
	return &PositionSizer{
		lots:   lots,
		logger: logger,
		steps:  make(map[string]decimal.Decimal),
	}
}

// Size returns the base quantity to buy or sell for an entry at price with
// the given initial stop distance. The quote size is spent in full unless the
// loss at the stop would exceed risk_per_trade of it. A zero result means the
// entry should be skipped.
func (ps *PositionSizer) Size(ctx context.Context, bot config.Bot, price, stopDistance float64) decimal.Decimal {
	if price <= 0 || bot.QuoteSize <= 0 {
		return decimal.Zero
	}

	qty := bot.QuoteSize / price
	if bot.RiskPerTrade > 0 && stopDistance > 0 {
		riskQty := bot.RiskPerTrade * bot.QuoteSize / stopDistance
		if riskQty < qty {
			qty = riskQty
		}
	}

	step := ps.lotStep(ctx, bot)
	size := utils.FloorToStep(utils.FloatToDecimal(qty), step)

	ps.logger.WithFields(logrus.Fields{
		"bot":           bot.Name,
		"symbol":        bot.Symbol,
		"price":         price,
		"stop_distance": stopDistance,
		"raw_size":      qty,
		"lot_step":      step.String(),
		"final_size":    size.String(),
	}).Debug("Calculated position size")

	return size
}

func (ps *PositionSizer) lotStep(ctx context.Context, bot config.Bot) decimal.Decimal {
	if bot.LotStep > 0 {
		return decimal.NewFromFloat(bot.LotStep)
	}
	if ps.lots == nil {
		return defaultLotStep
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	if step, ok := ps.steps[bot.Symbol]; ok {
		return step
	}

	step, err := ps.lots.LotStep(ctx, bot.Symbol)
	if err != nil || !step.IsPositive() {
		ps.logger.WithError(err).WithField("symbol", bot.Symbol).Warn("Failed to get lot step, using default")
		return defaultLotStep
	}
	ps.steps[bot.Symbol] = step
	return step
}

// StopDistance is the trailing distance for an entry at price: trail_atr_mult
// ATRs when the ATR is known, else trail_percent percent of the price.
func StopDistance(bot config.Bot, price, atr float64) float64 {
	if bot.TrailATRMult > 0 && atr > 0 {
		return bot.TrailATRMult * atr
	}
	if bot.TrailPercent > 0 {
		return price * bot.TrailPercent / 100
	}
	return 0
}
