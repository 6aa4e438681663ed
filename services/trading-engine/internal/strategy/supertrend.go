package strategy

import (
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/indicator"
	"github.com/paaavkata/trend-trader/shared/pkg/models"
)

// SuperTrend trades SuperTrend flips on Heikin-Ashi candles, filtered by a
// long EMA of the Heikin-Ashi close. A flip in the filter's direction opens a
// position; a flip against it only exits.
type SuperTrend struct {
	Period     int
	Multiplier float64
	EMAPeriod  int
	ATRPeriod  int
}

func NewSuperTrend(p Params) *SuperTrend {
	return &SuperTrend{
		Period:     p.Int("period", 10),
		Multiplier: p.Float("multiplier", 3),
		EMAPeriod:  p.Int("ema_period", 200),
		ATRPeriod:  p.Int("atr_period", 14),
	}
}

func (s *SuperTrend) Name() string { return "supertrend" }

func (s *SuperTrend) Warmup() int {
	return maxInt(s.Period, s.EMAPeriod, s.ATRPeriod) + 2
}

func (s *SuperTrend) Evaluate(candles []models.Candle) Decision {
	if len(candles) < s.Warmup() {
		return hold(candles, 0)
	}

	d := hold(candles, lastATR(candles, s.ATRPeriod))

	ha := models.Series(indicator.HeikinAshi(candles))
	closes := ha.Closes()
	_, up := indicator.SuperTrend(ha.Highs(), ha.Lows(), closes, s.Period, s.Multiplier)
	filter := indicator.Last(indicator.EMA(closes, s.EMAPeriod))
	haClose := indicator.Last(closes)

	flipped, bullish := indicator.Flipped(up)
	if !flipped {
		return d
	}

	switch {
	case bullish && haClose > filter:
		d.Action, d.Reason = Buy, "supertrend flipped up above ema"
	case bullish:
		d.Action, d.Reason = ExitShort, "supertrend flipped up below ema"
	case haClose < filter:
		d.Action, d.Reason = Sell, "supertrend flipped down below ema"
	default:
		d.Action, d.Reason = ExitLong, "supertrend flipped down above ema"
	}
	return d
}

func maxInt(values ...int) int {
	m := 0
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}
