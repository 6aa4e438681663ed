package strategy

import (
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/indicator"
	"github.com/paaavkata/trend-trader/shared/pkg/models"
)

// HeikinEMA enters on a fast/slow EMA cross confirmed by the colour of the
// latest Heikin-Ashi candle and exits when the Heikin-Ashi colour turns.
type HeikinEMA struct {
	Fast      int
	Slow      int
	ATRPeriod int
}

func NewHeikinEMA(p Params) *HeikinEMA {
	return &HeikinEMA{
		Fast:      p.Int("fast", 9),
		Slow:      p.Int("slow", 21),
		ATRPeriod: p.Int("atr_period", 14),
	}
}

func (s *HeikinEMA) Name() string { return "heikin_ema" }

func (s *HeikinEMA) Warmup() int {
	return maxInt(s.Fast, s.Slow, s.ATRPeriod) + 2
}

func (s *HeikinEMA) Evaluate(candles []models.Candle) Decision {
	if len(candles) < s.Warmup() {
		return hold(candles, 0)
	}

	d := hold(candles, lastATR(candles, s.ATRPeriod))

	closes := models.Series(candles).Closes()
	fast := indicator.EMA(closes, s.Fast)
	slow := indicator.EMA(closes, s.Slow)

	ha := indicator.HeikinAshi(candles)
	last, prev := ha[len(ha)-1], ha[len(ha)-2]

	switch {
	case indicator.CrossOver(fast, slow) && last.Bullish():
		d.Action, d.Reason = Buy, "ema crossed up on bullish heikin-ashi"
	case indicator.CrossUnder(fast, slow) && last.Bearish():
		d.Action, d.Reason = Sell, "ema crossed down on bearish heikin-ashi"
	case last.Bearish() && prev.Bullish():
		d.Action, d.Reason = ExitLong, "heikin-ashi turned bearish"
	case last.Bullish() && prev.Bearish():
		d.Action, d.Reason = ExitShort, "heikin-ashi turned bullish"
	}
	return d
}
