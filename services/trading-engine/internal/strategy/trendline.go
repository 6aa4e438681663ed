package strategy

import (
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/indicator"
	"github.com/paaavkata/trend-trader/shared/pkg/models"
)

// Trendline trades breakouts of lines drawn through the last two pivot highs
// (resistance) and pivot lows (support) inside a lookback window. It never
// emits exits; positions are closed by their trailing stop or a reversal.
type Trendline struct {
	LeftBars  int
	RightBars int
	Lookback  int
	ATRPeriod int
}

func NewTrendline(p Params) *Trendline {
	return &Trendline{
		LeftBars:  p.Int("left_bars", 5),
		RightBars: p.Int("right_bars", 5),
		Lookback:  p.Int("lookback", 100),
		ATRPeriod: p.Int("atr_period", 14),
	}
}

func (s *Trendline) Name() string { return "trendline" }

func (s *Trendline) Warmup() int {
	return maxInt(s.Lookback, 2*(s.LeftBars+s.RightBars)+2, s.ATRPeriod+1)
}

func (s *Trendline) Evaluate(candles []models.Candle) Decision {
	if len(candles) < s.Warmup() {
		return hold(candles, 0)
	}

	d := hold(candles, lastATR(candles, s.ATRPeriod))

	window := models.Series(candles[len(candles)-s.Lookback:])
	closes := window.Closes()

	if resistance, ok := indicator.ResistanceLine(window.Highs(), s.LeftBars, s.RightBars); ok && resistance.CrossedAbove(closes) {
		d.Action, d.Reason = Buy, "close broke above resistance trendline"
		return d
	}
	if support, ok := indicator.SupportLine(window.Lows(), s.LeftBars, s.RightBars); ok && support.CrossedBelow(closes) {
		d.Action, d.Reason = Sell, "close broke below support trendline"
	}
	return d
}
