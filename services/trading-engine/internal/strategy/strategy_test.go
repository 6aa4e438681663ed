package strategy

import (
	"testing"
	"time"

	"github.com/paaavkata/trend-trader/shared/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// candlesFromCloses opens every candle at the previous close and pads the
// wicks by half a point.
func candlesFromCloses(closes []float64) []models.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, len(closes))
	prev := closes[0]
	for i, c := range closes {
		o := prev
		out[i] = models.Candle{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   o,
			High:   max(o, c) + 0.5,
			Low:    min(o, c) - 0.5,
			Close:  c,
			Volume: 1,
		}
		prev = c
	}
	return out
}

// barsAt builds candles that open and close at the same price.
func barsAt(closes []float64) []models.Candle {
	candles := candlesFromCloses(closes)
	for i := range candles {
		candles[i].Open = closes[i]
		candles[i].High = closes[i] + 0.5
		candles[i].Low = closes[i] - 0.5
	}
	return candles
}

func mirror(closes []float64, around float64) []float64 {
	out := make([]float64, len(closes))
	for i, c := range closes {
		out[i] = around - c
	}
	return out
}

func actionsOver(s Strategy, candles []models.Candle, from, to int) []Action {
	var actions []Action
	for n := from; n <= to; n++ {
		actions = append(actions, s.Evaluate(candles[:n]).Action)
	}
	return actions
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		s, err := New(name, nil)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
		assert.Positive(t, s.Warmup())
	}

	_, err := New("martingale", nil)
	assert.Error(t, err)
	assert.Equal(t, []string{"heikin_ema", "supertrend", "trendline"}, Names())
}

func TestParams(t *testing.T) {
	p := Params{"period": 7, "multiplier": 2.5, "zero": 0}
	assert.Equal(t, 7, p.Int("period", 10))
	assert.Equal(t, 10, p.Int("missing", 10))
	assert.Equal(t, 3, p.Int("zero", 3))
	assert.Equal(t, 2.5, p.Float("multiplier", 3))
	assert.Equal(t, 3.0, Params(nil).Float("multiplier", 3))

	st := NewSuperTrend(p)
	assert.Equal(t, 7, st.Period)
	assert.Equal(t, 2.5, st.Multiplier)
	assert.Equal(t, 200, st.EMAPeriod)
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "hold", Hold.String())
	assert.Equal(t, "buy", Buy.String())
	assert.Equal(t, "sell", Sell.String())
	assert.Equal(t, "exit_long", ExitLong.String())
	assert.Equal(t, "exit_short", ExitShort.String())
}

func TestEvaluate_HoldsDuringWarmup(t *testing.T) {
	candles := candlesFromCloses([]float64{10, 11, 12})
	for _, name := range Names() {
		s, err := New(name, nil)
		require.NoError(t, err)

		d := s.Evaluate(candles)
		assert.Equal(t, Hold, d.Action, name)
		assert.Equal(t, 12.0, d.Price, name)
		assert.Equal(t, candles[2].Time, d.Time, name)
	}
}

// fallFlatRally drops 2 per bar for 20 bars, ranges for 15 bars, then rallies
// 5 per bar for 10 bars. It returns the closes and the index of the first rally bar.
func fallFlatRally() ([]float64, int) {
	var closes []float64
	price := 100.0
	for i := 0; i < 20; i++ {
		price -= 2
		closes = append(closes, price)
	}
	for i := 0; i < 15; i++ {
		if i%2 == 0 {
			closes = append(closes, price+0.2)
		} else {
			closes = append(closes, price-0.2)
		}
	}
	rally := len(closes)
	for i := 0; i < 10; i++ {
		price += 5
		closes = append(closes, price)
	}
	return closes, rally
}

func TestSuperTrend_BuysOnFlipAboveEMA(t *testing.T) {
	s := NewSuperTrend(Params{"period": 3, "multiplier": 1, "ema_period": 5, "atr_period": 3})
	closes, rally := fallFlatRally()
	candles := candlesFromCloses(closes)

	before := actionsOver(s, candles, s.Warmup(), rally)
	assert.NotContains(t, before, Buy)

	after := actionsOver(s, candles, rally+1, len(candles))
	assert.Contains(t, after, Buy)
	assert.NotContains(t, after, Sell)
}

func TestSuperTrend_SellsOnFlipBelowEMA(t *testing.T) {
	s := NewSuperTrend(Params{"period": 3, "multiplier": 1, "ema_period": 5, "atr_period": 3})
	closes, drop := fallFlatRally()
	candles := candlesFromCloses(mirror(closes, 200))

	before := actionsOver(s, candles, s.Warmup(), drop)
	assert.NotContains(t, before, Sell)

	after := actionsOver(s, candles, drop+1, len(candles))
	assert.Contains(t, after, Sell)
	assert.NotContains(t, after, Buy)
}

var breakoutCloses = []float64{10, 11, 12, 15, 12, 11, 10, 11, 14.5, 11, 10, 9, 9.5, 10, 10.5, 11, 11.2, 11.4, 11.6, 14.5}

func TestTrendline_BuysOnResistanceBreakout(t *testing.T) {
	s := NewTrendline(Params{"left_bars": 2, "right_bars": 2, "lookback": 20})
	require.Equal(t, 20, s.Warmup())
	candles := barsAt(breakoutCloses)

	assert.Equal(t, Hold, s.Evaluate(candles[:19]).Action)

	d := s.Evaluate(candles)
	assert.Equal(t, Buy, d.Action)
	assert.Equal(t, 14.5, d.Price)
	assert.Positive(t, d.ATR)
	assert.NotEmpty(t, d.Reason)
}

func TestTrendline_SellsOnSupportBreakdown(t *testing.T) {
	s := NewTrendline(Params{"left_bars": 2, "right_bars": 2, "lookback": 20})
	candles := barsAt(mirror(breakoutCloses, 30))

	d := s.Evaluate(candles)
	assert.Equal(t, Sell, d.Action)
	assert.Equal(t, 15.5, d.Price)
}

func TestHeikinEMA_Lifecycle(t *testing.T) {
	s := NewHeikinEMA(Params{"fast": 3, "slow": 5, "atr_period": 3})
	require.Equal(t, 7, s.Warmup())

	var closes []float64
	for c := 100.0; c >= 86; c-- {
		closes = append(closes, c)
	}
	closes = append(closes, 106, 102, 98, 94, 90)
	candles := candlesFromCloses(closes)
	// open the first bar one point above its close like the rest of the fall
	candles[0].Open = 101
	candles[0].High = 101.5

	assert.Equal(t, Buy, s.Evaluate(candles[:16]).Action)
	assert.Equal(t, Hold, s.Evaluate(candles[:17]).Action)
	assert.Equal(t, Hold, s.Evaluate(candles[:18]).Action)
	assert.Equal(t, ExitLong, s.Evaluate(candles[:19]).Action)
	assert.Equal(t, Sell, s.Evaluate(candles[:20]).Action)
}
