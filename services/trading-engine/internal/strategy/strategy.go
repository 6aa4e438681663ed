package strategy

import (
	"fmt"
	"sort"
	"time"

	"github.com/paaavkata/trend-trader/services/trading-engine/internal/indicator"
	"github.com/paaavkata/trend-trader/shared/pkg/models"
	"github.com/samber/lo"
)

type Action int

const (
	Hold Action = iota
	Buy
	Sell
	ExitLong
	ExitShort
)

func (a Action) String() string {
	switch a {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	case ExitLong:
		return "exit_long"
	case ExitShort:
		return "exit_short"
	default:
		return "hold"
	}
}

// Decision is the outcome of evaluating a strategy on the latest closed candle.
// Price is the close of that candle and ATR its average true range, used to
// size the trailing stop.
type Decision struct {
	Action Action    `json:"action"`
	Reason string    `json:"reason,omitempty"`
	Price  float64   `json:"price"`
	ATR    float64   `json:"atr"`
	Time   time.Time `json:"time"`
}

type Strategy interface {
	Name() string
	// Warmup is the number of closed candles needed before Evaluate can act.
	Warmup() int
	Evaluate(candles []models.Candle) Decision
}

// Params holds numeric strategy settings from the bot configuration.
type Params map[string]float64

func (p Params) Float(key string, def float64) float64 {
	if v, ok := p[key]; ok && v > 0 {
		return v
	}
	return def
}

func (p Params) Int(key string, def int) int {
	if v, ok := p[key]; ok && v >= 1 {
		return int(v)
	}
	return def
}

type factory func(Params) Strategy

var registry = map[string]factory{
	"supertrend": func(p Params) Strategy { return NewSuperTrend(p) },
	"trendline":  func(p Params) Strategy { return NewTrendline(p) },
	"heikin_ema": func(p Params) Strategy { return NewHeikinEMA(p) },
}

// New builds the named strategy. Missing parameters fall back to defaults.
func New(name string, params Params) (Strategy, error) {
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
	return build(params), nil
}

// Names lists the registered strategies in alphabetical order.
func Names() []string {
	names := lo.Keys(registry)
	sort.Strings(names)
	return names
}

// hold returns a Hold decision stamped with the last candle.
func hold(candles []models.Candle, atr float64) Decision {
	d := Decision{Action: Hold, ATR: atr}
	if n := len(candles); n > 0 {
		d.Price = candles[n-1].Close
		d.Time = candles[n-1].Time
	}
	return d
}

func lastATR(candles []models.Candle, period int) float64 {
	s := models.Series(candles)
	return indicator.Last(indicator.ATR(s.Highs(), s.Lows(), s.Closes(), period))
}
