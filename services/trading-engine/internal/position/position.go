package position

import (
	"math"
	"time"

	"github.com/paaavkata/trend-trader/shared/pkg/models"
)

type Position struct {
	ID         string       `json:"id,omitempty"`
	Symbol     string       `json:"symbol"`
	Side       Side         `json:"side"`
	Qty        float64      `json:"qty"`
	EntryPrice float64      `json:"entry_price"`
	EntryTime  time.Time    `json:"entry_time"`
	Stop       TrailingStop `json:"stop"`
	TakeProfit float64      `json:"take_profit,omitempty"`
	OrderID    string       `json:"order_id,omitempty"`
}

func (p Position) UnrealizedPnL(price float64) float64 {
	return pnl(p.Side, p.EntryPrice, price, p.Qty)
}

// TakeProfitHit reports whether the candle reached the take-profit level and
// the fill price, which is the open when the candle gapped past the level.
func (p Position) TakeProfitHit(c models.Candle) (float64, bool) {
	if p.TakeProfit <= 0 {
		return 0, false
	}
	switch p.Side {
	case Long:
		if c.High >= p.TakeProfit {
			return math.Max(p.TakeProfit, c.Open), true
		}
	case Short:
		if c.Low <= p.TakeProfit {
			return math.Min(p.TakeProfit, c.Open), true
		}
	}
	return 0, false
}

// Trade is a closed round trip.
type Trade struct {
	PositionID string    `json:"position_id,omitempty"`
	Bot        string    `json:"bot,omitempty"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Qty        float64   `json:"qty"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	PnL        float64   `json:"pnl"`
	PnLPercent float64   `json:"pnl_percent"`
	Reason     string    `json:"reason"`
	OrderID    string    `json:"order_id,omitempty"`
}

func (t Trade) Win() bool { return t.PnL > 0 }

func pnl(side Side, entry, exit, qty float64) float64 {
	switch side {
	case Long:
		return (exit - entry) * qty
	case Short:
		return (entry - exit) * qty
	default:
		return 0
	}
}
