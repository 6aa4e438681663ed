package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paaavkata/trend-trader/shared/pkg/models"
	"github.com/shopspring/decimal"
)

const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// CandleSource returns the latest limit candles for a symbol, oldest first.
// The last candle may still be forming.
type CandleSource interface {
	Candles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
}

// Broker executes market orders.
type Broker interface {
	MarketOrder(ctx context.Context, order Order) (Fill, error)
}

// LotSizer reports the quantity increment a symbol trades in.
type LotSizer interface {
	LotStep(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Order is a market order. Price is the reference price the decision was made
// at; live venues fill at market and paper brokers fill at Price.
type Order struct {
	Symbol string
	Side   string
	Qty    decimal.Decimal
	Price  float64
}

func (o Order) validate() error {
	if o.Side != SideBuy && o.Side != SideSell {
		return fmt.Errorf("invalid order side %q", o.Side)
	}
	if !o.Qty.IsPositive() {
		return fmt.Errorf("invalid order quantity %s", o.Qty)
	}
	return nil
}

type Fill struct {
	OrderID       string    `json:"order_id"`
	ClientOrderID string    `json:"client_order_id"`
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"`
	Qty           float64   `json:"qty"`
	Price         float64   `json:"price"`
	Fee           float64   `json:"fee"`
	Time          time.Time `json:"time"`
}

func newClientOrderID() string {
	return uuid.New().String()
}
