package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/paaavkata/trend-trader/shared/pkg/binance"
	"github.com/paaavkata/trend-trader/shared/pkg/models"
	"github.com/paaavkata/trend-trader/shared/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type binanceAPI interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]binance.Kline, error)
	GetSymbolFilters(ctx context.Context, symbol string) (*binance.SymbolFilters, error)
	PlaceMarketOrder(ctx context.Context, symbol, side, quantity, clientOrderID string) (*binance.OrderResponse, error)
}

type BinanceExchange struct {
	client binanceAPI
	logger *logrus.Logger
	now    func() time.Time
}

func NewBinanceExchange(client binanceAPI, logger *logrus.Logger) *BinanceExchange {
	return &BinanceExchange{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

func (b *BinanceExchange) Candles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	if _, err := models.ParseInterval(interval); err != nil {
		return nil, err
	}

	klines, err := b.client.GetKlines(ctx, symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s klines for %s: %w", interval, symbol, err)
	}

	candles := make([]models.Candle, len(klines))
	for i, k := range klines {
		candles[i] = models.Candle{
			Time:   time.UnixMilli(k.OpenTime).UTC(),
			Open:   k.Open,
			High:   k.High,
			Low:    k.Low,
			Close:  k.Close,
			Volume: k.Volume,
		}
	}
	return candles, nil
}

func (b *BinanceExchange) MarketOrder(ctx context.Context, order Order) (Fill, error) {
	if err := order.validate(); err != nil {
		return Fill{}, err
	}

	clientID := newClientOrderID()
	b.logger.WithFields(logrus.Fields{
		"symbol":          order.Symbol,
		"side":            order.Side,
		"quantity":        utils.DecimalToString(order.Qty),
		"client_order_id": clientID,
	}).Info("Placing market order")

	resp, err := b.client.PlaceMarketOrder(ctx, order.Symbol, order.Side, utils.DecimalToString(order.Qty), clientID)
	if err != nil {
		return Fill{}, fmt.Errorf("failed to place market %s order: %w", order.Side, err)
	}

	fill := Fill{
		OrderID:       fmt.Sprintf("%d", resp.OrderID),
		ClientOrderID: clientID,
		Symbol:        order.Symbol,
		Side:          order.Side,
		Qty:           utils.DecimalToFloat(order.Qty),
		Price:         order.Price,
		Time:          b.now().UTC(),
	}
	if resp.TransactTime > 0 {
		fill.Time = time.UnixMilli(resp.TransactTime).UTC()
	}

	qty, notional, fee := decimal.Zero, decimal.Zero, decimal.Zero
	for _, f := range resp.Fills {
		q := utils.ParseDecimalSafe(f.Qty)
		qty = qty.Add(q)
		notional = notional.Add(q.Mul(utils.ParseDecimalSafe(f.Price)))
		fee = fee.Add(utils.ParseDecimalSafe(f.Commission))
	}
	if qty.IsPositive() {
		fill.Qty = utils.DecimalToFloat(qty)
		fill.Price = utils.DecimalToFloat(notional.Div(qty))
	}
	fill.Fee = utils.DecimalToFloat(fee)

	return fill, nil
}

func (b *BinanceExchange) LotStep(ctx context.Context, symbol string) (decimal.Decimal, error) {
	f, err := b.client.GetSymbolFilters(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return utils.ParseDecimalSafe(f.StepSize), nil
}
