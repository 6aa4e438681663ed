package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/paaavkata/trend-trader/shared/pkg/kucoin"
	"github.com/paaavkata/trend-trader/shared/pkg/models"
	"github.com/paaavkata/trend-trader/shared/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type kucoinAPI interface {
	GetKlines(ctx context.Context, symbol, klineType string, startAt, endAt int64) ([]kucoin.KlineData, error)
	GetSymbol(ctx context.Context, symbol string) (*kucoin.Symbol, error)
	PlaceOrder(ctx context.Context, order kucoin.OrderRequest) (*kucoin.OrderResponse, error)
	GetOrder(ctx context.Context, orderID string) (*kucoin.OrderStatus, error)
}

type KuCoinExchange struct {
	client kucoinAPI
	logger *logrus.Logger
	now    func() time.Time
}

func NewKuCoinExchange(client kucoinAPI, logger *logrus.Logger) *KuCoinExchange {
	return &KuCoinExchange{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

func (k *KuCoinExchange) Candles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	klineType, err := kucoin.KlineType(interval)
	if err != nil {
		return nil, err
	}
	step, err := models.ParseInterval(interval)
	if err != nil {
		return nil, err
	}

	end := k.now()
	start := end.Add(-time.Duration(limit+1) * step)

	klines, err := k.client.GetKlines(ctx, symbol, klineType, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to get %s klines for %s: %w", interval, symbol, err)
	}

	candles := make([]models.Candle, 0, len(klines))
	for _, kl := range klines {
		candles = append(candles, models.Candle{
			Time:   time.Unix(kl.Timestamp, 0).UTC(),
			Open:   kl.Open,
			High:   kl.High,
			Low:    kl.Low,
			Close:  kl.Close,
			Volume: kl.Volume,
		})
	}
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

func (k *KuCoinExchange) MarketOrder(ctx context.Context, order Order) (Fill, error) {
	if err := order.validate(); err != nil {
		return Fill{}, err
	}

	clientOid := newClientOrderID()
	req := kucoin.OrderRequest{
		ClientOid: clientOid,
		Side:      order.Side,
		Symbol:    order.Symbol,
		Type:      "market",
		Size:      utils.DecimalToString(order.Qty),
	}

	k.logger.WithFields(logrus.Fields{
		"symbol":     order.Symbol,
		"side":       order.Side,
		"quantity":   utils.DecimalToString(order.Qty),
		"type":       "market",
		"client_oid": clientOid,
	}).Info("Placing market order")

	resp, err := k.client.PlaceOrder(ctx, req)
	if err != nil {
		return Fill{}, fmt.Errorf("failed to place market %s order: %w", order.Side, err)
	}

	fill := Fill{
		OrderID:       resp.OrderId,
		ClientOrderID: clientOid,
		Symbol:        order.Symbol,
		Side:          order.Side,
		Qty:           utils.DecimalToFloat(order.Qty),
		Price:         order.Price,
		Time:          k.now().UTC(),
	}

	// Market orders fill immediately; the deal totals give the average price.
	status, err := k.client.GetOrder(ctx, resp.OrderId)
	if err != nil {
		k.logger.WithError(err).WithField("order_id", resp.OrderId).Warn("Failed to fetch order fill, using reference price")
		return fill, nil
	}

	dealSize := utils.ParseDecimalSafe(status.DealSize)
	dealFunds := utils.ParseDecimalSafe(status.DealFunds)
	if dealSize.IsPositive() {
		fill.Qty = utils.DecimalToFloat(dealSize)
		fill.Price = utils.DecimalToFloat(dealFunds.Div(dealSize))
	}
	fill.Fee = utils.DecimalToFloat(utils.ParseDecimalSafe(status.Fee))

	return fill, nil
}

func (k *KuCoinExchange) LotStep(ctx context.Context, symbol string) (decimal.Decimal, error) {
	s, err := k.client.GetSymbol(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return utils.ParseDecimalSafe(s.BaseIncrement), nil
}
