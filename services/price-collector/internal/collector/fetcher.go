package collector

import (
	"context"
	"fmt"
	"time"

	collect "github.com/paaavkata/trend-trader/services/price-collector/pkg/models"
	"github.com/paaavkata/trend-trader/shared/pkg/binance"
	"github.com/paaavkata/trend-trader/shared/pkg/kucoin"
	"github.com/paaavkata/trend-trader/shared/pkg/models"
	"github.com/sirupsen/logrus"
)

type kucoinKlines interface {
	GetKlines(ctx context.Context, symbol, klineType string, startAt, endAt int64) ([]kucoin.KlineData, error)
}

type binanceKlines interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]binance.Kline, error)
}

// Fetcher reads recent candles from the exchanges. Both clients rate limit
// themselves.
type Fetcher struct {
	kucoin   kucoinKlines
	binance  binanceKlines
	lookback int
	logger   *logrus.Logger
	now      func() time.Time
}

func NewFetcher(kc kucoinKlines, bn binanceKlines, lookback int, logger *logrus.Logger) *Fetcher {
	if lookback <= 0 {
		lookback = 100
	}
	return &Fetcher{
		kucoin:   kc,
		binance:  bn,
		lookback: lookback,
		logger:   logger,
		now:      time.Now,
	}
}

// FetchClosed returns the closed candles of the lookback window, oldest first.
func (f *Fetcher) FetchClosed(ctx context.Context, t collect.Target) ([]models.Candle, error) {
	interval, err := models.ParseInterval(t.Interval)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var candles []models.Candle
	switch t.Exchange {
	case collect.ExchangeKuCoin:
		candles, err = f.fetchKuCoin(ctx, t, interval)
	case collect.ExchangeBinance:
		candles, err = f.fetchBinance(ctx, t)
	default:
		return nil, fmt.Errorf("unknown exchange %q", t.Exchange)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", t, err)
	}

	closed := models.Series(candles).ClosedOnly(interval, f.now())
	f.logger.WithFields(logrus.Fields{
		"target":      t.String(),
		"fetched":     len(candles),
		"closed":      len(closed),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Fetched candles")

	return closed, nil
}

func (f *Fetcher) fetchKuCoin(ctx context.Context, t collect.Target, interval time.Duration) ([]models.Candle, error) {
	if f.kucoin == nil {
		return nil, fmt.Errorf("kucoin client not configured")
	}
	klineType, err := kucoin.KlineType(t.Interval)
	if err != nil {
		return nil, err
	}

	end := f.now()
	begin := end.Add(-time.Duration(f.lookback) * interval)
	klines, err := f.kucoin.GetKlines(ctx, t.Symbol, klineType, begin.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}

	candles := make([]models.Candle, len(klines))
	for i, k := range klines {
		candles[i] = models.Candle{
			Time:   time.Unix(k.Timestamp, 0).UTC(),
			Open:   k.Open,
			High:   k.High,
			Low:    k.Low,
			Close:  k.Close,
			Volume: k.Volume,
		}
	}
	return candles, nil
}

func (f *Fetcher) fetchBinance(ctx context.Context, t collect.Target) ([]models.Candle, error) {
	if f.binance == nil {
		return nil, fmt.Errorf("binance client not configured")
	}
	klines, err := f.binance.GetKlines(ctx, t.Symbol, t.Interval, f.lookback)
	if err != nil {
		return nil, err
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
