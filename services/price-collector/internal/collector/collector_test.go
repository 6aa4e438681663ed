package collector

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	collect "github.com/paaavkata/trend-trader/services/price-collector/pkg/models"
	"github.com/paaavkata/trend-trader/shared/pkg/binance"
	"github.com/paaavkata/trend-trader/shared/pkg/kucoin"
	"github.com/paaavkata/trend-trader/shared/pkg/models"
	"github.com/paaavkata/trend-trader/shared/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockKuCoin is a mock type for the kucoin kline endpoint
type MockKuCoin struct {
	mock.Mock
}

func (m *MockKuCoin) GetKlines(ctx context.Context, symbol, klineType string, startAt, endAt int64) ([]kucoin.KlineData, error) {
	args := m.Called(ctx, symbol, klineType, startAt, endAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]kucoin.KlineData), args.Error(1)
}

// MockBinance is a mock type for the binance kline endpoint
type MockBinance struct {
	mock.Mock
}

func (m *MockBinance) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]binance.Kline, error) {
	args := m.Called(ctx, symbol, interval, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]binance.Kline), args.Error(1)
}

// MockCandleStore is a mock type for the candle repository
type MockCandleStore struct {
	mock.Mock
}

func (m *MockCandleStore) SaveCandles(ctx context.Context, exchange, symbol, interval string, candles []models.Candle) error {
	return m.Called(ctx, exchange, symbol, interval, candles).Error(0)
}

func (m *MockCandleStore) DeleteCandlesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

var (
	t0  = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now = t0.Add(3*time.Hour + 30*time.Minute)

	btc = collect.Target{Exchange: collect.ExchangeKuCoin, Symbol: "BTC-USDT", Interval: "1h"}
	eth = collect.Target{Exchange: collect.ExchangeBinance, Symbol: "ETHUSDT", Interval: "1h"}
)

func binanceKlineFixture(n int) []binance.Kline {
	out := make([]binance.Kline, n)
	for i := range out {
		open := t0.Add(time.Duration(i) * time.Hour)
		out[i] = binance.Kline{OpenTime: open.UnixMilli(), Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 3}
	}
	return out
}

func newTestFetcher(kc kucoinKlines, bn binanceKlines) *Fetcher {
	f := NewFetcher(kc, bn, 100, utils.NewTestLogger())
	f.now = func() time.Time { return now }
	return f
}

func TestFetchClosedBinance(t *testing.T) {
	bn := new(MockBinance)
	bn.On("GetKlines", mock.Anything, "ETHUSDT", "1h", 100).Return(binanceKlineFixture(4), nil)

	candles, err := newTestFetcher(nil, bn).FetchClosed(context.Background(), eth)
	require.NoError(t, err)

	require.Len(t, candles, 3, "the forming 03:00 candle is dropped")
	assert.Equal(t, t0, candles[0].Time)
	assert.Equal(t, 10.5, candles[2].Close)
	bn.AssertExpectations(t)
}

func TestFetchClosedKuCoin(t *testing.T) {
	kc := new(MockKuCoin)
	begin := now.Add(-100 * time.Hour).Unix()
	kc.On("GetKlines", mock.Anything, "BTC-USDT", "1hour", begin, now.Unix()).Return([]kucoin.KlineData{
		{Timestamp: t0.Add(2 * time.Hour).Unix(), Open: 1, High: 2, Low: 1, Close: 2, Volume: 5},
		{Timestamp: t0.Add(3 * time.Hour).Unix(), Open: 2, High: 2, Low: 1, Close: 1, Volume: 5},
	}, nil)

	candles, err := newTestFetcher(kc, nil).FetchClosed(context.Background(), btc)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, t0.Add(2*time.Hour), candles[0].Time)
	kc.AssertExpectations(t)
}

func TestFetchClosedErrors(t *testing.T) {
	kc := new(MockKuCoin)
	kc.On("GetKlines", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("503"))
	f := newTestFetcher(kc, nil)

	_, err := f.FetchClosed(context.Background(), btc)
	assert.ErrorContains(t, err, "kucoin:BTC-USDT:1h")

	_, err = f.FetchClosed(context.Background(), eth)
	assert.ErrorContains(t, err, "binance client not configured")

	_, err = f.FetchClosed(context.Background(), collect.Target{Exchange: "kraken", Symbol: "X", Interval: "1h"})
	assert.ErrorContains(t, err, "unknown exchange")
}

func TestProcessCandles(t *testing.T) {
	good := models.Candle{Time: t0, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 1}
	input := []models.Candle{
		good,
		{Time: t0.Add(time.Hour), Open: 10, High: 9, Low: 11, Close: 10, Volume: 1},
		{Time: t0.Add(2 * time.Hour), Open: math.NaN(), High: 11, Low: 9, Close: 10, Volume: 1},
		{Time: t0.Add(3 * time.Hour), Open: 10, High: 11, Low: 9, Close: 12, Volume: 1},
		{Time: t0.Add(4 * time.Hour), Open: 0, High: 11, Low: 9, Close: 10, Volume: 1},
	}

	store := new(MockCandleStore)
	store.On("SaveCandles", mock.Anything, "kucoin", "BTC-USDT", "1h", []models.Candle{good}).Return(nil).Once()

	p := NewProcessor(store, utils.NewTestLogger(), 30)
	n, err := p.ProcessCandles(context.Background(), btc, input)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = p.ProcessCandles(context.Background(), btc, input[1:])
	require.NoError(t, err)
	assert.Zero(t, n, "nothing valid, nothing stored")

	store.AssertExpectations(t)
}

func TestProcessCandlesStoreError(t *testing.T) {
	store := new(MockCandleStore)
	store.On("SaveCandles", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down"))

	p := NewProcessor(store, utils.NewTestLogger(), 30)
	_, err := p.ProcessCandles(context.Background(), btc, []models.Candle{{Time: t0, Open: 1, High: 1, Low: 1, Close: 1}})
	assert.ErrorContains(t, err, "db down")
}

func TestCleanupOldData(t *testing.T) {
	store := new(MockCandleStore)
	store.On("DeleteCandlesBefore", mock.Anything, now.AddDate(0, 0, -30)).Return(int64(12), nil).Once()

	p := NewProcessor(store, utils.NewTestLogger(), 30)
	p.now = func() time.Time { return now }
	require.NoError(t, p.CleanupOldData(context.Background()))

	keepAll := NewProcessor(store, utils.NewTestLogger(), 0)
	require.NoError(t, keepAll.CleanupOldData(context.Background()))

	store.AssertExpectations(t)
}

func TestCollectAll(t *testing.T) {
	kc := new(MockKuCoin)
	kc.On("GetKlines", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
	bn := new(MockBinance)
	bn.On("GetKlines", mock.Anything, "ETHUSDT", "1h", 100).Return(binanceKlineFixture(4), nil)

	store := new(MockCandleStore)
	store.On("SaveCandles", mock.Anything, "binance", "ETHUSDT", "1h", mock.Anything).Return(nil)

	s := NewScheduler(newTestFetcher(kc, bn), NewProcessor(store, utils.NewTestLogger(), 30),
		[]collect.Target{btc, eth}, 2, utils.NewTestLogger())

	_, lastGood := s.LastCycle()
	assert.True(t, lastGood.IsZero())

	stats := s.CollectAll(context.Background())
	assert.Equal(t, 2, stats.Targets)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 3, stats.Stored)

	last, lastGood := s.LastCycle()
	assert.Equal(t, stats, last)
	assert.Equal(t, stats.Finished, lastGood)

	store.AssertExpectations(t)
}

func TestSchedulerStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(newTestFetcher(nil, nil), NewProcessor(new(MockCandleStore), utils.NewTestLogger(), 0),
		nil, 1, utils.NewTestLogger())
	err := s.Start(context.Background(), "not a cron spec", "0 0 2 * * *")
	assert.Error(t, err)
}
