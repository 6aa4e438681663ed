package trader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paaavkata/trend-trader/services/trading-engine/internal/config"
	"github.com/paaavkata/trend-trader/shared/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockLotSizer is a mock type for exchange.LotSizer
type MockLotSizer struct {
	mock.Mock
}

func (m *MockLotSizer) LotStep(ctx context.Context, symbol string) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func TestPositionSizer(t *testing.T) {
	ps := NewPositionSizer(nil, utils.NewTestLogger())
	bot := config.Bot{Name: "b", Symbol: "X", QuoteSize: 1000, LotStep: 0.01}

	tests := []struct {
		name     string
		risk     float64
		price    float64
		distance float64
		want     string
	}{
		{"quote notional", 0, 300, 10, "3.33"},
		{"risk cap binds", 0.01, 100, 5, "2"},
		{"risk cap loose", 0.5, 100, 5, "10"},
		{"zero price", 0, 0, 1, "0"},
		{"below one lot", 0.00001, 100, 5, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bot
			b.RiskPerTrade = tt.risk
			got := ps.Size(context.Background(), b, tt.price, tt.distance)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestPositionSizerLotStepFromExchange(t *testing.T) {
	lots := new(MockLotSizer)
	lots.On("LotStep", mock.Anything, "ETH-USDT").Return(decimal.RequireFromString("0.1"), nil).Once()
	lots.On("LotStep", mock.Anything, "DOGE-USDT").Return(decimal.Zero, errors.New("boom")).Once()

	ps := NewPositionSizer(lots, utils.NewTestLogger())
	eth := config.Bot{Symbol: "ETH-USDT", QuoteSize: 100}

	assert.Equal(t, "0.3", ps.Size(context.Background(), eth, 300, 0).String())
	assert.Equal(t, "0.3", ps.Size(context.Background(), eth, 300, 0).String(), "step is cached")

	doge := config.Bot{Symbol: "DOGE-USDT", QuoteSize: 1}
	assert.Equal(t, "0.33333333", ps.Size(context.Background(), doge, 3, 0).String(), "falls back to 1e-8")

	lots.AssertExpectations(t)
}

func TestStopDistance(t *testing.T) {
	atrBot := config.Bot{TrailATRMult: 2, TrailPercent: 1}
	assert.Equal(t, 3.0, StopDistance(atrBot, 100, 1.5))
	assert.Equal(t, 1.0, StopDistance(atrBot, 100, 0), "percent fallback without ATR")

	assert.Equal(t, 0.0, StopDistance(config.Bot{TrailATRMult: 2}, 100, 0))
	assert.Equal(t, 2.5, StopDistance(config.Bot{TrailPercent: 2.5}, 100, 7))
}

func TestRetry(t *testing.T) {
	calls := 0
	err := retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = retry(context.Background(), 2, time.Millisecond, func() error {
		calls++
		return errors.New("down")
	})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 3, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = retry(ctx, 5, time.Hour, func() error { return errors.New("down") })
	assert.ErrorIs(t, err, context.Canceled)
}
