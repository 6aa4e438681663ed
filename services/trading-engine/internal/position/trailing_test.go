package position

import (
	"testing"

	"github.com/paaavkata/trend-trader/shared/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(open, high, low, close float64) models.Candle {
	return models.Candle{Open: open, High: high, Low: low, Close: close}
}

func TestNewTrailingStop(t *testing.T) {
	long, err := NewTrailingStop(Long, 100, 5)
	require.NoError(t, err)
	assert.Equal(t, 95.0, long.Stop)
	assert.Equal(t, 100.0, long.Extreme)

	short, err := NewTrailingStop(Short, 100, 5)
	require.NoError(t, err)
	assert.Equal(t, 105.0, short.Stop)

	_, err = NewTrailingStop(Flat, 100, 5)
	assert.ErrorIs(t, err, ErrInvalidSide)

	_, err = NewTrailingStop(Long, 100, 0)
	assert.ErrorIs(t, err, ErrInvalidStop)

	_, err = NewTrailingStop(Long, 100, -1)
	assert.ErrorIs(t, err, ErrInvalidStop)
}

func TestTrailingStop_LongRatchetsUpOnly(t *testing.T) {
	ts, err := NewTrailingStop(Long, 100, 5)
	require.NoError(t, err)

	assert.True(t, ts.Update(bar(100, 110, 99, 108)))
	assert.Equal(t, 105.0, ts.Stop)
	assert.Equal(t, 110.0, ts.Extreme)

	// a lower high leaves the stop where it is
	assert.False(t, ts.Update(bar(108, 107, 101, 102)))
	assert.Equal(t, 105.0, ts.Stop)

	assert.True(t, ts.Update(bar(102, 112, 106, 111)))
	assert.Equal(t, 107.0, ts.Stop)
}

func TestTrailingStop_ShortRatchetsDownOnly(t *testing.T) {
	ts, err := NewTrailingStop(Short, 100, 5)
	require.NoError(t, err)

	assert.True(t, ts.Update(bar(100, 101, 90, 92)))
	assert.Equal(t, 95.0, ts.Stop)

	assert.False(t, ts.Update(bar(92, 94, 93, 93)))
	assert.Equal(t, 95.0, ts.Stop)
	assert.Equal(t, 90.0, ts.Extreme)
}

func TestTrailingStop_Hit(t *testing.T) {
	long, _ := NewTrailingStop(Long, 100, 5)
	short, _ := NewTrailingStop(Short, 100, 5)

	tests := []struct {
		name    string
		stop    TrailingStop
		candle  models.Candle
		wantHit bool
		want    float64
	}{
		{"long untouched", long, bar(100, 102, 96, 101), false, 0},
		{"long touches stop", long, bar(100, 101, 95, 97), true, 95},
		{"long trades through", long, bar(99, 100, 90, 92), true, 95},
		{"long gaps below", long, bar(93, 94, 90, 92), true, 93},
		{"short untouched", short, bar(100, 104, 98, 99), false, 0},
		{"short touches stop", short, bar(100, 105, 99, 103), true, 105},
		{"short gaps above", short, bar(108, 110, 107, 109), true, 108},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, hit := tt.stop.Hit(tt.candle)
			assert.Equal(t, tt.wantHit, hit)
			assert.Equal(t, tt.want, price)
		})
	}
}
