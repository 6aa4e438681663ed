package indicator

import (
	"github.com/markcheno/go-talib"
)

// EMA returns the exponential moving average seeded with the SMA of the first
// period values. Indexes before period-1 are zero, as is the whole slice when
// there is not enough data.
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return make([]float64, len(values))
	}
	return talib.Ema(values, period)
}

// ATR returns Wilder's average true range. The first period values are zero.
func ATR(highs, lows, closes []float64, period int) []float64 {
	if period <= 0 || len(closes) <= period || len(highs) != len(closes) || len(lows) != len(closes) {
		return make([]float64, len(closes))
	}
	return talib.Atr(highs, lows, closes, period)
}

// CrossOver reports whether a moved from at-or-below b to above b on the last value.
func CrossOver(a, b []float64) bool {
	n := len(a)
	if n < 2 || len(b) != n {
		return false
	}
	return a[n-2] <= b[n-2] && a[n-1] > b[n-1]
}

// CrossUnder reports whether a moved from at-or-above b to below b on the last value.
func CrossUnder(a, b []float64) bool {
	n := len(a)
	if n < 2 || len(b) != n {
		return false
	}
	return a[n-2] >= b[n-2] && a[n-1] < b[n-1]
}

// Last returns the final element of values, or zero when empty.
func Last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}
