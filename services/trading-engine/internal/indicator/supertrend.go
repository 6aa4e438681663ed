package indicator

// SuperTrend computes the SuperTrend line and direction from an ATR(period)
// band of width mult around the bar midpoint. up[i] is true while the trend is
// bullish. Values before the first valid ATR are zero and up defaults to true.
func SuperTrend(highs, lows, closes []float64, period int, mult float64) (line []float64, up []bool) {
	n := len(closes)
	line = make([]float64, n)
	up = make([]bool, n)
	for i := range up {
		up[i] = true
	}

	atr := ATR(highs, lows, closes, period)
	if n <= period || atr[period] == 0 {
		return line, up
	}

	finalUpper := make([]float64, n)
	finalLower := make([]float64, n)

	for i := period; i < n; i++ {
		mid := (highs[i] + lows[i]) / 2
		basicUpper := mid + mult*atr[i]
		basicLower := mid - mult*atr[i]

		if i == period {
			finalUpper[i] = basicUpper
			finalLower[i] = basicLower
			up[i] = closes[i] >= mid
		} else {
			if basicUpper < finalUpper[i-1] || closes[i-1] > finalUpper[i-1] {
				finalUpper[i] = basicUpper
			} else {
				finalUpper[i] = finalUpper[i-1]
			}

			if basicLower > finalLower[i-1] || closes[i-1] < finalLower[i-1] {
				finalLower[i] = basicLower
			} else {
				finalLower[i] = finalLower[i-1]
			}

			switch {
			case closes[i] > finalUpper[i-1]:
				up[i] = true
			case closes[i] < finalLower[i-1]:
				up[i] = false
			default:
				up[i] = up[i-1]
			}
		}

		if up[i] {
			line[i] = finalLower[i]
		} else {
			line[i] = finalUpper[i]
		}
	}

	return line, up
}

// Flipped reports whether the direction changed on the last bar and returns the new direction.
func Flipped(up []bool) (flipped bool, bullish bool) {
	n := len(up)
	if n < 2 {
		return false, false
	}
	return up[n-1] != up[n-2], up[n-1]
}
