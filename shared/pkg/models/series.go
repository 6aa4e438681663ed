package models

import "time"

// Series is a chronologically ordered slice of candles, oldest first.
type Series []Candle

func (s Series) Highs() []float64  { return s.column(func(c Candle) float64 { return c.High }) }
func (s Series) Lows() []float64   { return s.column(func(c Candle) float64 { return c.Low }) }
func (s Series) Closes() []float64 { return s.column(func(c Candle) float64 { return c.Close }) }

func (s Series) column(pick func(Candle) float64) []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = pick(c)
	}
	return out
}

// Last returns the most recent candle and false when the series is empty.
func (s Series) Last() (Candle, bool) {
	if len(s) == 0 {
		return Candle{}, false
	}
	return s[len(s)-1], true
}

// ClosedOnly drops trailing candles that are still forming at now.
func (s Series) ClosedOnly(interval time.Duration, now time.Time) Series {
	end := len(s)
	for end > 0 && !s[end-1].Closed(interval, now) {
		end--
	}
	return s[:end]
}
