package models

import (
	"fmt"
	"time"
)

// Candle is one OHLCV bar. Time is the bar's open time in UTC.
type Candle struct {
	Time   time.Time `json:"time" db:"open_time"`
	Open   float64   `json:"open" db:"open"`
	High   float64   `json:"high" db:"high"`
	Low    float64   `json:"low" db:"low"`
	Close  float64   `json:"close" db:"close"`
	Volume float64   `json:"volume" db:"volume"`
}

// Closed reports whether the bar has finished forming at now.
func (c Candle) Closed(interval time.Duration, now time.Time) bool {
	return !c.Time.Add(interval).After(now)
}

func (c Candle) Bullish() bool { return c.Close > c.Open }

func (c Candle) Bearish() bool { return c.Close < c.Open }

var intervals = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"8h":  8 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// ParseInterval converts a candle interval such as "15m" or "4h" to its duration.
func ParseInterval(interval string) (time.Duration, error) {
	d, ok := intervals[interval]
	if !ok {
		return 0, fmt.Errorf("unsupported candle interval %q", interval)
	}
	return d, nil
}
