package indicator

import (
	"math"

	"github.com/paaavkata/trend-trader/shared/pkg/models"
)

// HeikinAshi converts regular candles into Heikin-Ashi candles. Times and
// volumes are carried over unchanged.
func HeikinAshi(candles []models.Candle) []models.Candle {
	ha := make([]models.Candle, len(candles))
	for i, c := range candles {
		haClose := (c.Open + c.High + c.Low + c.Close) / 4

		var haOpen float64
		if i == 0 {
			haOpen = (c.Open + c.Close) / 2
		} else {
			haOpen = (ha[i-1].Open + ha[i-1].Close) / 2
		}

		ha[i] = models.Candle{
			Time:   c.Time,
			Open:   haOpen,
			High:   math.Max(c.High, math.Max(haOpen, haClose)),
			Low:    math.Min(c.Low, math.Min(haOpen, haClose)),
			Close:  haClose,
			Volume: c.Volume,
		}
	}
	return ha
}
