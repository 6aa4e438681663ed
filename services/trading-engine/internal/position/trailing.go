package position

import (
	"math"

	"github.com/paaavkata/trend-trader/shared/pkg/models"
)

// TrailingStop follows the best price reached by a position at a fixed
// distance. Extreme is the highest high for a long and the lowest low for a
// short. The stop only ever moves in the position's favour.
type TrailingStop struct {
	Side     Side    `json:"side"`
	Distance float64 `json:"distance"`
	Stop     float64 `json:"stop"`
	Extreme  float64 `json:"extreme"`
}

func NewTrailingStop(side Side, entry, distance float64) (TrailingStop, error) {
	if side != Long && side != Short {
		return TrailingStop{}, ErrInvalidSide
	}
	if distance <= 0 || math.IsNaN(distance) || math.IsInf(distance, 0) {
		return TrailingStop{}, ErrInvalidStop
	}

	t := TrailingStop{Side: side, Distance: distance, Extreme: entry}
	if side == Long {
		t.Stop = entry - distance
	} else {
		t.Stop = entry + distance
	}
	return t, nil
}

// Update ratchets the stop with a candle and reports whether it moved.
func (t *TrailingStop) Update(c models.Candle) bool {
	switch t.Side {
	case Long:
		t.Extreme = math.Max(t.Extreme, c.High)
		if candidate := t.Extreme - t.Distance; candidate > t.Stop {
			t.Stop = candidate
			return true
		}
	case Short:
		t.Extreme = math.Min(t.Extreme, c.Low)
		if candidate := t.Extreme + t.Distance; candidate < t.Stop {
			t.Stop = candidate
			return true
		}
	}
	return false
}

// Hit reports whether the candle traded through the stop and the price the
// exit fills at. A candle that opens beyond the stop fills at its open.
func (t TrailingStop) Hit(c models.Candle) (float64, bool) {
	switch t.Side {
	case Long:
		if c.Low <= t.Stop {
			return math.Min(t.Stop, c.Open), true
		}
	case Short:
		if c.High >= t.Stop {
			return math.Max(t.Stop, c.Open), true
		}
	}
	return 0, false
}
