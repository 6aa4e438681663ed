package position

import (
	"errors"
	"fmt"
)

// Side is the state of a machine: flat, long or short. The numeric values are
// persisted in snapshots and must not change.
type Side int

const (
	Flat  Side = 0
	Long  Side = 1
	Short Side = 2
)

var (
	ErrNotFlat     = errors.New("position: already holding a position")
	ErrFlat        = errors.New("position: no open position")
	ErrInvalidSide = errors.New("position: side must be long or short")
	ErrInvalidStop = errors.New("position: stop distance must be positive")
)

func (s Side) String() string {
	switch s {
	case Flat:
		return "flat"
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Opposite returns the other trading side; Flat stays Flat.
func (s Side) Opposite() Side {
	switch s {
	case Long:
		return Short
	case Short:
		return Long
	default:
		return Flat
	}
}

// EntryOrderSide is the exchange order side that opens a position on s.
func (s Side) EntryOrderSide() string {
	if s == Short {
		return "sell"
	}
	return "buy"
}

// ExitOrderSide is the exchange order side that closes a position on s.
func (s Side) ExitOrderSide() string {
	if s == Flat {
		return "sell"
	}
	return s.Opposite().EntryOrderSide()
}

func ParseSide(s string) (Side, error) {
	switch s {
	case "flat":
		return Flat, nil
	case "long":
		return Long, nil
	case "short":
		return Short, nil
	default:
		return Flat, fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}
