package position

import (
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/strategy"
	"github.com/paaavkata/trend-trader/shared/pkg/models"
)

type ActionKind int

const (
	ActionOpen ActionKind = iota + 1
	ActionClose
	ActionTrail
)

func (k ActionKind) String() string {
	switch k {
	case ActionOpen:
		return "open"
	case ActionClose:
		return "close"
	case ActionTrail:
		return "trail"
	default:
		return "unknown"
	}
}

// Action is one step of a transition. Side is the side being opened or
// closed and Price the expected fill.
type Action struct {
	Kind   ActionKind
	Side   Side
	Price  float64
	Reason string
}

// Plan decides what a machine should do with a newly closed candle and the
// strategy's decision on it. It does not modify the machine.
//
// Protective exits come first: a stop or take-profit hit closes the position
// and nothing else happens on that candle. Otherwise an opposite signal
// reverses (the new side only when allowShort permits a short), an exit
// signal closes, and a flat machine enters. An open position with nothing to
// do trails its stop.
func Plan(m *Machine, c models.Candle, d strategy.Decision, allowShort bool) []Action {
	pos, open := m.Position()
	if !open {
		switch {
		case d.Action == strategy.Buy:
			return []Action{{Kind: ActionOpen, Side: Long, Price: c.Close, Reason: d.Reason}}
		case d.Action == strategy.Sell && allowShort:
			return []Action{{Kind: ActionOpen, Side: Short, Price: c.Close, Reason: d.Reason}}
		}
		return nil
	}

	if price, hit := pos.Stop.Hit(c); hit {
		return []Action{{Kind: ActionClose, Side: pos.Side, Price: price, Reason: ReasonStop}}
	}
	if price, hit := pos.TakeProfitHit(c); hit {
		return []Action{{Kind: ActionClose, Side: pos.Side, Price: price, Reason: ReasonTakeProfit}}
	}

	switch {
	case pos.Side == Long && d.Action == strategy.Sell,
		pos.Side == Short && d.Action == strategy.Buy:
		actions := []Action{{Kind: ActionClose, Side: pos.Side, Price: c.Close, Reason: ReasonReverse}}
		if next := pos.Side.Opposite(); next == Long || allowShort {
			actions = append(actions, Action{Kind: ActionOpen, Side: next, Price: c.Close, Reason: d.Reason})
		}
		return actions
	case pos.Side == Long && d.Action == strategy.ExitLong,
		pos.Side == Short && d.Action == strategy.ExitShort:
		return []Action{{Kind: ActionClose, Side: pos.Side, Price: c.Close, Reason: ReasonSignal}}
	}

	return []Action{{Kind: ActionTrail, Side: pos.Side, Price: c.Close}}
}
