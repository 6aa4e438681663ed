package position

import (
	"fmt"
	"sync"
	"time"

	"github.com/paaavkata/trend-trader/shared/pkg/models"
)

const (
	ReasonStop       = "stop_hit"
	ReasonTakeProfit = "take_profit"
	ReasonReverse    = "reverse"
	ReasonSignal     = "signal"
)

// Entry describes a filled order that opens a position.
type Entry struct {
	ID           string
	Side         Side
	Qty          float64
	Price        float64
	StopDistance float64
	// TakeProfitPercent places a take-profit that many percent away from the
	// entry price; zero disables it.
	TakeProfitPercent float64
	Time              time.Time
	OrderID           string
}

// Machine holds the position state for one symbol. It is flat when no
// position is open, and long or short otherwise.
type Machine struct {
	mu         sync.RWMutex
	symbol     string
	pos        *Position
	lastCandle time.Time
}

func NewMachine(symbol string) *Machine {
	return &Machine{symbol: symbol}
}

func (m *Machine) Symbol() string { return m.symbol }

func (m *Machine) Side() Side {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pos == nil {
		return Flat
	}
	return m.pos.Side
}

// Position returns a copy of the open position.
func (m *Machine) Position() (Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pos == nil {
		return Position{}, false
	}
	return *m.pos, true
}

// Open moves a flat machine into the entry's side.
func (m *Machine) Open(e Entry) error {
	if e.Side != Long && e.Side != Short {
		return ErrInvalidSide
	}
	if e.Qty <= 0 || e.Price <= 0 {
		return fmt.Errorf("position: invalid entry qty=%v price=%v", e.Qty, e.Price)
	}

	stop, err := NewTrailingStop(e.Side, e.Price, e.StopDistance)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pos != nil {
		return ErrNotFlat
	}

	p := &Position{
		ID:         e.ID,
		Symbol:     m.symbol,
		Side:       e.Side,
		Qty:        e.Qty,
		EntryPrice: e.Price,
		EntryTime:  e.Time,
		Stop:       stop,
		OrderID:    e.OrderID,
	}
	if e.TakeProfitPercent > 0 {
		offset := e.Price * e.TakeProfitPercent / 100
		if e.Side == Long {
			p.TakeProfit = e.Price + offset
		} else {
			p.TakeProfit = e.Price - offset
		}
	}
	m.pos = p
	return nil
}

// Close flattens the machine and returns the finished trade.
func (m *Machine) Close(price float64, reason string, at time.Time) (Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pos == nil {
		return Trade{}, ErrFlat
	}

	p := m.pos
	t := Trade{
		PositionID: p.ID,
		Symbol:     p.Symbol,
		Side:       p.Side,
		Qty:        p.Qty,
		EntryPrice: p.EntryPrice,
		ExitPrice:  price,
		EntryTime:  p.EntryTime,
		ExitTime:   at,
		PnL:        pnl(p.Side, p.EntryPrice, price, p.Qty),
		Reason:     reason,
		OrderID:    p.OrderID,
	}
	if notional := p.EntryPrice * p.Qty; notional > 0 {
		t.PnLPercent = t.PnL / notional * 100
	}

	m.pos = nil
	return t, nil
}

// Trail ratchets the open position's stop with the candle. It reports whether
// the stop moved; a flat machine never moves.
func (m *Machine) Trail(c models.Candle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos == nil {
		return false
	}
	return m.pos.Stop.Update(c)
}

// Processed reports whether the candle opening at t was already handled.
func (m *Machine) Processed(t time.Time) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.lastCandle.IsZero() && !t.After(m.lastCandle)
}

func (m *Machine) MarkProcessed(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.After(m.lastCandle) {
		m.lastCandle = t
	}
}

// Snapshot is the persisted form of a machine.
type Snapshot struct {
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Position   *Position `json:"position,omitempty"`
	LastCandle time.Time `json:"last_candle"`
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{Symbol: m.symbol, Side: Flat, LastCandle: m.lastCandle}
	if m.pos != nil {
		p := *m.pos
		s.Side = p.Side
		s.Position = &p
	}
	return s
}

// Restore replaces the machine state with a snapshot taken for the same symbol.
func (m *Machine) Restore(s Snapshot) error {
	if s.Symbol != m.symbol {
		return fmt.Errorf("position: snapshot for %q cannot restore %q", s.Symbol, m.symbol)
	}
	switch s.Side {
	case Flat:
		if s.Position != nil {
			return fmt.Errorf("position: flat snapshot carries a position")
		}
	case Long, Short:
		if s.Position == nil || s.Position.Side != s.Side {
			return fmt.Errorf("position: %s snapshot without a matching position", s.Side)
		}
		if s.Position.Stop.Side != s.Side || s.Position.Stop.Distance <= 0 {
			return ErrInvalidStop
		}
	default:
		return ErrInvalidSide
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastCandle = s.LastCandle
	m.pos = nil
	if s.Position != nil {
		p := *s.Position
		p.Symbol = m.symbol
		m.pos = &p
	}
	return nil
}
