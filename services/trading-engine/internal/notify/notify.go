package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paaavkata/trend-trader/services/trading-engine/internal/position"
	"github.com/sirupsen/logrus"
)

type Kind string

const (
	KindEntry     Kind = "entry"
	KindExit      Kind = "exit"
	KindStopMoved Kind = "stop_moved"
	KindError     Kind = "error"
	KindInfo      Kind = "info"
)

// Event is something a bot did that operators may want to hear about.
type Event struct {
	Kind    Kind            `json:"kind"`
	Time    time.Time       `json:"time"`
	Bot     string          `json:"bot"`
	Symbol  string          `json:"symbol"`
	Side    string          `json:"side,omitempty"`
	Price   float64         `json:"price,omitempty"`
	Qty     float64         `json:"qty,omitempty"`
	Stop    float64         `json:"stop,omitempty"`
	Trade   *position.Trade `json:"trade,omitempty"`
	Message string          `json:"message,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Format renders an event as a short human readable message.
func Format(e Event) string {
	switch e.Kind {
	case KindEntry:
		return fmt.Sprintf("[%s] %s %s %g @ %g, stop %g", e.Bot, strings.ToUpper(e.Side), e.Symbol, e.Qty, e.Price, e.Stop)
	case KindExit:
		if e.Trade == nil {
			return fmt.Sprintf("[%s] EXIT %s @ %g", e.Bot, e.Symbol, e.Price)
		}
		t := e.Trade
		return fmt.Sprintf("[%s] EXIT %s %s @ %g (%s) pnl %.4f (%.2f%%)",
			e.Bot, t.Side, e.Symbol, t.ExitPrice, t.Reason, t.PnL, t.PnLPercent)
	case KindStopMoved:
		return fmt.Sprintf("[%s] %s stop moved to %g", e.Bot, e.Symbol, e.Stop)
	case KindError:
		return fmt.Sprintf("[%s] ERROR %s: %s", e.Bot, e.Symbol, e.Message)
	default:
		if e.Bot == "" {
			return e.Message
		}
		return fmt.Sprintf("[%s] %s", e.Bot, e.Message)
	}
}

// LogNotifier writes events to the logger.
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, e Event) error {
	entry := l.logger.WithFields(logrus.Fields{
		"bot":    e.Bot,
		"symbol": e.Symbol,
		"kind":   e.Kind,
	})
	if e.Kind == KindError {
		entry.Warn(Format(e))
		return nil
	}
	entry.Info(Format(e))
	return nil
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }
