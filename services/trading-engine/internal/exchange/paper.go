package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paaavkata/trend-trader/shared/pkg/utils"
	"github.com/sirupsen/logrus"
)

// PaperBroker fills every order at its reference price and keeps the fills in
// memory. FeeRate is charged on the notional of each fill.
type PaperBroker struct {
	FeeRate float64

	mu     sync.Mutex
	fills  []Fill
	logger *logrus.Logger
	now    func() time.Time
}

func NewPaperBroker(feeRate float64, logger *logrus.Logger) *PaperBroker {
	return &PaperBroker{
		FeeRate: feeRate,
		logger:  logger,
		now:     time.Now,
	}
}

func (p *PaperBroker) MarketOrder(ctx context.Context, order Order) (Fill, error) {
	if err := ctx.Err(); err != nil {
		return Fill{}, err
	}
	if err := order.validate(); err != nil {
		return Fill{}, err
	}
	if order.Price <= 0 {
		return Fill{}, fmt.Errorf("paper order needs a reference price")
	}

	qty := utils.DecimalToFloat(order.Qty)
	id := newClientOrderID()
	fill := Fill{
		OrderID:       "paper-" + id,
		ClientOrderID: id,
		Symbol:        order.Symbol,
		Side:          order.Side,
		Qty:           qty,
		Price:         order.Price,
		Fee:           qty * order.Price * p.FeeRate,
		Time:          p.now().UTC(),
	}

	p.mu.Lock()
	p.fills = append(p.fills, fill)
	p.mu.Unlock()

	p.logger.WithFields(logrus.Fields{
		"symbol":   fill.Symbol,
		"side":     fill.Side,
		"quantity": fill.Qty,
		"price":    fill.Price,
		"order_id": fill.OrderID,
	}).Debug("Paper order filled")

	return fill, nil
}

// Fills returns a copy of every fill so far.
func (p *PaperBroker) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Fill, len(p.fills))
	copy(out, p.fills)
	return out
}
