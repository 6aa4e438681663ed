package models

import (
	"time"

	"github.com/paaavkata/trend-trader/shared/pkg/database"
)

const (
	PositionOpen   = "open"
	PositionClosed = "closed"
)

// PositionRecord is a row of the positions table.
type PositionRecord struct {
	ID          string           `db:"id" json:"id"`
	Bot         string           `db:"bot" json:"bot"`
	Symbol      string           `db:"symbol" json:"symbol"`
	Side        string           `db:"side" json:"side"` // 'long' or 'short'
	Quantity    database.Decimal `db:"quantity" json:"quantity"`
	EntryPrice  database.Decimal `db:"entry_price" json:"entry_price"`
	ExitPrice   database.Decimal `db:"exit_price" json:"exit_price"`
	StopPrice   database.Decimal `db:"stop_price" json:"stop_price"`
	RealizedPnL database.Decimal `db:"realized_pnl" json:"realized_pnl"`
	Status      string           `db:"status" json:"status"` // 'open' or 'closed'
	ExitReason  string           `db:"exit_reason" json:"exit_reason,omitempty"`
	OrderID     string           `db:"order_id" json:"order_id"`
	OpenedAt    time.Time        `db:"opened_at" json:"opened_at"`
	ClosedAt    *time.Time       `db:"closed_at" json:"closed_at,omitempty"`
}

// OrderRecord is a filled exchange order.
type OrderRecord struct {
	ID              string           `db:"id" json:"id"`
	PositionID      *string          `db:"position_id" json:"position_id,omitempty"`
	Bot             string           `db:"bot" json:"bot"`
	Symbol          string           `db:"symbol" json:"symbol"`
	ExchangeOrderID string           `db:"exchange_order_id" json:"exchange_order_id"`
	Side            string           `db:"side" json:"side"` // 'buy' or 'sell'
	Quantity        database.Decimal `db:"quantity" json:"quantity"`
	Price           database.Decimal `db:"price" json:"price"`
	Fee             database.Decimal `db:"fee" json:"fee"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}
