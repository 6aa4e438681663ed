package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paaavkata/trend-trader/services/trading-engine/pkg/models"
	"github.com/paaavkata/trend-trader/shared/pkg/database"
	"github.com/sirupsen/logrus"
)

var ErrPositionNotFound = errors.New("position not found")

type Repository struct {
	db     *database.DB
	logger *logrus.Logger
}

func NewRepository(db *database.DB, logger *logrus.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// CreatePosition inserts an open position. An empty ID is filled in.
func (r *Repository) CreatePosition(ctx context.Context, position *models.PositionRecord) error {
	if position.ID == "" {
		position.ID = uuid.New().String()
	}
	if position.OpenedAt.IsZero() {
		position.OpenedAt = time.Now().UTC()
	}
	position.Status = models.PositionOpen

	query := `
        INSERT INTO positions
        (id, bot, symbol, side, quantity, entry_price, stop_price, status, order_id, opened_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `

	_, err := r.db.ExecContext(ctx, query,
		position.ID, position.Bot, position.Symbol, position.Side,
		position.Quantity, position.EntryPrice, position.StopPrice,
		position.Status, position.OrderID, position.OpenedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"position_id": position.ID,
		"bot":         position.Bot,
		"symbol":      position.Symbol,
		"side":        position.Side,
		"quantity":    position.Quantity.String(),
		"entry_price": position.EntryPrice.String(),
	}).Info("Created new position")

	return nil
}

// UpdateStop records the latest trailing stop of an open position.
func (r *Repository) UpdateStop(ctx context.Context, id string, stop float64) error {
	query := `UPDATE positions SET stop_price = $2 WHERE id = $1 AND status = 'open'`

	if _, err := r.db.ExecContext(ctx, query, id, database.NewDecimal(stop)); err != nil {
		return fmt.Errorf("failed to update stop: %w", err)
	}
	return nil
}

// ClosePosition marks the position closed with its exit and realized PnL.
func (r *Repository) ClosePosition(ctx context.Context, id string, exitPrice, pnl float64, reason string, closedAt time.Time) error {
	query := `
        UPDATE positions
        SET exit_price = $2, realized_pnl = $3, exit_reason = $4,
            status = 'closed', closed_at = $5
        WHERE id = $1 AND status = 'open'
    `

	res, err := r.db.ExecContext(ctx, query,
		id, database.NewDecimal(exitPrice), database.NewDecimal(pnl), reason, closedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to close position: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("close %s: %w", id, ErrPositionNotFound)
	}

	r.logger.WithFields(logrus.Fields{
		"position_id": id,
		"exit_price":  exitPrice,
		"pnl":         pnl,
		"reason":      reason,
	}).Info("Closed position")

	return nil
}

func (r *Repository) CreateOrder(ctx context.Context, order *models.OrderRecord) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO orders
        (id, position_id, bot, symbol, exchange_order_id, side, quantity, price, fee, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `

	_, err := r.db.ExecContext(ctx, query,
		order.ID, order.PositionID, order.Bot, order.Symbol, order.ExchangeOrderID,
		order.Side, order.Quantity, order.Price, order.Fee, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"order_id":          order.ID,
		"exchange_order_id": order.ExchangeOrderID,
		"bot":               order.Bot,
		"side":              order.Side,
		"quantity":          order.Quantity.String(),
		"price":             order.Price.String(),
	}).Debug("Created new order")

	return nil
}

// GetPosition loads one position by id.
func (r *Repository) GetPosition(ctx context.Context, id string) (*models.PositionRecord, error) {
	query := `
        SELECT id, bot, symbol, side, quantity, entry_price, exit_price, stop_price,
               realized_pnl, status, exit_reason, order_id, opened_at, closed_at
        FROM positions
        WHERE id = $1
    `

	var pos models.PositionRecord
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&pos.ID, &pos.Bot, &pos.Symbol, &pos.Side, &pos.Quantity,
		&pos.EntryPrice, &pos.ExitPrice, &pos.StopPrice, &pos.RealizedPnL,
		&pos.Status, &pos.ExitReason, &pos.OrderID, &pos.OpenedAt, &pos.ClosedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPositionNotFound
		}
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return &pos, nil
}

// RecentTrades returns closed positions, newest first. An empty bot matches
// every bot.
func (r *Repository) RecentTrades(ctx context.Context, bot string, limit int) ([]models.PositionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
        SELECT id, bot, symbol, side, quantity, entry_price, exit_price, stop_price,
               realized_pnl, status, exit_reason, order_id, opened_at, closed_at
        FROM positions
        WHERE status = 'closed' AND ($1 = '' OR bot = $1)
        ORDER BY closed_at DESC
        LIMIT $2
    `

	rows, err := r.db.QueryContext(ctx, query, bot, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent trades: %w", err)
	}
	defer rows.Close()

	var positions []models.PositionRecord
	for rows.Next() {
		var pos models.PositionRecord
		err := rows.Scan(
			&pos.ID, &pos.Bot, &pos.Symbol, &pos.Side, &pos.Quantity,
			&pos.EntryPrice, &pos.ExitPrice, &pos.StopPrice, &pos.RealizedPnL,
			&pos.Status, &pos.ExitReason, &pos.OrderID, &pos.OpenedAt, &pos.ClosedAt,
		)
		if err != nil {
			r.logger.WithError(err).Error("Failed to scan position")
			continue
		}
		positions = append(positions, pos)
	}

	return positions, rows.Err()
}

// RealizedSince sums realized PnL of positions closed at or after since.
func (r *Repository) RealizedSince(ctx context.Context, since time.Time) (float64, error) {
	query := `SELECT COALESCE(SUM(realized_pnl), 0) FROM positions WHERE status = 'closed' AND closed_at >= $1`

	var total database.Decimal
	if err := r.db.QueryRowContext(ctx, query, since).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum realized pnl: %w", err)
	}
	return total.Float(), nil
}
