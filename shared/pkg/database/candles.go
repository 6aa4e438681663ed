package database

import (
	"context"
	"fmt"
	"time"

	"github.com/paaavkata/trend-trader/shared/pkg/models"
	"github.com/sirupsen/logrus"
)

// CandleRepository stores collected candles keyed by exchange, symbol and interval.
type CandleRepository struct {
	db     *DB
	logger *logrus.Logger
}

func NewCandleRepository(db *DB, logger *logrus.Logger) *CandleRepository {
	return &CandleRepository{db: db, logger: logger}
}

// SaveCandles upserts candles in one transaction. A re-collected bar overwrites
// the stored one.
func (r *CandleRepository) SaveCandles(ctx context.Context, exchange, symbol, interval string, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO candles (exchange, symbol, interval, open_time, open, high, low, close, volume)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (exchange, symbol, interval, open_time)
        DO UPDATE SET open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
                      close = EXCLUDED.close, volume = EXCLUDED.volume
    `)
	if err != nil {
		return fmt.Errorf("failed to prepare candle upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, exchange, symbol, interval, c.Time.UTC(),
			c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return fmt.Errorf("failed to upsert candle %s %s: %w", symbol, c.Time, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit candles: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"exchange": exchange,
		"symbol":   symbol,
		"interval": interval,
		"count":    len(candles),
	}).Debug("Stored candles")

	return nil
}

// GetCandles returns candles with open time in [from, to], oldest first.
func (r *CandleRepository) GetCandles(ctx context.Context, exchange, symbol, interval string, from, to time.Time) ([]models.Candle, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT open_time, open, high, low, close, volume
        FROM candles
        WHERE exchange = $1 AND symbol = $2 AND interval = $3
          AND open_time >= $4 AND open_time <= $5
        ORDER BY open_time ASC
    `, exchange, symbol, interval, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		candles = append(candles, c)
	}

	return candles, rows.Err()
}

// LatestCandles returns the newest limit candles, oldest first.
func (r *CandleRepository) LatestCandles(ctx context.Context, exchange, symbol, interval string, limit int) ([]models.Candle, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT open_time, open, high, low, close, volume
        FROM (
            SELECT open_time, open, high, low, close, volume
            FROM candles
            WHERE exchange = $1 AND symbol = $2 AND interval = $3
            ORDER BY open_time DESC
            LIMIT $4
        ) latest
        ORDER BY open_time ASC
    `, exchange, symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest candles: %w", err)
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		candles = append(candles, c)
	}

	return candles, rows.Err()
}

// DeleteCandlesBefore removes candles older than cutoff and returns the number deleted.
func (r *CandleRepository) DeleteCandlesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM candles WHERE open_time < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old candles: %w", err)
	}
	return res.RowsAffected()
}
