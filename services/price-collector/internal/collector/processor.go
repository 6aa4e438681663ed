package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	collect "github.com/paaavkata/trend-trader/services/price-collector/pkg/models"
	"github.com/paaavkata/trend-trader/shared/pkg/models"
	"github.com/sirupsen/logrus"
)

type candleStore interface {
	SaveCandles(ctx context.Context, exchange, symbol, interval string, candles []models.Candle) error
	DeleteCandlesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Processor struct {
	repo              candleStore
	logger            *logrus.Logger
	dataRetentionDays int
	now               func() time.Time
}

func NewProcessor(repo candleStore, logger *logrus.Logger, dataRetentionDays int) *Processor {
	return &Processor{
		repo:              repo,
		logger:            logger,
		dataRetentionDays: dataRetentionDays,
		now:               time.Now,
	}
}

// ProcessCandles drops malformed candles and upserts the rest. It returns the
// number stored.
func (p *Processor) ProcessCandles(ctx context.Context, t collect.Target, candles []models.Candle) (int, error) {
	valid := make([]models.Candle, 0, len(candles))
	for _, c := range candles {
		if !isValid(c) {
			p.logger.WithFields(logrus.Fields{
				"target": t.String(),
				"time":   c.Time,
				"reason": "invalid ohlc",
			}).Debug("Skipping candle")
			continue
		}
		valid = append(valid, c)
	}

	if skipped := len(candles) - len(valid); skipped > 0 {
		p.logger.WithFields(logrus.Fields{
			"target":  t.String(),
			"skipped": skipped,
		}).Warn("Skipped invalid candles")
	}
	if len(valid) == 0 {
		return 0, nil
	}

	if err := p.repo.SaveCandles(ctx, t.Exchange, t.Symbol, t.Interval, valid); err != nil {
		return 0, fmt.Errorf("failed to store candles for %s: %w", t, err)
	}
	return len(valid), nil
}

func isValid(c models.Candle) bool {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if c.Time.IsZero() || c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 || c.Volume < 0 {
		return false
	}
	if c.High < c.Low {
		return false
	}
	if c.Close > c.High || c.Close < c.Low || c.Open > c.High || c.Open < c.Low {
		return false
	}
	return true
}

// CleanupOldData removes candles older than the retention window. A zero
// retention keeps everything.
func (p *Processor) CleanupOldData(ctx context.Context) error {
	if p.dataRetentionDays <= 0 {
		return nil
	}
	cutoff := p.now().UTC().AddDate(0, 0, -p.dataRetentionDays)
	p.logger.WithFields(logrus.Fields{
		"retention_days": p.dataRetentionDays,
		"cutoff":         cutoff,
	}).Info("Starting cleanup of old candles")

	deleted, err := p.repo.DeleteCandlesBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	p.logger.WithField("deleted", deleted).Info("Successfully cleaned up old candles")
	return nil
}
