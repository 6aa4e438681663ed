package exchange

import (
	"context"
	"fmt"

	"github.com/paaavkata/trend-trader/shared/pkg/models"
)

type candleReader interface {
	LatestCandles(ctx context.Context, exchange, symbol, interval string, limit int) ([]models.Candle, error)
}

// DBSource serves candles that the price collector stored for one exchange.
type DBSource struct {
	repo     candleReader
	exchange string
}

func NewDBSource(repo candleReader, exchange string) *DBSource {
	return &DBSource{repo: repo, exchange: exchange}
}

func (d *DBSource) Candles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	candles, err := d.repo.LatestCandles(ctx, d.exchange, symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored candles for %s: %w", symbol, err)
	}
	return candles, nil
}
