package main

import (
	"fmt"

	"github.com/paaavkata/trend-trader/shared/pkg/binance"
	tradeDB "github.com/paaavkata/trend-trader/shared/pkg/database"
	"github.com/paaavkata/trend-trader/shared/pkg/kucoin"
	"github.com/sirupsen/logrus"

	"github.com/paaavkata/trend-trader/services/trading-engine/internal/config"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/exchange"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/trader"
)

type venue struct {
	source exchange.CandleSource
	broker exchange.Broker
	sizer  *trader.PositionSizer
}

// venues builds one client per exchange on first use so bots on the same
// exchange share its rate limiter and lot size cache.
type venues struct {
	cfg    *config.Config
	db     *tradeDB.DB
	paper  *exchange.PaperBroker
	built  map[string]venue
	logger *logrus.Logger
}

func newVenues(cfg *config.Config, db *tradeDB.DB, logger *logrus.Logger) *venues {
	v := &venues{
		cfg:    cfg,
		db:     db,
		built:  make(map[string]venue),
		logger: logger,
	}
	if cfg.PaperTrading {
		v.paper = exchange.NewPaperBroker(cfg.PaperFeeRate, logger)
	}
	return v
}

func (v *venues) get(name string) (venue, error) {
	if built, ok := v.built[name]; ok {
		return built, nil
	}

	var live interface {
		exchange.CandleSource
		exchange.Broker
		exchange.LotSizer
	}
	switch name {
	case config.ExchangeKuCoin:
		live = exchange.NewKuCoinExchange(kucoin.NewClient(v.cfg.KuCoin, v.logger), v.logger)
	case config.ExchangeBinance:
		live = exchange.NewBinanceExchange(binance.NewClient(v.cfg.Binance, v.logger), v.logger)
	default:
		return venue{}, fmt.Errorf("unknown exchange %q", name)
	}

	out := venue{
		source: live,
		broker: live,
		sizer:  trader.NewPositionSizer(live, v.logger),
	}
	if v.paper != nil {
		out.broker = v.paper
	}
	if v.cfg.CandleSource == config.CandleSourceDB {
		if v.db == nil {
			return venue{}, fmt.Errorf("candle source %q needs DB_URI", config.CandleSourceDB)
		}
		out.source = exchange.NewDBSource(tradeDB.NewCandleRepository(v.db, v.logger), name)
	}

	v.logger.WithFields(logrus.Fields{
		"exchange": name,
		"paper":    v.paper != nil,
		"source":   v.cfg.CandleSource,
	}).Info("Exchange ready")

	v.built[name] = out
	return out, nil
}
