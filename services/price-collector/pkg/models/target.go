package models

import (
	"fmt"
	"strings"

	shared "github.com/paaavkata/trend-trader/shared/pkg/models"
)

const (
	ExchangeKuCoin  = "kucoin"
	ExchangeBinance = "binance"
)

// Target is one exchange, symbol and interval the collector keeps up to date.
type Target struct {
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
}

func (t Target) String() string {
	return t.Exchange + ":" + t.Symbol + ":" + t.Interval
}

// ParseTargets reads a comma separated list of exchange:symbol:interval
// entries, e.g. "kucoin:BTC-USDT:1h,binance:ETHUSDT:15m". Duplicates are
// dropped.
func ParseTargets(spec string) ([]Target, error) {
	var (
		targets []Target
		seen    = make(map[Target]bool)
	)
	for _, raw := range strings.Split(spec, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		parts := strings.Split(raw, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid target %q, want exchange:symbol:interval", raw)
		}
		t := Target{
			Exchange: strings.ToLower(strings.TrimSpace(parts[0])),
			Symbol:   strings.ToUpper(strings.TrimSpace(parts[1])),
			Interval: strings.TrimSpace(parts[2]),
		}
		if t.Exchange != ExchangeKuCoin && t.Exchange != ExchangeBinance {
			return nil, fmt.Errorf("target %q: unknown exchange %q", raw, t.Exchange)
		}
		if t.Symbol == "" {
			return nil, fmt.Errorf("target %q: symbol is required", raw)
		}
		if _, err := shared.ParseInterval(t.Interval); err != nil {
			return nil, fmt.Errorf("target %q: %w", raw, err)
		}

		if !seen[t] {
			seen[t] = true
			targets = append(targets, t)
		}
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no collection targets configured")
	}
	return targets, nil
}
