package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTargets(t *testing.T) {
	targets, err := ParseTargets(" kucoin:btc-usdt:1h, binance:ETHUSDT:15m,,kucoin:BTC-USDT:1h")
	require.NoError(t, err)
	assert.Equal(t, []Target{
		{Exchange: ExchangeKuCoin, Symbol: "BTC-USDT", Interval: "1h"},
		{Exchange: ExchangeBinance, Symbol: "ETHUSDT", Interval: "15m"},
	}, targets)
	assert.Equal(t, "kucoin:BTC-USDT:1h", targets[0].String())
}

func TestParseTargetsErrors(t *testing.T) {
	tests := []struct {
		name   string
		spec   string
		errMsg string
	}{
		{"empty", "", "no collection targets"},
		{"missing part", "kucoin:BTC-USDT", "want exchange:symbol:interval"},
		{"unknown exchange", "kraken:XBTUSD:1h", "unknown exchange"},
		{"bad interval", "binance:ETHUSDT:7m", "unsupported candle interval"},
		{"no symbol", "binance: :1h", "symbol is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTargets(tt.spec)
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}
