package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const botsYAML = `
bots:
  - name: btc-supertrend
    exchange: binance
    symbol: BTCUSDT
    interval: 1h
    strategy: supertrend
    params:
      period: 12
      multiplier: 2.5
    quote_size: 100
    risk_per_trade: 0.02
    trail_atr_mult: 2
    take_profit_percent: 6
    poll_every: 2m
  - name: eth-ha
    symbol: ETH-USDT
    interval: 1m
    strategy: heikin_ema
    quote_size: 50
    trail_percent: 1.5
    allow_short: true
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBots(t *testing.T) {
	bots, err := LoadBots(writeFile(t, "bots.yaml", botsYAML))
	require.NoError(t, err)
	require.Len(t, bots, 2)

	btc := bots[0]
	assert.Equal(t, "btc-supertrend", btc.Name)
	assert.Equal(t, ExchangeBinance, btc.Exchange)
	assert.Equal(t, 12.0, btc.Params["period"])
	assert.Equal(t, 2.5, btc.Params["multiplier"])
	assert.Equal(t, 0.02, btc.RiskPerTrade)
	assert.Equal(t, 2*time.Minute, btc.PollEvery)
	// supertrend warmup is 202 with the default EMA period
	assert.Equal(t, 203+historyPadding, btc.History)

	eth := bots[1]
	assert.Equal(t, ExchangeKuCoin, eth.Exchange, "exchange defaults to kucoin")
	assert.True(t, eth.AllowShort)
	assert.Equal(t, 1.5, eth.TrailPercent)
	assert.Equal(t, minPollEvery, eth.PollEvery, "a quarter of 1m is below the floor")
	assert.Equal(t, 24+historyPadding, eth.History)
}

func TestLoadBotsJSON(t *testing.T) {
	path := writeFile(t, "bots.json", `{"bots":[{"name":"a","symbol":"X","interval":"4h","strategy":"trendline","quote_size":10,"trail_percent":2}]}`)

	bots, err := LoadBots(path)
	require.NoError(t, err)
	require.Len(t, bots, 1)
	assert.Equal(t, time.Hour, bots[0].PollEvery)
}

func TestLoadExampleBots(t *testing.T) {
	bots, err := LoadBots(filepath.Join("..", "..", "bots.example.yaml"))
	require.NoError(t, err)
	require.Len(t, bots, 3)
	assert.Equal(t, ExchangeBinance, bots[1].Exchange)
	assert.Equal(t, 5*time.Minute, bots[2].PollEvery)
}

func TestLoadBotsErrors(t *testing.T) {
	_, err := LoadBots(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadBots(writeFile(t, "empty.yaml", "bots: []\n"))
	assert.ErrorContains(t, err, "no bots")
}

func TestPrepareValidation(t *testing.T) {
	valid := func() Bot {
		return Bot{
			Name:         "bot",
			Symbol:       "BTC-USDT",
			Interval:     "15m",
			Strategy:     "heikin_ema",
			QuoteSize:    100,
			TrailATRMult: 2,
		}
	}

	tests := []struct {
		name   string
		mutate func(b *Bot)
		errMsg string
	}{
		{"bad name", func(b *Bot) { b.Name = "my bot" }, "name must match"},
		{"unknown exchange", func(b *Bot) { b.Exchange = "ftx" }, "unknown exchange"},
		{"no symbol", func(b *Bot) { b.Symbol = "" }, "symbol is required"},
		{"bad interval", func(b *Bot) { b.Interval = "7m" }, "unsupported candle interval"},
		{"unknown strategy", func(b *Bot) { b.Strategy = "martingale" }, "unknown strategy"},
		{"zero quote size", func(b *Bot) { b.QuoteSize = 0 }, "quote_size must be positive"},
		{"risk above one", func(b *Bot) { b.RiskPerTrade = 1.5 }, "risk_per_trade"},
		{"no trailing", func(b *Bot) { b.TrailATRMult = 0 }, "trail_atr_mult or trail_percent"},
		{"negative take profit", func(b *Bot) { b.TakeProfitPercent = -1 }, "negative"},
		{"short history", func(b *Bot) { b.History = 5 }, "history 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid()
			tt.mutate(&b)
			err := Prepare([]Bot{b})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	t.Run("valid", func(t *testing.T) {
		bots := []Bot{valid()}
		require.NoError(t, Prepare(bots))
		assert.Equal(t, ExchangeKuCoin, bots[0].Exchange)
		assert.Equal(t, 15*time.Minute/4, bots[0].PollEvery)
	})

	t.Run("duplicate names", func(t *testing.T) {
		err := Prepare([]Bot{valid(), valid()})
		assert.ErrorContains(t, err, "duplicate name")
	})
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("PAPER_TRADING", "false")
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("HALT_DURATION", "90m")
	t.Setenv("MAX_CONSECUTIVE_LOSSES", "not-a-number")
	t.Setenv("DB_URI", "")
	t.Setenv("BOTS_FILE", "")
	t.Setenv("CANDLE_SOURCE", "")

	cfg := Load()
	assert.False(t, cfg.PaperTrading)
	assert.True(t, cfg.Telegram.Enabled())
	assert.Equal(t, int64(42), cfg.Telegram.ChatID)
	assert.Equal(t, 90*time.Minute, cfg.Risk.HaltDuration)
	assert.Equal(t, 3, cfg.Risk.MaxConsecutiveLosses, "invalid values fall back to the default")
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, "bots.yaml", cfg.BotsFile)
	assert.Equal(t, CandleSourceExchange, cfg.CandleSource)
}
