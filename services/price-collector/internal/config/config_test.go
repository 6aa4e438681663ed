package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("COLLECT_TARGETS", "binance:ETHUSDT:15m")
	t.Setenv("COLLECT_LOOKBACK", "250")
	t.Setenv("COLLECT_WORKERS", "x")
	t.Setenv("BINANCE_TESTNET", "true")

	cfg := Load()
	assert.Equal(t, "binance:ETHUSDT:15m", cfg.Targets)
	assert.Equal(t, 250, cfg.Lookback)
	assert.Equal(t, 4, cfg.Workers, "invalid values fall back to the default")
	assert.True(t, cfg.Binance.Testnet)
	assert.Equal(t, "0 0 2 * * *", cfg.CleanupSchedule)
}
