package config

import (
	"os"
	"strconv"

	"github.com/paaavkata/trend-trader/shared/pkg/binance"
	"github.com/paaavkata/trend-trader/shared/pkg/database"
	"github.com/paaavkata/trend-trader/shared/pkg/kucoin"
)

type Config struct {
	Database database.Config
	KuCoin   kucoin.Config
	Binance  binance.Config
	// Targets is a comma separated exchange:symbol:interval list.
	Targets string
	// CollectSchedule and CleanupSchedule are cron specs with a seconds field.
	CollectSchedule string
	CleanupSchedule string
	// Lookback is how many candles each collection asks for, so a missed
	// run is backfilled by the next one.
	Lookback          int
	Workers           int
	DataRetentionDays int
	MetricsPort       string
}

func Load() *Config {
	return &Config{
		Database: database.Config{
			DbUri: getEnv("DB_URI", "postgres://localhost:5432/trend_trader?sslmode=disable"),
		},
		KuCoin: kucoin.Config{
			APIKey:     getEnv("KUCOIN_API_KEY", ""),
			APISecret:  getEnv("KUCOIN_API_SECRET", ""),
			Passphrase: getEnv("KUCOIN_PASSPHRASE", ""),
			Sandbox:    getEnvBool("KUCOIN_SANDBOX", false),
		},
		Binance: binance.Config{
			APIKey:    getEnv("BINANCE_API_KEY", ""),
			SecretKey: getEnv("BINANCE_API_SECRET", ""),
			Testnet:   getEnvBool("BINANCE_TESTNET", false),
		},
		Targets:           getEnv("COLLECT_TARGETS", "kucoin:BTC-USDT:1h"),
		CollectSchedule:   getEnv("COLLECT_SCHEDULE", "5 * * * * *"),
		CleanupSchedule:   getEnv("CLEANUP_SCHEDULE", "0 0 2 * * *"),
		Lookback:          getEnvInt("COLLECT_LOOKBACK", 100),
		Workers:           getEnvInt("COLLECT_WORKERS", 4),
		DataRetentionDays: getEnvInt("DATA_RETENTION_DAYS", 180),
		MetricsPort:       getEnv("METRICS_PORT", "8080"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
