package config

import (
	"os"
	"strconv"
	"time"

	"github.com/paaavkata/trend-trader/shared/pkg/binance"
	"github.com/paaavkata/trend-trader/shared/pkg/database"
	"github.com/paaavkata/trend-trader/shared/pkg/kucoin"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type TelegramConfig struct {
	Token  string
	ChatID int64
}

func (c TelegramConfig) Enabled() bool { return c.Token != "" && c.ChatID != 0 }

type RiskConfig struct {
	// MaxConsecutiveLosses halts a bot's entries for HaltDuration after that
	// many losing trades in a row. Zero disables the breaker.
	MaxConsecutiveLosses int
	HaltDuration         time.Duration
	// MaxDailyLoss halts all entries for the rest of the UTC day once the
	// realized loss reaches it (quote currency). Zero disables the limit.
	MaxDailyLoss float64
	// FlashCrashPercent halts a bot's entries for HaltDuration when one candle
	// moves more than this many percent from open to close. Zero disables it.
	FlashCrashPercent float64
}

// Candles are read from the exchange by default, or from the price
// collector's table when CANDLE_SOURCE=db.
const (
	CandleSourceExchange = "exchange"
	CandleSourceDB       = "db"
)

type Config struct {
	Database     database.Config
	Redis        RedisConfig
	KuCoin       kucoin.Config
	Binance      binance.Config
	Telegram     TelegramConfig
	Risk         RiskConfig
	BotsFile     string
	StateDir     string
	TradesCSV    string
	MetricsPort  string
	CandleSource string
	PaperTrading bool
	PaperFeeRate float64
	FetchRetries int
	RetryBackoff time.Duration
}

func Load() *Config {
	return &Config{
		Database: database.Config{
			DbUri: getEnv("DB_URI", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
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
		Telegram: TelegramConfig{
			Token:  getEnv("TELEGRAM_TOKEN", ""),
			ChatID: int64(getEnvInt("TELEGRAM_CHAT_ID", 0)),
		},
		Risk: RiskConfig{
			MaxConsecutiveLosses: getEnvInt("MAX_CONSECUTIVE_LOSSES", 3),
			HaltDuration:         getEnvDuration("HALT_DURATION", 4*time.Hour),
			MaxDailyLoss:         getEnvFloat("MAX_DAILY_LOSS_USDT", 0),
			FlashCrashPercent:    getEnvFloat("FLASH_CRASH_PERCENT", 10),
		},
		BotsFile:     getEnv("BOTS_FILE", "bots.yaml"),
		StateDir:     getEnv("STATE_DIR", "state"),
		TradesCSV:    getEnv("TRADES_CSV", "trades.csv"),
		MetricsPort:  getEnv("METRICS_PORT", "8082"),
		CandleSource: getEnv("CANDLE_SOURCE", CandleSourceExchange),
		PaperTrading: getEnvBool("PAPER_TRADING", true),
		PaperFeeRate: getEnvFloat("PAPER_FEE_RATE", 0.001), // 0.1%
		FetchRetries: getEnvInt("FETCH_RETRIES", 3),
		RetryBackoff: getEnvDuration("RETRY_BACKOFF", 2*time.Second),
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
