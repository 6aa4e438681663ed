package config

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/paaavkata/trend-trader/services/trading-engine/internal/strategy"
	"github.com/paaavkata/trend-trader/shared/pkg/models"
	"github.com/spf13/viper"
)

const (
	ExchangeKuCoin  = "kucoin"
	ExchangeBinance = "binance"
)

const (
	minPollEvery   = 10 * time.Second
	historyPadding = 50
)

var botName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Bot is one entry of the bots file.
type Bot struct {
	Name     string          `mapstructure:"name"`
	Exchange string          `mapstructure:"exchange"`
	Symbol   string          `mapstructure:"symbol"`
	Interval string          `mapstructure:"interval"`
	Strategy string          `mapstructure:"strategy"`
	Params   strategy.Params `mapstructure:"params"`

	// QuoteSize is the notional of one entry in quote currency.
	QuoteSize float64 `mapstructure:"quote_size"`
	// RiskPerTrade caps the loss at the initial stop to this fraction of
	// QuoteSize. Zero disables the cap.
	RiskPerTrade float64 `mapstructure:"risk_per_trade"`
	// The stop trails TrailATRMult ATRs behind the extreme, or TrailPercent
	// percent of the entry price when no ATR is available.
	TrailATRMult      float64 `mapstructure:"trail_atr_mult"`
	TrailPercent      float64 `mapstructure:"trail_percent"`
	TakeProfitPercent float64 `mapstructure:"take_profit_percent"`
	AllowShort        bool    `mapstructure:"allow_short"`

	// History is how many candles each poll fetches.
	History   int           `mapstructure:"history"`
	PollEvery time.Duration `mapstructure:"poll_every"`
	// LotStep overrides the exchange's quantity increment.
	LotStep  float64 `mapstructure:"lot_step"`
	Disabled bool    `mapstructure:"disabled"`
}

// LoadBots reads and validates the bots file. The format follows the file
// extension (yaml, json or toml).
func LoadBots(path string) ([]Bot, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read bots file %s: %w", path, err)
	}

	var bots []Bot
	if err := v.UnmarshalKey("bots", &bots); err != nil {
		return nil, fmt.Errorf("failed to decode bots file %s: %w", path, err)
	}
	if len(bots) == 0 {
		return nil, fmt.Errorf("bots file %s defines no bots", path)
	}

	if err := Prepare(bots); err != nil {
		return nil, err
	}
	return bots, nil
}

// Prepare fills defaults in place and validates every bot.
func Prepare(bots []Bot) error {
	seen := make(map[string]struct{}, len(bots))
	var errs []error
	for i := range bots {
		b := &bots[i]
		if err := b.prepare(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := seen[b.Name]; dup {
			errs = append(errs, fmt.Errorf("bot %s: duplicate name", b.Name))
			continue
		}
		seen[b.Name] = struct{}{}
	}
	return errors.Join(errs...)
}

func (b *Bot) prepare() error {
	if !botName.MatchString(b.Name) {
		return fmt.Errorf("bot %q: name must match %s", b.Name, botName.String())
	}
	if b.Exchange == "" {
		b.Exchange = ExchangeKuCoin
	}
	if b.Exchange != ExchangeKuCoin && b.Exchange != ExchangeBinance {
		return fmt.Errorf("bot %s: unknown exchange %q", b.Name, b.Exchange)
	}
	if b.Symbol == "" {
		return fmt.Errorf("bot %s: symbol is required", b.Name)
	}

	interval, err := models.ParseInterval(b.Interval)
	if err != nil {
		return fmt.Errorf("bot %s: %w", b.Name, err)
	}

	s, err := strategy.New(b.Strategy, b.Params)
	if err != nil {
		return fmt.Errorf("bot %s: %w", b.Name, err)
	}

	if b.QuoteSize <= 0 {
		return fmt.Errorf("bot %s: quote_size must be positive", b.Name)
	}
	if b.RiskPerTrade < 0 || b.RiskPerTrade > 1 {
		return fmt.Errorf("bot %s: risk_per_trade must be within [0, 1]", b.Name)
	}
	if b.TrailATRMult <= 0 && b.TrailPercent <= 0 {
		return fmt.Errorf("bot %s: trail_atr_mult or trail_percent must be positive", b.Name)
	}
	if b.TrailATRMult < 0 || b.TrailPercent < 0 || b.TakeProfitPercent < 0 || b.LotStep < 0 {
		return fmt.Errorf("bot %s: negative trailing, take-profit or lot settings", b.Name)
	}

	need := s.Warmup() + 1
	if b.History == 0 {
		b.History = need + historyPadding
	}
	if b.History < need {
		return fmt.Errorf("bot %s: history %d is below the %d candles %s needs", b.Name, b.History, need, s.Name())
	}

	if b.PollEvery == 0 {
		b.PollEvery = interval / 4
	}
	if b.PollEvery < minPollEvery {
		b.PollEvery = minPollEvery
	}
	return nil
}
