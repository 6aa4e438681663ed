package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/paaavkata/trend-trader/shared/pkg/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const TestnetBaseURL = "https://testnet.binance.vision"

type Config struct {
	APIKey    string
	SecretKey string
	Testnet   bool
	// BaseURL overrides the endpoint, mostly for tests.
	BaseURL string
}

// Client is a thin spot client over go-binance that converts its string
// payloads into the package's numeric types.
type Client struct {
	client  *gobinance.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

func NewClient(config Config, logger *logrus.Logger) *Client {
	client := gobinance.NewClient(config.APIKey, config.SecretKey)
	client.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	if config.Testnet {
		client.BaseURL = TestnetBaseURL
	}
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return &Client{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(10), 10),
		logger:  logger,
	}
}

// GetKlines returns the latest limit candles, oldest first as Binance sends them.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	rows, err := c.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Error("Failed to fetch klines")
		return nil, fmt.Errorf("failed to fetch klines: %w", apiError(err))
	}

	klines := make([]Kline, 0, len(rows))
	for _, row := range rows {
		k, err := klineFrom(row)
		if err != nil {
			return nil, fmt.Errorf("kline %d of %s: %w", row.OpenTime, symbol, err)
		}
		klines = append(klines, k)
	}

	return klines, nil
}

func klineFrom(row *gobinance.Kline) (Kline, error) {
	k := Kline{OpenTime: row.OpenTime, CloseTime: row.CloseTime}
	fields := []struct {
		dst *float64
		raw string
	}{
		{&k.Open, row.Open},
		{&k.High, row.High},
		{&k.Low, row.Low},
		{&k.Close, row.Close},
		{&k.Volume, row.Volume},
	}
	for _, f := range fields {
		v, err := utils.ParseFloat(f.raw)
		if err != nil {
			return Kline{}, err
		}
		*f.dst = v
	}
	return k, nil
}

// GetSymbolFilters reads LOT_SIZE and PRICE_FILTER for symbol from exchangeInfo.
func (c *Client) GetSymbolFilters(ctx context.Context, symbol string) (*SymbolFilters, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	info, err := c.client.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exchange info: %w", apiError(err))
	}

	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		filters := &SymbolFilters{Symbol: symbol}
		if lot := s.LotSizeFilter(); lot != nil {
			filters.StepSize = lot.StepSize
			filters.MinQty = lot.MinQuantity
		}
		if price := s.PriceFilter(); price != nil {
			filters.TickSize = price.TickSize
		}
		return filters, nil
	}

	return nil, fmt.Errorf("symbol %s not found in exchange info", symbol)
}

// PlaceMarketOrder sends a signed MARKET order for quantity base units.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol, side, quantity, clientOrderID string) (*OrderResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	svc := c.client.NewCreateOrderService().
		Symbol(symbol).
		Side(gobinance.SideType(strings.ToUpper(side))).
		Type(gobinance.OrderTypeMarket).
		Quantity(quantity).
		NewOrderRespType(gobinance.NewOrderRespTypeFULL)
	if clientOrderID != "" {
		svc = svc.NewClientOrderID(clientOrderID)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		c.logger.WithError(err).Error("Failed to place order")
		return nil, fmt.Errorf("failed to place order: %w", apiError(err))
	}

	orderResp := &OrderResponse{
		Symbol:              resp.Symbol,
		OrderID:             resp.OrderID,
		ClientOrderID:       resp.ClientOrderID,
		TransactTime:        resp.TransactTime,
		ExecutedQty:         resp.ExecutedQuantity,
		CummulativeQuoteQty: resp.CummulativeQuoteQuantity,
		Status:              string(resp.Status),
		Side:                string(resp.Side),
		Fills:               make([]Fill, 0, len(resp.Fills)),
	}
	for _, f := range resp.Fills {
		orderResp.Fills = append(orderResp.Fills, Fill{
			Price:           f.Price,
			Qty:             f.Quantity,
			Commission:      f.Commission,
			CommissionAsset: f.CommissionAsset,
		})
	}

	c.logger.WithFields(logrus.Fields{
		"order_id": orderResp.OrderID,
		"symbol":   symbol,
		"side":     orderResp.Side,
		"status":   orderResp.Status,
	}).Info("Order placed successfully")

	return orderResp, nil
}

// apiError lifts go-binance's error body into *APIError so callers do not
// import the vendor package.
func apiError(err error) error {
	var vendor *common.APIError
	if errors.As(err, &vendor) {
		return &APIError{Code: vendor.Code, Message: vendor.Message}
	}
	return err
}
