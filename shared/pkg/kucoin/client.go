package kucoin

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/paaavkata/trend-trader/shared/pkg/utils"
	"github.com/sirupsen/logrus"
)

const (
	BaseURL    = "https://api.kucoin.com"
	SandboxURL = "https://openapi-sandbox.kucoin.com"
)

type Client struct {
	client      *resty.Client
	apiKey      string
	apiSecret   string
	passphrase  string
	logger      *logrus.Logger
	rateLimiter *RateLimiter
	now         func() time.Time
}

type Config struct {
	APIKey     string
	APISecret  string
	Passphrase string
	Sandbox    bool
	// BaseURL overrides the endpoint, mostly for tests.
	BaseURL string
}

func NewClient(config Config, logger *logrus.Logger) *Client {
	baseURL := BaseURL
	if config.Sandbox {
		baseURL = SandboxURL
	}
	if config.BaseURL != "" {
		baseURL = config.BaseURL
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{
		client:      client,
		apiKey:      config.APIKey,
		apiSecret:   config.APISecret,
		passphrase:  config.Passphrase,
		logger:      logger,
		rateLimiter: NewRateLimiter(25, 10),
		now:         time.Now,
	}
}

func (c *Client) sign(message string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (c *Client) setAuthHeaders(req *resty.Request, method, endpoint, body string) {
	timestamp := strconv.FormatInt(c.now().UnixMilli(), 10)

	req.SetHeaders(map[string]string{
		"KC-API-KEY":         c.apiKey,
		"KC-API-SIGN":        c.sign(timestamp + method + endpoint + body),
		"KC-API-TIMESTAMP":   timestamp,
		"KC-API-PASSPHRASE":  c.sign(c.passphrase),
		"KC-API-KEY-VERSION": "2",
		"Content-Type":       "application/json",
	})
}

// decode unwraps the KuCoin envelope into out.
func decode(resp *resty.Response, out interface{}) error {
	var apiResp APIResponse
	if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
		return fmt.Errorf("failed to unmarshal response (http %d): %w", resp.StatusCode(), err)
	}

	if apiResp.Code != successCode {
		return &APIError{HTTPStatus: resp.StatusCode(), Code: apiResp.Code, Message: apiResp.Msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(apiResp.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return nil
}

// GetKlines returns candles between startAt and endAt (unix seconds, zero for
// open-ended), oldest first.
func (c *Client) GetKlines(ctx context.Context, symbol, klineType string, startAt, endAt int64) ([]KlineData, error) {
	if err := c.rateLimiter.WaitForPublic(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := map[string]string{
		"symbol": symbol,
		"type":   klineType,
	}
	if startAt > 0 {
		params["startAt"] = strconv.FormatInt(startAt, 10)
	}
	if endAt > 0 {
		params["endAt"] = strconv.FormatInt(endAt, 10)
	}

	resp, err := c.client.R().SetContext(ctx).SetQueryParams(params).Get("/api/v1/market/candles")
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Error("Failed to fetch klines")
		return nil, fmt.Errorf("failed to fetch klines: %w", err)
	}

	var rawKlines [][]string
	if err := decode(resp, &rawKlines); err != nil {
		return nil, err
	}

	klines := make([]KlineData, 0, len(rawKlines))
	for _, raw := range rawKlines {
		if len(raw) < 6 {
			continue
		}

		timestamp, err := strconv.ParseInt(raw[0], 10, 64)
		if err != nil {
			continue
		}
		klines = append(klines, KlineData{
			Timestamp: timestamp,
			Open:      utils.MustParseFloat(raw[1]),
			Close:     utils.MustParseFloat(raw[2]),
			High:      utils.MustParseFloat(raw[3]),
			Low:       utils.MustParseFloat(raw[4]),
			Volume:    utils.MustParseFloat(raw[5]),
		})
	}

	// KuCoin returns newest first.
	sort.Slice(klines, func(i, j int) bool { return klines[i].Timestamp < klines[j].Timestamp })

	return klines, nil
}

func (c *Client) GetSymbol(ctx context.Context, symbol string) (*Symbol, error) {
	if err := c.rateLimiter.WaitForPublic(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := c.client.R().SetContext(ctx).Get("/api/v2/symbols/" + symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch symbol %s: %w", symbol, err)
	}

	var s Symbol
	if err := decode(resp, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) PlaceOrder(ctx context.Context, order OrderRequest) (*OrderResponse, error) {
	if err := c.rateLimiter.WaitForPrivate(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := "/api/v1/orders"

	bodyBytes, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}

	req := c.client.R().SetContext(ctx).SetBody(bodyBytes)
	c.setAuthHeaders(req, http.MethodPost, endpoint, string(bodyBytes))

	resp, err := req.Post(endpoint)
	if err != nil {
		c.logger.WithError(err).Error("Failed to place order")
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	var orderResp OrderResponse
	if err := decode(resp, &orderResp); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"order_id": orderResp.OrderId,
		"symbol":   order.Symbol,
		"side":     order.Side,
	}).Info("Order placed successfully")

	return &orderResp, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*OrderStatus, error) {
	if err := c.rateLimiter.WaitForPrivate(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := "/api/v1/orders/" + orderID
	req := c.client.R().SetContext(ctx)
	c.setAuthHeaders(req, http.MethodGet, endpoint, "")

	resp, err := req.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get order status: %w", err)
	}

	var orderStatus OrderStatus
	if err := decode(resp, &orderStatus); err != nil {
		return nil, err
	}

	return &orderStatus, nil
}
