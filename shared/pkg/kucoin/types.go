package kucoin

import (
	"encoding/json"
	"fmt"
)

const successCode = "200000"

type APIResponse struct {
	Code string          `json:"code"`
	Data json.RawMessage `json:"data"`
	Msg  string          `json:"msg"`
}

// APIError is returned when KuCoin answers with a non-success code.
type APIError struct {
	HTTPStatus int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kucoin API error %s (http %d): %s", e.Code, e.HTTPStatus, e.Message)
}

type Symbol struct {
	Symbol         string `json:"symbol"`
	BaseCurrency   string `json:"baseCurrency"`
	QuoteCurrency  string `json:"quoteCurrency"`
	BaseMinSize    string `json:"baseMinSize"`
	BaseIncrement  string `json:"baseIncrement"`
	PriceIncrement string `json:"priceIncrement"`
	MinFunds       string `json:"minFunds"`
	EnableTrading  bool   `json:"enableTrading"`
}

type OrderRequest struct {
	ClientOid string `json:"clientOid"`
	Side      string `json:"side"`
	Symbol    string `json:"symbol"`
	Type      string `json:"type,omitempty"`
	Remark    string `json:"remark,omitempty"`
	Price     string `json:"price,omitempty"`
	Size      string `json:"size,omitempty"`
	Funds     string `json:"funds,omitempty"`
}

type OrderResponse struct {
	OrderId string `json:"orderId"`
}

type KlineData struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	Close     float64 `json:"close"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Volume    float64 `json:"volume"`
}

type OrderStatus struct {
	Id        string `json:"id"`
	Symbol    string `json:"symbol"`
	Type      string `json:"type"`
	Side      string `json:"side"`
	Size      string `json:"size"`
	DealFunds string `json:"dealFunds"`
	DealSize  string `json:"dealSize"`
	Fee       string `json:"fee"`
	ClientOid string `json:"clientOid"`
	IsActive  bool   `json:"isActive"`
	CreatedAt int64  `json:"createdAt"`
}

// klineTypes maps candle intervals to KuCoin's kline type names.
var klineTypes = map[string]string{
	"1m":  "1min",
	"3m":  "3min",
	"5m":  "5min",
	"15m": "15min",
	"30m": "30min",
	"1h":  "1hour",
	"2h":  "2hour",
	"4h":  "4hour",
	"6h":  "6hour",
	"8h":  "8hour",
	"12h": "12hour",
	"1d":  "1day",
	"1w":  "1week",
}

// KlineType returns the KuCoin kline type for a candle interval.
func KlineType(interval string) (string, error) {
	t, ok := klineTypes[interval]
	if !ok {
		return "", fmt.Errorf("kucoin: unsupported interval %q", interval)
	}
	return t, nil
}
