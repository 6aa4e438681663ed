package kucoin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paaavkata/trend-trader/shared/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		APIKey:     "key",
		APISecret:  "secret",
		Passphrase: "pass",
		BaseURL:    srv.URL,
	}, utils.NewTestLogger())
	c.client.SetRetryCount(0)
	return c
}

func TestGetKlines_ReturnsOldestFirst(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/market/candles", r.URL.Path)
		assert.Equal(t, "BTC-USDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1hour", r.URL.Query().Get("type"))
		w.Write([]byte(`{"code":"200000","data":[
			["1700003600","101","102","103","100","5","500"],
			["1700000000","100","101","102","99","4","400"]
		]}`))
	})

	klines, err := c.GetKlines(context.Background(), "BTC-USDT", "1hour", 0, 0)
	require.NoError(t, err)
	require.Len(t, klines, 2)
	assert.Equal(t, int64(1700000000), klines[0].Timestamp)
	assert.Equal(t, 101.0, klines[0].Close)
	assert.Equal(t, 102.0, klines[0].High)
	assert.Equal(t, 99.0, klines[0].Low)
}

func TestGetKlines_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"400100","msg":"invalid symbol"}`))
	})

	_, err := c.GetKlines(context.Background(), "NOPE", "1min", 0, 0)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "400100", apiErr.Code)
	assert.Equal(t, "invalid symbol", apiErr.Message)
}

func TestPlaceOrder_SignsRequest(t *testing.T) {
	var c *Client
	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key", r.Header.Get("KC-API-KEY"))
		assert.Equal(t, "2", r.Header.Get("KC-API-KEY-VERSION"))
		assert.Equal(t, c.sign("pass"), r.Header.Get("KC-API-PASSPHRASE"))

		var order OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&order))
		body, _ := json.Marshal(order)
		ts := r.Header.Get("KC-API-TIMESTAMP")
		assert.Equal(t, c.sign(ts+"POST/api/v1/orders"+string(body)), r.Header.Get("KC-API-SIGN"))

		w.Write([]byte(`{"code":"200000","data":{"orderId":"abc123"}}`))
	})
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }

	resp, err := c.PlaceOrder(context.Background(), OrderRequest{
		ClientOid: "oid-1",
		Side:      "buy",
		Symbol:    "BTC-USDT",
		Type:      "market",
		Size:      "0.01",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", resp.OrderId)
}

func TestKlineType(t *testing.T) {
	kt, err := KlineType("4h")
	require.NoError(t, err)
	assert.Equal(t, "4hour", kt)

	_, err = KlineType("7m")
	assert.Error(t, err)
}
