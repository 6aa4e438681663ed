package utils

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloorToStep(t *testing.T) {
	tests := []struct {
		name string
		qty  string
		step string
		want string
	}{
		{"rounds down", "0.123456", "0.001", "0.123"},
		{"exact multiple", "1.5", "0.5", "1.5"},
		{"below step", "0.0004", "0.001", "0"},
		{"zero step keeps value", "0.123456", "0", "0.123456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FloorToStep(decimal.RequireFromString(tt.qty), decimal.RequireFromString(tt.step))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel(""))
}

func TestMustParseFloat(t *testing.T) {
	assert.Equal(t, 1.25, MustParseFloat("1.25"))
	assert.Equal(t, 0.0, MustParseFloat("abc"))
	assert.Equal(t, 0.0, MustParseFloat(""))
}

func TestPercentChange(t *testing.T) {
	assert.InDelta(t, 0.1, PercentChange(100, 110), 1e-9)
	assert.Equal(t, 0.0, PercentChange(0, 110))
}

func TestServiceHook(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.AddHook(serviceHook{service: "trading-engine"})

	logger.Info("plain")
	logger.WithField("service", "backtest").Info("named")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "trading-engine", first["service"])
	assert.Equal(t, "backtest", second["service"])
	assert.NotContains(t, first, "bot")
}

func TestParseFloat(t *testing.T) {
	f, err := ParseFloat("30000.5")
	require.NoError(t, err)
	assert.Equal(t, 30000.5, f)

	f, err = ParseFloat("")
	require.NoError(t, err)
	assert.Equal(t, 0.0, f)

	_, err = ParseFloat("1,5")
	assert.Error(t, err)
}
