package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalScan(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  float64
	}{
		{"bytes", []byte("12.5"), 12.5},
		{"string", "0.001", 0.001},
		{"float", 3.25, 3.25},
		{"int", int64(7), 7},
		{"null", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Decimal
			require.NoError(t, d.Scan(tt.value))
			assert.InDelta(t, tt.want, d.Float(), 1e-12)
		})
	}

	var d Decimal
	assert.Error(t, d.Scan(true))
	assert.Error(t, d.Scan("not-a-number"))
}

func TestDecimalValue(t *testing.T) {
	v, err := NewDecimal(1.5).Value()
	require.NoError(t, err)
	assert.Equal(t, "1.5", v)
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.True(t, Config{DbUri: "postgres://localhost/trader"}.Enabled())
}
