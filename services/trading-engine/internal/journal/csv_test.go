package journal

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paaavkata/trend-trader/services/trading-engine/internal/position"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trade(i int) position.Trade {
	return position.Trade{
		Bot:        "st-btc",
		Symbol:     "BTCUSDT",
		Side:       position.Long,
		Qty:        0.25,
		EntryPrice: 100,
		ExitPrice:  100 + float64(i),
		ExitTime:   time.Date(2024, 1, 1, i, 0, 0, 0, time.UTC),
		PnL:        0.25 * float64(i),
		PnLPercent: float64(i),
		Reason:     position.ReasonStop,
	}
}

func TestCSV_AppendAndLastN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "trades.csv")
	j, err := NewCSV(path)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		require.NoError(t, j.Append(trade(i)))
	}

	last, err := j.LastN(2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, 104.0, last[0].ExitPrice)
	assert.Equal(t, 105.0, last[1].ExitPrice)
	assert.Equal(t, position.Long, last[1].Side)
	assert.Equal(t, "st-btc", last[1].Bot)
	assert.Equal(t, position.ReasonStop, last[1].Reason)
	assert.True(t, trade(5).ExitTime.Equal(last[1].ExitTime))

	all, err := j.LastN(100)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "ts,bot,symbol,side,qty,entry,exit,pnl,pnl_pct,reason\n"))
}

func TestCSV_ReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	j, err := NewCSV(path)
	require.NoError(t, err)
	require.NoError(t, j.Append(trade(1)))

	reopened, err := NewCSV(path)
	require.NoError(t, err)
	rows, err := reopened.LastN(10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCSV_EmptyPath(t *testing.T) {
	_, err := NewCSV("")
	assert.Error(t, err)
}

func TestWriteRead(t *testing.T) {
	var buf bytes.Buffer
	trades := []position.Trade{trade(1), trade(2)}
	trades[1].Side = position.Short

	require.NoError(t, Write(&buf, trades))

	got, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, position.Short, got[1].Side)
	assert.Equal(t, 0.5, got[1].PnL)
}

func TestRead_BadRow(t *testing.T) {
	input := strings.Join(header, ",") + "\n" +
		fmt.Sprintf("%s,bot,BTC,long,x,1,2,3,4,signal\n", time.Now().UTC().Format(time.RFC3339))
	_, err := Read(strings.NewReader(input))
	assert.Error(t, err)
}
