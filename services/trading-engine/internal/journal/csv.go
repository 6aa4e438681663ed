package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/paaavkata/trend-trader/services/trading-engine/internal/position"
)

var header = []string{"ts", "bot", "symbol", "side", "qty", "entry", "exit", "pnl", "pnl_pct", "reason"}

// CSV is an append-only log of closed trades.
type CSV struct {
	path string
	mu   sync.Mutex
}

// NewCSV opens the journal at path, creating it with a header row if needed.
func NewCSV(path string) (*CSV, error) {
	if path == "" {
		return nil, errors.New("empty trades path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	if _, err := os.Stat(abs); errors.Is(err, os.ErrNotExist) {
		f, err := os.Create(abs)
		if err != nil {
			return nil, err
		}
		w := csv.NewWriter(f)
		_ = w.Write(header)
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
	}
	return &CSV{path: abs}, nil
}

func (j *CSV) Path() string { return j.path }

func (j *CSV) Append(t position.Trade) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(record(t)); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// LastN returns the newest n trades, oldest first.
func (j *CSV) LastN(n int) ([]position.Trade, error) {
	if n <= 0 {
		n = 10
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	trades, err := Read(f)
	if err != nil {
		return nil, err
	}
	if len(trades) > n {
		trades = trades[len(trades)-n:]
	}
	return trades, nil
}

// Write emits a header and one row per trade.
func Write(w io.Writer, trades []position.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, t := range trades {
		if err := cw.Write(record(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read parses a journal, skipping the header row.
func Read(r io.Reader) ([]position.Trade, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	var trades []position.Trade
	for i, row := range rows {
		if i == 0 && row[0] == header[0] {
			continue
		}
		t, err := parse(row)
		if err != nil {
			return nil, fmt.Errorf("journal row %d: %w", i+1, err)
		}
		trades = append(trades, t)
	}
	return trades, nil
}

func record(t position.Trade) []string {
	return []string{
		t.ExitTime.UTC().Format(time.RFC3339),
		t.Bot,
		t.Symbol,
		t.Side.String(),
		formatF(t.Qty),
		formatF(t.EntryPrice),
		formatF(t.ExitPrice),
		formatF(t.PnL),
		strconv.FormatFloat(t.PnLPercent, 'f', 2, 64),
		t.Reason,
	}
}

func parse(rec []string) (position.Trade, error) {
	ts, err := time.Parse(time.RFC3339, rec[0])
	if err != nil {
		return position.Trade{}, err
	}
	side, err := position.ParseSide(rec[3])
	if err != nil {
		return position.Trade{}, err
	}

	nums := make([]float64, 5)
	for i := range nums {
		v, err := strconv.ParseFloat(rec[4+i], 64)
		if err != nil {
			return position.Trade{}, fmt.Errorf("column %s: %w", header[4+i], err)
		}
		nums[i] = v
	}

	return position.Trade{
		Bot:        rec[1],
		Symbol:     rec[2],
		Side:       side,
		Qty:        nums[0],
		EntryPrice: nums[1],
		ExitPrice:  nums[2],
		PnL:        nums[3],
		PnLPercent: nums[4],
		ExitTime:   ts,
		Reason:     rec[9],
	}, nil
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
