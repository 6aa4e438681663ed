package backtest

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/journal"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/position"
	"github.com/samber/lo"
)

type Point struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// Summary holds the trade statistics of a replay. WinRate is a fraction,
// AvgLoss is negative and ProfitFactor is zero when there were no losses.
type Summary struct {
	Trades             int     `json:"trades"`
	Wins               int     `json:"wins"`
	Losses             int     `json:"losses"`
	WinRate            float64 `json:"win_rate"`
	AvgWin             float64 `json:"avg_win"`
	AvgLoss            float64 `json:"avg_loss"`
	ProfitFactor       float64 `json:"profit_factor"`
	TotalPnL           float64 `json:"total_pnl"`
	MaxDrawdown        float64 `json:"max_drawdown"`
	MaxDrawdownPercent float64 `json:"max_drawdown_percent"`
}

type Report struct {
	Bot           string             `json:"bot"`
	Symbol        string             `json:"symbol"`
	Interval      string             `json:"interval"`
	Strategy      string             `json:"strategy"`
	From          time.Time          `json:"from"`
	To            time.Time          `json:"to"`
	Candles       int                `json:"candles"`
	InitialEquity float64            `json:"initial_equity"`
	Trades        []position.Trade   `json:"trades"`
	Equity        []Point            `json:"equity"`
	Open          *position.Position `json:"open,omitempty"`
	Fees          float64            `json:"fees"`
	// NetPnL is realized PnL after fees plus the open position marked at the
	// last close.
	NetPnL  float64 `json:"net_pnl"`
	Summary Summary `json:"summary"`
}

func Summarize(trades []position.Trade, equity []Point) Summary {
	wins := lo.Filter(trades, func(t position.Trade, _ int) bool { return t.Win() })
	losses := lo.Reject(trades, func(t position.Trade, _ int) bool { return t.Win() })
	pnl := func(t position.Trade) float64 { return t.PnL }

	s := Summary{
		Trades:   len(trades),
		Wins:     len(wins),
		Losses:   len(losses),
		TotalPnL: lo.SumBy(trades, pnl),
	}
	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades)
	}

	grossWin := lo.SumBy(wins, pnl)
	grossLoss := -lo.SumBy(losses, pnl)
	if s.Wins > 0 {
		s.AvgWin = grossWin / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = -grossLoss / float64(s.Losses)
	}
	if grossLoss > 0 {
		s.ProfitFactor = grossWin / grossLoss
	}

	s.MaxDrawdown, s.MaxDrawdownPercent = maxDrawdown(equity)
	return s
}

// maxDrawdown is the largest peak to trough fall of the curve, absolute and
// as a percentage of the peak.
func maxDrawdown(equity []Point) (float64, float64) {
	if len(equity) == 0 {
		return 0, 0
	}
	peak := equity[0].Equity
	var dd, pct float64
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if d := peak - p.Equity; d > dd {
			dd = d
			if peak > 0 {
				pct = d / peak * 100
			}
		}
	}
	return dd, pct
}

// WriteCSV writes the trades in the journal format.
func (r *Report) WriteCSV(w io.Writer) error {
	return journal.Write(w, r.Trades)
}

func (r *Report) WriteText(w io.Writer) error {
	var out strings.Builder

	summary := tablewriter.NewWriter(&out)
	summary.SetAutoWrapText(false)
	summary.AppendBulk(r.summaryRows())
	summary.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	summary.Render()

	if len(r.Trades) > 0 {
		trades := tablewriter.NewWriter(&out)
		trades.SetAutoWrapText(false)
		trades.SetHeader([]string{"Entry", "Exit", "Side", "Qty", "Entry Price", "Exit Price", "PnL", "Reason"})
		for _, t := range r.Trades {
			trades.Append([]string{
				t.EntryTime.Format(time.RFC3339),
				t.ExitTime.Format(time.RFC3339),
				t.Side.String(),
				fmt.Sprintf("%g", t.Qty),
				fmt.Sprintf("%g", t.EntryPrice),
				fmt.Sprintf("%g", t.ExitPrice),
				fmt.Sprintf("%.4f", t.PnL),
				t.Reason,
			})
		}
		trades.Render()
	}

	_, err := io.WriteString(w, out.String())
	return err
}

func (r *Report) summaryRows() [][]string {
	rows := [][]string{
		{"bot", r.Bot},
		{"symbol", fmt.Sprintf("%s %s", r.Symbol, r.Interval)},
		{"strategy", r.Strategy},
		{"period", fmt.Sprintf("%s - %s (%d candles)", r.From.Format(time.RFC3339), r.To.Format(time.RFC3339), r.Candles)},
		{"trades", fmt.Sprintf("%d (%d won, %d lost)", r.Summary.Trades, r.Summary.Wins, r.Summary.Losses)},
		{"win rate", fmt.Sprintf("%.2f%%", r.Summary.WinRate*100)},
		{"avg win / loss", fmt.Sprintf("%.4f / %.4f", r.Summary.AvgWin, r.Summary.AvgLoss)},
		{"profit factor", fmt.Sprintf("%.2f", r.Summary.ProfitFactor)},
		{"total pnl", fmt.Sprintf("%.4f", r.Summary.TotalPnL)},
		{"fees", fmt.Sprintf("%.4f", r.Fees)},
		{"net pnl", fmt.Sprintf("%.4f", r.NetPnL)},
		{"max drawdown", fmt.Sprintf("%.4f (%.2f%%)", r.Summary.MaxDrawdown, r.Summary.MaxDrawdownPercent)},
	}
	if r.Open != nil {
		rows = append(rows, []string{"open", fmt.Sprintf("%s %g @ %g, stop %g", r.Open.Side, r.Open.Qty, r.Open.EntryPrice, r.Open.Stop.Stop)})
	}
	return rows
}
