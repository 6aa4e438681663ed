package position

import (
	"testing"

	"github.com/paaavkata/trend-trader/services/trading-engine/internal/strategy"
	"github.com/paaavkata/trend-trader/shared/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decide(a strategy.Action) strategy.Decision {
	return strategy.Decision{Action: a, Reason: a.String()}
}

func machineWith(t *testing.T, side Side, takeProfitPct float64) *Machine {
	t.Helper()
	m := NewMachine("BTCUSDT")
	if side != Flat {
		require.NoError(t, m.Open(Entry{Side: side, Qty: 1, Price: 100, StopDistance: 5, TakeProfitPercent: takeProfitPct, Time: t0}))
	}
	return m
}

func TestPlan(t *testing.T) {
	quiet := bar(100, 102, 98, 101)

	tests := []struct {
		name       string
		side       Side
		takeProfit float64
		candle     models.Candle
		action     strategy.Action
		allowShort bool
		want       []Action
	}{
		{
			name:   "flat hold does nothing",
			side:   Flat,
			candle: quiet,
			action: strategy.Hold,
			want:   nil,
		},
		{
			name:   "flat buy opens long at close",
			side:   Flat,
			candle: quiet,
			action: strategy.Buy,
			want:   []Action{{Kind: ActionOpen, Side: Long, Price: 101, Reason: "buy"}},
		},
		{
			name:   "flat sell ignored without shorting",
			side:   Flat,
			candle: quiet,
			action: strategy.Sell,
			want:   nil,
		},
		{
			name:       "flat sell opens short when allowed",
			side:       Flat,
			candle:     quiet,
			action:     strategy.Sell,
			allowShort: true,
			want:       []Action{{Kind: ActionOpen, Side: Short, Price: 101, Reason: "sell"}},
		},
		{
			name:   "flat exit ignored",
			side:   Flat,
			candle: quiet,
			action: strategy.ExitLong,
			want:   nil,
		},
		{
			name:   "long hold trails",
			side:   Long,
			candle: quiet,
			action: strategy.Hold,
			want:   []Action{{Kind: ActionTrail, Side: Long, Price: 101}},
		},
		{
			name:   "long buy is ignored and trails",
			side:   Long,
			candle: quiet,
			action: strategy.Buy,
			want:   []Action{{Kind: ActionTrail, Side: Long, Price: 101}},
		},
		{
			name:   "long stop hit closes at stop",
			side:   Long,
			candle: bar(99, 100, 94, 96),
			action: strategy.Hold,
			want:   []Action{{Kind: ActionClose, Side: Long, Price: 95, Reason: ReasonStop}},
		},
		{
			name:       "stop hit suppresses entry on same candle",
			side:       Long,
			candle:     bar(99, 100, 94, 96),
			action:     strategy.Sell,
			allowShort: true,
			want:       []Action{{Kind: ActionClose, Side: Long, Price: 95, Reason: ReasonStop}},
		},
		{
			name:   "long gap through stop fills at open",
			side:   Long,
			candle: bar(90, 92, 88, 91),
			action: strategy.Hold,
			want:   []Action{{Kind: ActionClose, Side: Long, Price: 90, Reason: ReasonStop}},
		},
		{
			name:       "long take profit",
			side:       Long,
			takeProfit: 3,
			candle:     bar(101, 104, 100, 102),
			action:     strategy.Hold,
			want:       []Action{{Kind: ActionClose, Side: Long, Price: 103, Reason: ReasonTakeProfit}},
		},
		{
			name:   "long exit signal closes at close",
			side:   Long,
			candle: quiet,
			action: strategy.ExitLong,
			want:   []Action{{Kind: ActionClose, Side: Long, Price: 101, Reason: ReasonSignal}},
		},
		{
			name:   "long ignores exit short",
			side:   Long,
			candle: quiet,
			action: strategy.ExitShort,
			want:   []Action{{Kind: ActionTrail, Side: Long, Price: 101}},
		},
		{
			name:   "long sell closes without shorting",
			side:   Long,
			candle: quiet,
			action: strategy.Sell,
			want:   []Action{{Kind: ActionClose, Side: Long, Price: 101, Reason: ReasonReverse}},
		},
		{
			name:       "long sell reverses when shorting allowed",
			side:       Long,
			candle:     quiet,
			action:     strategy.Sell,
			allowShort: true,
			want: []Action{
				{Kind: ActionClose, Side: Long, Price: 101, Reason: ReasonReverse},
				{Kind: ActionOpen, Side: Short, Price: 101, Reason: "sell"},
			},
		},
		{
			name:   "short buy reverses",
			side:   Short,
			candle: quiet,
			action: strategy.Buy,
			want: []Action{
				{Kind: ActionClose, Side: Short, Price: 101, Reason: ReasonReverse},
				{Kind: ActionOpen, Side: Long, Price: 101, Reason: "buy"},
			},
		},
		{
			name:   "short stop hit",
			side:   Short,
			candle: bar(101, 106, 100, 104),
			action: strategy.Buy,
			want:   []Action{{Kind: ActionClose, Side: Short, Price: 105, Reason: ReasonStop}},
		},
		{
			name:   "short exit signal",
			side:   Short,
			candle: quiet,
			action: strategy.ExitShort,
			want:   []Action{{Kind: ActionClose, Side: Short, Price: 101, Reason: ReasonSignal}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := machineWith(t, tt.side, tt.takeProfit)
			before := m.Snapshot()

			got := Plan(m, tt.candle, decide(tt.action), tt.allowShort)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, before, m.Snapshot(), "plan must not modify the machine")
		})
	}
}

func TestPlan_StopCheckedBeforeRatchet(t *testing.T) {
	m := machineWith(t, Long, 0)

	// The high would lift the stop to 105 but the low only breaches the
	// current stop at 95, so the position survives and then trails.
	c := bar(100, 110, 96, 109)
	got := Plan(m, c, decide(strategy.Hold), false)
	require.Equal(t, []Action{{Kind: ActionTrail, Side: Long, Price: 109}}, got)

	m.Trail(c)
	pos, _ := m.Position()
	assert.Equal(t, 105.0, pos.Stop.Stop)
}

func TestActionKindString(t *testing.T) {
	assert.Equal(t, "open", ActionOpen.String())
	assert.Equal(t, "close", ActionClose.String())
	assert.Equal(t, "trail", ActionTrail.String())
	assert.Equal(t, "unknown", ActionKind(0).String())
}
