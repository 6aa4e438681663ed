package indicator

// Trendline is the straight line through two pivots, indexed by bar position.
type Trendline struct {
	From  Pivot
	To    Pivot
	Slope float64
}

// NewTrendline joins two pivots; it returns false when they share an index.
func NewTrendline(from, to Pivot) (Trendline, bool) {
	if from.Index == to.Index {
		return Trendline{}, false
	}
	if from.Index > to.Index {
		from, to = to, from
	}
	slope := (to.Price - from.Price) / float64(to.Index-from.Index)
	return Trendline{From: from, To: to, Slope: slope}, true
}

// ValueAt projects the line to bar index i.
func (t Trendline) ValueAt(i int) float64 {
	return t.From.Price + t.Slope*float64(i-t.From.Index)
}

// ResistanceLine joins the last two pivot highs.
func ResistanceLine(highs []float64, leftBars, rightBars int) (Trendline, bool) {
	return lastTwo(PivotHighs(highs, leftBars, rightBars))
}

// SupportLine joins the last two pivot lows.
func SupportLine(lows []float64, leftBars, rightBars int) (Trendline, bool) {
	return lastTwo(PivotLows(lows, leftBars, rightBars))
}

func lastTwo(p []Pivot) (Trendline, bool) {
	if len(p) < 2 {
		return Trendline{}, false
	}
	return NewTrendline(p[len(p)-2], p[len(p)-1])
}

// CrossedAbove reports whether closes went from at-or-below the line to above it on the last bar.
func (t Trendline) CrossedAbove(closes []float64) bool {
	n := len(closes)
	if n < 2 {
		return false
	}
	return closes[n-2] <= t.ValueAt(n-2) && closes[n-1] > t.ValueAt(n-1)
}

// CrossedBelow reports whether closes went from at-or-above the line to below it on the last bar.
func (t Trendline) CrossedBelow(closes []float64) bool {
	n := len(closes)
	if n < 2 {
		return false
	}
	return closes[n-2] >= t.ValueAt(n-2) && closes[n-1] < t.ValueAt(n-1)
}
