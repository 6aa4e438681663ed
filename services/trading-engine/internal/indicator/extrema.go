package indicator

// Pivot is a local extremum at Index with value Price.
type Pivot struct {
	Index int
	Price float64
}

// PivotHighs returns the strict local maxima that have leftBars lower values
// before them and rightBars lower values after them.
func PivotHighs(values []float64, leftBars, rightBars int) []Pivot {
	return pivots(values, leftBars, rightBars, func(candidate, other float64) bool { return candidate > other })
}

// PivotLows returns the strict local minima, see PivotHighs.
func PivotLows(values []float64, leftBars, rightBars int) []Pivot {
	return pivots(values, leftBars, rightBars, func(candidate, other float64) bool { return candidate < other })
}

func pivots(values []float64, leftBars, rightBars int, beats func(candidate, other float64) bool) []Pivot {
	var out []Pivot
	for i := leftBars; i < len(values)-rightBars; i++ {
		current := values[i]
		isPivot := true

		for j := 1; j <= leftBars && isPivot; j++ {
			if !beats(current, values[i-j]) {
				isPivot = false
			}
		}
		for j := 1; j <= rightBars && isPivot; j++ {
			if !beats(current, values[i+j]) {
				isPivot = false
			}
		}

		if isPivot {
			out = append(out, Pivot{Index: i, Price: current})
		}
	}
	return out
}
