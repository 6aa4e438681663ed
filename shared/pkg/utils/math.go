package utils

import "strconv"

func ParseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// MustParseFloat parses s and returns 0 for empty or malformed input.
func MustParseFloat(s string) float64 {
	f, err := ParseFloat(s)
	if err != nil {
		return 0
	}
	return f
}

// PercentChange returns (to-from)/from, or 0 when from is zero.
func PercentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from
}
