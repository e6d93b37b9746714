package formulas

import "math"

// CAGR calculates the compound annual growth rate between two dated average
// values.
//
// Formula: CAGR = (end / start)^(1 / years) - 1
//
// Returns nil when either endpoint is non-positive or the span is zero,
// since the ratio is undefined for empty or degenerate buckets.
func CAGR(start, end float64, years int) *float64 {
	if start <= 0 || end <= 0 || years <= 0 {
		return nil
	}
	r := math.Pow(end/start, 1/float64(years)) - 1
	return &r
}

// PctChange returns the percentage change from prev to cur, or 0 when prev
// is non-positive (empty comparison bucket).
func PctChange(prev, cur float64) float64 {
	if prev <= 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}
