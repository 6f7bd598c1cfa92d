package domain

import "math"

// Percentage returns part/total as a percentage rounded to two decimals.
// A zero total yields 0.0 rather than NaN.
func Percentage(part, total int64) float64 {
	if total == 0 {
		return 0.0
	}
	return math.Round(float64(part)/float64(total)*100*100) / 100
}
