package sqlite

import "math"

// SQLite has no percentile aggregate, so quartiles are computed with two
// ordered OFFSET probes and linear interpolation — the same continuous
// quantile definition percentile_cont uses.

// quantilePosition locates the continuous quantile of a sorted set of n
// values: the value sits between sorted offsets lo and hi, weight of the
// way from lo to hi.
func quantilePosition(n int64, frac float64) (lo, hi int64, weight float64) {
	if n <= 1 {
		return 0, 0, 0
	}
	pos := frac * float64(n-1)
	lo = int64(math.Floor(pos))
	hi = int64(math.Ceil(pos))
	return lo, hi, pos - float64(lo)
}

// interpolate blends the two probed values.
func interpolate(vlo, vhi, weight float64) float64 {
	return vlo + weight*(vhi-vlo)
}
