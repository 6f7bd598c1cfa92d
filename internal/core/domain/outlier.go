package domain

// ThresholdMethod tags how outlier bounds were derived.
type ThresholdMethod string

const (
	MethodCustomRange ThresholdMethod = "custom_range"
	MethodIQR         ThresholdMethod = "IQR_1.5"
)

// tukeyMultiplier is the classical 1.5× fence factor.
const tukeyMultiplier = 1.5

// Range is a closed numeric interval used as outlier bounds.
type Range struct {
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
}

// TukeyFences derives outlier bounds from the first and third quartiles:
// lower = Q1 - 1.5*IQR, upper = Q3 + 1.5*IQR. No distributional assumption,
// robust to skew.
func TukeyFences(q1, q3 float64) Range {
	iqr := q3 - q1
	return Range{
		Lower: q1 - tukeyMultiplier*iqr,
		Upper: q3 + tukeyMultiplier*iqr,
	}
}
