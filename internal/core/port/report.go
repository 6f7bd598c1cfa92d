package port

import (
	"time"

	"tabaudit/internal/core/domain"
)

// MissingValues is the missing-values section of a column report.
type MissingValues struct {
	NMissing   int64   `json:"n_missing" yaml:"n_missing"`
	PctMissing float64 `json:"pct_missing" yaml:"pct_missing"`
}

// Outliers describes the thresholding pass over a numeric column's finite
// values.
type Outliers struct {
	Method         domain.ThresholdMethod `json:"method" yaml:"method"`
	LowerThreshold float64                `json:"lower_threshold" yaml:"lower_threshold"`
	UpperThreshold float64                `json:"upper_threshold" yaml:"upper_threshold"`
	NFiniteUsed    int64                  `json:"n_finite_used" yaml:"n_finite_used"`
	NBelowLower    int64                  `json:"n_below_lower" yaml:"n_below_lower"`
	NAboveUpper    int64                  `json:"n_above_upper" yaml:"n_above_upper"`
}

// NumericOverview is the numeric section of a column report. Outliers is nil
// when the column has no finite values to threshold.
type NumericOverview struct {
	TotalRows  int64     `json:"total_rows" yaml:"total_rows"`
	NNonFinite int64     `json:"n_non_finite" yaml:"n_non_finite"`
	NNegative  int64     `json:"n_negative" yaml:"n_negative"`
	Outliers   *Outliers `json:"outliers" yaml:"outliers"`
}

// Uniqueness is the distinct-values section of a column report.
type Uniqueness struct {
	NUnique   int64   `json:"n_unique" yaml:"n_unique"`
	PctUnique float64 `json:"pct_unique" yaml:"pct_unique"`
}

// ColumnReport holds every diagnostic computed for one column. Nil sections
// mean the check did not apply to the column's type.
type ColumnReport struct {
	Name            string           `json:"name" yaml:"name"`
	Dtype           string           `json:"dtype" yaml:"dtype"`
	MissingValues   MissingValues    `json:"missing_values" yaml:"missing_values"`
	NumericOverview *NumericOverview `json:"numeric_overview" yaml:"numeric_overview"`
	Uniqueness      *Uniqueness      `json:"uniqueness" yaml:"uniqueness"`
}

// DatasetReport is the result of a full audit run. Columns preserves dataset
// column order and is deterministic for a given dataset and engine; RunID and
// GeneratedAt are per-run metadata.
type DatasetReport struct {
	RunID       string         `json:"run_id" yaml:"run_id"`
	Engine      string         `json:"engine" yaml:"engine"`
	GeneratedAt time.Time      `json:"generated_at" yaml:"generated_at"`
	Columns     []ColumnReport `json:"columns" yaml:"columns"`
}

// Column returns the report for the named column, or nil when absent.
func (r *DatasetReport) Column(name string) *ColumnReport {
	for i := range r.Columns {
		if r.Columns[i].Name == name {
			return &r.Columns[i]
		}
	}
	return nil
}
