// Package report serializes dataset reports to YAML and JSON. It is the one
// place where boundary coercion happens: non-finite floats become explicit
// nulls and column order is preserved in the output mapping. The core data
// model never passes through here on the way between checks.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"gopkg.in/yaml.v3"

	"tabaudit/internal/core/port"
)

// EncodeYAML writes the report as YAML.
func EncodeYAML(w io.Writer, rep *port.DatasetReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(buildTree(rep)); err != nil {
		return fmt.Errorf("encoding report YAML: %w", err)
	}
	return enc.Close()
}

// EncodeJSON writes the report as indented JSON.
func EncodeJSON(w io.Writer, rep *port.DatasetReport) error {
	data, err := json.MarshalIndent(buildTree(rep), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report JSON: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// buildTree converts the report into ordered mappings of plain scalars.
func buildTree(rep *port.DatasetReport) *omap {
	columns := newOmap()
	for _, col := range rep.Columns {
		columns.set(col.Name, columnTree(col))
	}

	return newOmap().
		set("run_id", rep.RunID).
		set("engine", rep.Engine).
		set("generated_at", rep.GeneratedAt.UTC().Format(time.RFC3339)).
		set("columns", columns)
}

func columnTree(col port.ColumnReport) *omap {
	issues := newOmap().
		set("missing_values", newOmap().
			set("n_missing", col.MissingValues.NMissing).
			set("pct_missing", num(col.MissingValues.PctMissing)))

	if ov := col.NumericOverview; ov != nil {
		tree := newOmap().
			set("total_rows", ov.TotalRows).
			set("n_non_finite", ov.NNonFinite).
			set("n_negative", ov.NNegative)
		if o := ov.Outliers; o != nil {
			tree.set("outliers", newOmap().
				set("method", string(o.Method)).
				set("lower_threshold", num(o.LowerThreshold)).
				set("upper_threshold", num(o.UpperThreshold)).
				set("n_finite_used", o.NFiniteUsed).
				set("n_below_lower", o.NBelowLower).
				set("n_above_upper", o.NAboveUpper))
		} else {
			tree.set("outliers", nil)
		}
		issues.set("numeric_overview", tree)
	} else {
		issues.set("numeric_overview", nil)
	}

	if u := col.Uniqueness; u != nil {
		issues.set("uniqueness", newOmap().
			set("n_unique", u.NUnique).
			set("pct_unique", num(u.PctUnique)))
	} else {
		issues.set("uniqueness", nil)
	}

	return newOmap().
		set("dtype", col.Dtype).
		set("issues", issues)
}

// num coerces a float for serialization: NaN and ±Inf have no JSON
// representation and must come out as explicit nulls, never as "NaN".
func num(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
