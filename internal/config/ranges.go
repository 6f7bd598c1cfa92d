package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"tabaudit/internal/core/domain"
)

// rangesFile is the YAML shape of a custom numeric ranges file:
//
//	ranges:
//	  amount: [0, 10]          # short form: [lower, upper]
//	  score:                   # long form
//	    lower: 0
//	    upper: 100
type rangesFile struct {
	Ranges map[string]rangeSpec `yaml:"ranges"`
}

type rangeSpec struct {
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
}

// UnmarshalYAML supports both the two-element sequence form and the
// lower/upper mapping form.
func (r *rangeSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		var pair []float64
		if err := value.Decode(&pair); err != nil {
			return fmt.Errorf("decoding range pair: %w", err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("range pair must have exactly two elements, got %d", len(pair))
		}
		r.Lower, r.Upper = pair[0], pair[1]
		return nil
	}
	// Decode as struct (avoid infinite recursion by using an alias type).
	type alias rangeSpec
	var a alias
	if err := value.Decode(&a); err != nil {
		return fmt.Errorf("decoding range: %w", err)
	}
	*r = rangeSpec(a)
	return nil
}

// LoadRanges reads a YAML file of per-column numeric range overrides and
// returns the validated column-name → range mapping.
func LoadRanges(path string) (map[string]domain.Range, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ranges file: %w", err)
	}

	var rf rangesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing ranges YAML: %w", err)
	}

	ranges := make(map[string]domain.Range, len(rf.Ranges))
	for col, spec := range rf.Ranges {
		if col == "" {
			return nil, fmt.Errorf("ranges contains an empty column name")
		}
		if err := validateRange(col, spec); err != nil {
			return nil, err
		}
		ranges[col] = domain.Range{Lower: spec.Lower, Upper: spec.Upper}
	}
	return ranges, nil
}

func validateRange(col string, spec rangeSpec) error {
	for _, v := range []float64{spec.Lower, spec.Upper} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("ranges[%q]: bounds must be finite", col)
		}
	}
	if spec.Lower > spec.Upper {
		return fmt.Errorf("ranges[%q]: lower bound %v exceeds upper bound %v", col, spec.Lower, spec.Upper)
	}
	return nil
}
