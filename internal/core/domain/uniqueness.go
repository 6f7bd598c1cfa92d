package domain

import (
	"strings"

	"tabaudit/internal/dataset"
)

// NeedsUniquenessCheck decides whether cardinality is worth computing for a
// column: any column whose name contains "id" (case-insensitive), or any
// string column. This is a heuristic, not a type guarantee — a numeric
// column named "valid" qualifies and a string identifier column always
// qualifies through its type. Both are accepted behavior.
func NeedsUniquenessCheck(name string, t dataset.Type) bool {
	if strings.Contains(strings.ToLower(name), "id") {
		return true
	}
	return t == dataset.TypeString
}
