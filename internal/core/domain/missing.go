package domain

import "tabaudit/internal/dataset"

// MissingRule identifies which definition of "missing" applies to a column.
// Adapters render a rule into their own SQL dialect; the mapping from
// declared type to rule lives here so every backend agrees on semantics.
type MissingRule int

const (
	// MissingNullOnly: only SQL NULL counts as missing.
	MissingNullOnly MissingRule = iota
	// MissingNullOrNaN: NULL or NaN (float columns).
	MissingNullOrNaN
	// MissingNullOrSentinel: NULL, blank after trimming, or one of the
	// null-like string sentinels.
	MissingNullOrSentinel
)

// StringSentinels are the lower-cased trimmed values treated as missing in
// string columns.
var StringSentinels = []string{"nan", "none", "null"}

// MissingRuleFor maps a declared type to its missing-value rule. Unknown
// types fall back to null-only.
func MissingRuleFor(t dataset.Type) MissingRule {
	switch t {
	case dataset.TypeFloat:
		return MissingNullOrNaN
	case dataset.TypeString:
		return MissingNullOrSentinel
	case dataset.TypeBool, dataset.TypeInt, dataset.TypeDatetime:
		return MissingNullOnly
	default:
		return MissingNullOnly
	}
}
