package sqlite

import (
	"fmt"
	"strings"

	"tabaudit/internal/core/domain"
	"tabaudit/internal/dataset"
)

// quoteIdent quotes a SQL identifier, escaping embedded double quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sqlType maps a declared type to the table column type. SQLite typing is
// dynamic; these are affinities. Booleans land in INTEGER, datetimes are
// stored as RFC 3339 TEXT.
func sqlType(t dataset.Type) string {
	switch t {
	case dataset.TypeBool, dataset.TypeInt:
		return "INTEGER"
	case dataset.TypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// nonFiniteExpr is true for ±Infinity. 9e999 overflows to Infinity in
// SQLite, and NaN cannot occur in storage (see package comment).
func nonFiniteExpr(col string) string {
	return fmt.Sprintf("abs(%s) >= 9e999", col)
}

// finiteExpr is true for non-null values that are not infinite.
func finiteExpr(col string) string {
	return fmt.Sprintf("%s IS NOT NULL AND NOT (%s)", col, nonFiniteExpr(col))
}

// missingCondition renders the column's missing-value rule in SQLite SQL.
// For float columns the "null or NaN" rule reduces to a null test because
// NaN is stored as NULL on this backend.
func missingCondition(col dataset.Column) string {
	ident := quoteIdent(col.Name)
	switch domain.MissingRuleFor(col.Type) {
	case domain.MissingNullOrNaN:
		return fmt.Sprintf("%s IS NULL", ident)
	case domain.MissingNullOrSentinel:
		return fmt.Sprintf("(%s IS NULL OR trim(%s) = '' OR lower(trim(%s)) IN (%s))",
			ident, ident, ident, sentinelList())
	default:
		return fmt.Sprintf("%s IS NULL", ident)
	}
}

func sentinelList() string {
	quoted := make([]string, len(domain.StringSentinels))
	for i, s := range domain.StringSentinels {
		quoted[i] = "'" + s + "'"
	}
	return strings.Join(quoted, ", ")
}
