package postgres

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

// sqlType maps a declared type to the temp-table column type.
func sqlType(t dataset.Type) string {
	switch t {
	case dataset.TypeBool:
		return "boolean"
	case dataset.TypeInt:
		return "bigint"
	case dataset.TypeFloat:
		return "double precision"
	case dataset.TypeDatetime:
		return "timestamptz"
	default:
		return "text"
	}
}

// isNaNExpr is true when the value is NaN. Postgres treats NaN as equal to
// itself, so a plain comparison works; the cast lets the same expression
// apply to integer columns, where it is trivially false.
func isNaNExpr(col string) string {
	return fmt.Sprintf("%s::double precision = 'NaN'::double precision", col)
}

// nonFiniteExpr is true for NaN and ±Infinity. Null input yields null, which
// every caller guards with an IS NOT NULL conjunct.
func nonFiniteExpr(col string) string {
	return fmt.Sprintf("(%s OR abs(%s::double precision) = 'Infinity'::double precision)", isNaNExpr(col), col)
}

// finiteExpr is true for non-null values that are neither NaN nor infinite.
func finiteExpr(col string) string {
	return fmt.Sprintf("%s IS NOT NULL AND NOT %s", col, nonFiniteExpr(col))
}

// missingCondition renders the column's missing-value rule as a boolean SQL
// expression. The type → rule mapping is domain logic; only the dialect
// rendering lives here.
func missingCondition(col dataset.Column) string {
	ident := quoteIdent(col.Name)
	switch domain.MissingRuleFor(col.Type) {
	case domain.MissingNullOrNaN:
		return fmt.Sprintf("(%s IS NULL OR %s)", ident, isNaNExpr(ident))
	case domain.MissingNullOrSentinel:
		return fmt.Sprintf("(%s IS NULL OR btrim(%s) = '' OR lower(btrim(%s)) IN (%s))",
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
