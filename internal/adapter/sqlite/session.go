package sqlite

import (
	"context"
	"fmt"

	"github.com/spf13/cast"
	"gorm.io/gorm"

	"tabaudit/internal/core/domain"
	"tabaudit/internal/core/port"
	"tabaudit/internal/dataset"
)

type session struct {
	db *gorm.DB
}

func (s *session) MissingCounts(ctx context.Context, col dataset.Column) (port.MissingCounts, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN %s THEN 1 ELSE 0 END), 0)
		FROM %s`, missingCondition(col), tableName)

	vals, err := s.scalarRow(ctx, query, nil, 2)
	if err != nil {
		return port.MissingCounts{}, fmt.Errorf("counting missing values for %q: %w", col.Name, err)
	}
	return port.MissingCounts{Total: vals[0], Missing: vals[1]}, nil
}

func (s *session) NumericBaseCounts(ctx context.Context, col dataset.Column) (port.NumericBaseCounts, error) {
	ident := quoteIdent(col.Name)
	query := fmt.Sprintf(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN %s IS NOT NULL AND %s THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN %s < 0 THEN 1 ELSE 0 END), 0)
		FROM %s`, ident, nonFiniteExpr(ident), ident, tableName)

	vals, err := s.scalarRow(ctx, query, nil, 3)
	if err != nil {
		return port.NumericBaseCounts{}, fmt.Errorf("counting numeric overview for %q: %w", col.Name, err)
	}
	return port.NumericBaseCounts{Total: vals[0], NonFinite: vals[1], Negative: vals[2]}, nil
}

func (s *session) Quartiles(ctx context.Context, col dataset.Column) (*float64, *float64, error) {
	ident := quoteIdent(col.Name)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", tableName, finiteExpr(ident))
	vals, err := s.scalarRow(ctx, countQuery, nil, 1)
	if err != nil {
		return nil, nil, fmt.Errorf("counting finite values for %q: %w", col.Name, err)
	}
	n := vals[0]
	if n == 0 {
		// No qualifying values: quartiles are undefined. Data, not error.
		return nil, nil, nil
	}

	q1, err := s.quantile(ctx, ident, n, 0.25)
	if err != nil {
		return nil, nil, fmt.Errorf("computing Q1 for %q: %w", col.Name, err)
	}
	q3, err := s.quantile(ctx, ident, n, 0.75)
	if err != nil {
		return nil, nil, fmt.Errorf("computing Q3 for %q: %w", col.Name, err)
	}
	return &q1, &q3, nil
}

func (s *session) quantile(ctx context.Context, ident string, n int64, frac float64) (float64, error) {
	lo, hi, weight := quantilePosition(n, frac)

	vlo, err := s.valueAtOffset(ctx, ident, lo)
	if err != nil {
		return 0, err
	}
	if hi == lo {
		return vlo, nil
	}
	vhi, err := s.valueAtOffset(ctx, ident, hi)
	if err != nil {
		return 0, err
	}
	return interpolate(vlo, vhi, weight), nil
}

func (s *session) valueAtOffset(ctx context.Context, ident string, offset int64) (float64, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY %s
		LIMIT 1 OFFSET ?`, ident, tableName, finiteExpr(ident), ident)

	var raw any
	row := s.db.WithContext(ctx).Raw(query, offset).Row()
	if err := row.Scan(&raw); err != nil {
		return 0, err
	}
	return cast.ToFloat64E(raw)
}

func (s *session) OutlierCounts(ctx context.Context, col dataset.Column, bounds domain.Range) (port.OutlierCounts, error) {
	ident := quoteIdent(col.Name)
	query := fmt.Sprintf(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN %s < ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN %s > ? THEN 1 ELSE 0 END), 0)
		FROM %s
		WHERE %s`, ident, ident, tableName, finiteExpr(ident))

	vals, err := s.scalarRow(ctx, query, []any{bounds.Lower, bounds.Upper}, 3)
	if err != nil {
		return port.OutlierCounts{}, fmt.Errorf("counting outliers for %q: %w", col.Name, err)
	}
	return port.OutlierCounts{Finite: vals[0], BelowLower: vals[1], AboveUpper: vals[2]}, nil
}

func (s *session) UniquenessCounts(ctx context.Context, col dataset.Column) (port.UniquenessCounts, error) {
	ident := quoteIdent(col.Name)
	query := fmt.Sprintf("SELECT COUNT(*), COUNT(DISTINCT %s) FROM %s", ident, tableName)

	vals, err := s.scalarRow(ctx, query, nil, 2)
	if err != nil {
		return port.UniquenessCounts{}, fmt.Errorf("counting distinct values for %q: %w", col.Name, err)
	}
	return port.UniquenessCounts{Total: vals[0], Distinct: vals[1]}, nil
}

func (s *session) Close(_ context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// scalarRow runs an aggregate query and coerces the result tuple to int64.
// The driver hands aggregates back as whatever it likes (int64 or float64
// depending on the expression), so the coercion goes through cast.
func (s *session) scalarRow(ctx context.Context, query string, args []any, n int) ([]int64, error) {
	raw := make([]any, n)
	dest := make([]any, n)
	for i := range raw {
		dest[i] = &raw[i]
	}

	row := s.db.WithContext(ctx).Raw(query, args...).Row()
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	out := make([]int64, n)
	for i, v := range raw {
		iv, err := cast.ToInt64E(v)
		if err != nil {
			return nil, fmt.Errorf("coercing scalar %v: %w", v, err)
		}
		out[i] = iv
	}
	return out, nil
}
