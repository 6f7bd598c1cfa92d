package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"tabaudit/internal/core/domain"
	"tabaudit/internal/core/port"
	"tabaudit/internal/dataset"
)

// session holds the dedicated connection whose temp table carries the
// registered dataset.
type session struct {
	conn    *pgxpool.Conn
	timeout time.Duration
}

func (s *session) MissingCounts(ctx context.Context, col dataset.Column) (port.MissingCounts, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN %s THEN 1 ELSE 0 END), 0)
		FROM %s`, missingCondition(col), tempTable)

	var counts port.MissingCounts
	if err := s.queryRow(ctx, query, nil, &counts.Total, &counts.Missing); err != nil {
		return port.MissingCounts{}, fmt.Errorf("counting missing values for %q: %w", col.Name, err)
	}
	return counts, nil
}

func (s *session) NumericBaseCounts(ctx context.Context, col dataset.Column) (port.NumericBaseCounts, error) {
	ident := quoteIdent(col.Name)
	query := fmt.Sprintf(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN %s IS NOT NULL AND %s THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN %s < 0 THEN 1 ELSE 0 END), 0)
		FROM %s`, ident, nonFiniteExpr(ident), ident, tempTable)

	var counts port.NumericBaseCounts
	if err := s.queryRow(ctx, query, nil, &counts.Total, &counts.NonFinite, &counts.Negative); err != nil {
		return port.NumericBaseCounts{}, fmt.Errorf("counting numeric overview for %q: %w", col.Name, err)
	}
	return counts, nil
}

func (s *session) Quartiles(ctx context.Context, col dataset.Column) (*float64, *float64, error) {
	ident := quoteIdent(col.Name)
	query := fmt.Sprintf(`
		SELECT percentile_cont(0.25) WITHIN GROUP (ORDER BY %s::double precision),
		       percentile_cont(0.75) WITHIN GROUP (ORDER BY %s::double precision)
		FROM %s
		WHERE %s`, ident, ident, tempTable, finiteExpr(ident))

	// Both come back NULL when no finite values qualify; that is a defined
	// "absent" result, not an error.
	var q1, q3 *float64
	if err := s.queryRow(ctx, query, nil, &q1, &q3); err != nil {
		return nil, nil, fmt.Errorf("computing quartiles for %q: %w", col.Name, err)
	}
	return q1, q3, nil
}

func (s *session) OutlierCounts(ctx context.Context, col dataset.Column, bounds domain.Range) (port.OutlierCounts, error) {
	ident := quoteIdent(col.Name)
	query := fmt.Sprintf(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN %s < $1 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN %s > $2 THEN 1 ELSE 0 END), 0)
		FROM %s
		WHERE %s`, ident, ident, tempTable, finiteExpr(ident))

	var counts port.OutlierCounts
	args := []any{bounds.Lower, bounds.Upper}
	if err := s.queryRow(ctx, query, args, &counts.Finite, &counts.BelowLower, &counts.AboveUpper); err != nil {
		return port.OutlierCounts{}, fmt.Errorf("counting outliers for %q: %w", col.Name, err)
	}
	return counts, nil
}

func (s *session) UniquenessCounts(ctx context.Context, col dataset.Column) (port.UniquenessCounts, error) {
	ident := quoteIdent(col.Name)
	query := fmt.Sprintf(`SELECT COUNT(*), COUNT(DISTINCT %s) FROM %s`, ident, tempTable)

	var counts port.UniquenessCounts
	if err := s.queryRow(ctx, query, nil, &counts.Total, &counts.Distinct); err != nil {
		return port.UniquenessCounts{}, fmt.Errorf("counting distinct values for %q: %w", col.Name, err)
	}
	return counts, nil
}

// Close drops the temp table and returns the connection to the pool.
func (s *session) Close(ctx context.Context) error {
	defer s.conn.Release()
	if _, err := s.conn.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", tempTable)); err != nil {
		return fmt.Errorf("dropping temp table: %w", err)
	}
	return nil
}

func (s *session) queryRow(ctx context.Context, query string, args []any, dest ...any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.conn.QueryRow(ctx, query, args...).Scan(dest...)
}
