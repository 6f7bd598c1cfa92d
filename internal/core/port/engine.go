package port

import (
	"context"

	"tabaudit/internal/core/domain"
	"tabaudit/internal/dataset"
)

// MissingCounts is the raw result of a missing-values query.
type MissingCounts struct {
	Total   int64
	Missing int64
}

// NumericBaseCounts is the raw result of the numeric overview base query.
type NumericBaseCounts struct {
	Total     int64
	NonFinite int64
	Negative  int64
}

// OutlierCounts is the raw result of an outlier query over finite values.
type OutlierCounts struct {
	Finite     int64
	BelowLower int64
	AboveUpper int64
}

// UniquenessCounts is the raw result of a distinct-values query. Distinct
// excludes nulls, Total does not.
type UniquenessCounts struct {
	Total    int64
	Distinct int64
}

// DatasetSession is a registered dataset that can answer diagnostic queries.
// Implementations render the queries in their own SQL dialect; what counts as
// missing or non-finite is decided by the domain rules, not the dialect.
type DatasetSession interface {
	MissingCounts(ctx context.Context, col dataset.Column) (MissingCounts, error)
	NumericBaseCounts(ctx context.Context, col dataset.Column) (NumericBaseCounts, error)

	// Quartiles returns the continuous Q1 and Q3 over the column's finite
	// non-null values. Both are nil when no such values exist; that outcome
	// is data, not an error.
	Quartiles(ctx context.Context, col dataset.Column) (q1, q3 *float64, err error)

	OutlierCounts(ctx context.Context, col dataset.Column, bounds domain.Range) (OutlierCounts, error)
	UniquenessCounts(ctx context.Context, col dataset.Column) (UniquenessCounts, error)

	// Close releases the session's resources, including any backing table.
	Close(ctx context.Context) error
}

// Engine is a query backend that can register datasets and optionally repair
// them.
type Engine interface {
	Name() string
	Open(ctx context.Context, ds *dataset.Dataset) (DatasetSession, error)

	// Fix applies the engine's repair pass. Engines without repair logic
	// return domain.ErrFixUnsupported rather than silently passing data
	// through.
	Fix(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, error)
}
