package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tabaudit/internal/core/domain"
	"tabaudit/internal/core/port"
	"tabaudit/internal/dataset"
)

// tempTable is the name the dataset is registered under. Sessions hold a
// dedicated connection, so temp-table names cannot collide across sessions.
const tempTable = "audit_dataset"

// Engine audits datasets by registering them as temporary tables in a
// PostgreSQL database and running aggregate queries against them.
type Engine struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// NewEngine connects to the database and verifies the connection.
func NewEngine(ctx context.Context, databaseURL string, queryTimeout time.Duration) (*Engine, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database (10s timeout): %w", err)
	}

	return &Engine{pool: pool, queryTimeout: queryTimeout}, nil
}

func (e *Engine) Name() string {
	return "postgres"
}

// Close releases the connection pool.
func (e *Engine) Close() {
	e.pool.Close()
}

// Open registers the dataset as a temp table on a dedicated connection and
// bulk-loads it with COPY. The returned session owns the connection until
// Close.
func (e *Engine) Open(ctx context.Context, ds *dataset.Dataset) (port.DatasetSession, error) {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}

	if err := registerDataset(ctx, conn, ds); err != nil {
		conn.Release()
		return nil, err
	}

	return &session{conn: conn, timeout: e.queryTimeout}, nil
}

// Fix is not implemented for the postgres engine: repairing data in an
// external database is future work, and silently returning the input
// unchanged would hide that.
func (e *Engine) Fix(_ context.Context, _ *dataset.Dataset) (*dataset.Dataset, error) {
	return nil, fmt.Errorf("postgres: %w", domain.ErrFixUnsupported)
}

func registerDataset(ctx context.Context, conn *pgxpool.Conn, ds *dataset.Dataset) error {
	cols := ds.Columns()

	defs := make([]string, len(cols))
	names := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s %s", quoteIdent(c.Name), sqlType(c.Type))
		names[i] = c.Name
	}

	ddl := fmt.Sprintf("CREATE TEMP TABLE %s (%s)", tempTable, strings.Join(defs, ", "))
	if _, err := conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("creating temp table: %w", err)
	}

	_, err := conn.Conn().CopyFrom(ctx,
		pgx.Identifier{tempTable},
		names,
		pgx.CopyFromSlice(ds.NumRows(), func(i int) ([]any, error) {
			return copyRow(cols, ds.Row(i)), nil
		}),
	)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	return nil
}

// copyRow normalizes "other"-typed values to text for COPY; the scalar
// types map directly onto their Postgres column types.
func copyRow(cols []dataset.Column, row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if v != nil && cols[i].Type == dataset.TypeOther {
			out[i] = fmt.Sprint(v)
			continue
		}
		out[i] = v
	}
	return out
}
