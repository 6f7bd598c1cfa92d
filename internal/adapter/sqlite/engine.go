// Package sqlite implements the audit engine on an embedded in-memory
// SQLite database. It is the default backend: no external service needed.
//
// SQLite has no representation for NaN — a NaN float is stored as NULL.
// The adapter makes that explicit at registration time, so for this backend
// NaN values surface in the missing-value counts (the float rule is "null
// or NaN" either way) and the non-finite count covers ±Infinity only.
package sqlite

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tabaudit/internal/core/port"
	"tabaudit/internal/dataset"
)

const tableName = "audit_dataset"

// insertParamBudget caps bind parameters per INSERT statement; SQLite's
// default limit is 999.
const insertParamBudget = 900

// Engine audits datasets in a private in-memory SQLite database per session.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) Name() string {
	return "sqlite"
}

// Open creates a fresh named in-memory database, registers the dataset as a
// table and bulk-inserts the rows. The database lives until the session is
// closed.
func (e *Engine) Open(ctx context.Context, ds *dataset.Dataset) (port.DatasetSession, error) {
	// A unique name keeps concurrent sessions isolated while letting the
	// connection pool share one database.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	if err := registerDataset(ctx, db, ds); err != nil {
		closeDB(db)
		return nil, err
	}

	return &session{db: db}, nil
}

// Fix is the repair pass. Cleaning logic is not implemented yet; the dataset
// is returned unchanged. The pass-through is intentional, documented
// behavior for this engine, not an error.
func (e *Engine) Fix(_ context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
	return ds, nil
}

func registerDataset(ctx context.Context, db *gorm.DB, ds *dataset.Dataset) error {
	cols := ds.Columns()

	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s %s", quoteIdent(c.Name), sqlType(c.Type))
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", tableName, strings.Join(defs, ", "))
	if err := db.WithContext(ctx).Exec(ddl).Error; err != nil {
		return fmt.Errorf("creating table: %w", err)
	}

	rowsPerChunk := insertParamBudget / len(cols)
	if rowsPerChunk < 1 {
		rowsPerChunk = 1
	}

	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",") + ")"
	for start := 0; start < ds.NumRows(); start += rowsPerChunk {
		end := start + rowsPerChunk
		if end > ds.NumRows() {
			end = ds.NumRows()
		}

		placeholders := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*len(cols))
		for i := start; i < end; i++ {
			placeholders = append(placeholders, placeholder)
			for _, v := range ds.Row(i) {
				args = append(args, bindValue(v))
			}
		}

		stmt := fmt.Sprintf("INSERT INTO %s VALUES %s", tableName, strings.Join(placeholders, ", "))
		if err := db.WithContext(ctx).Exec(stmt, args...).Error; err != nil {
			return fmt.Errorf("loading dataset rows %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

// bindValue converts a dataset scalar to its SQLite representation.
func bindValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(x) {
			// SQLite would coerce NaN to NULL anyway; do it explicitly.
			return nil
		}
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case bool, int64, string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
