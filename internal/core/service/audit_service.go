package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"tabaudit/internal/core/domain"
	"tabaudit/internal/core/port"
	"tabaudit/internal/dataset"
)

// Check names used in audit trail entries.
const (
	checkMissingValues   = "missing_values"
	checkNumericOverview = "numeric_overview"
	checkUniqueness      = "uniqueness"
)

// AuditService runs the per-column diagnostic rule engine against a dataset
// registered with an engine and assembles the dataset report.
//
// A failure in any column's check aborts the whole audit: no partial report
// is ever returned.
type AuditService struct {
	engine port.Engine
	sink   port.AuditSink
	logger *slog.Logger
	tracer trace.Tracer
	inst   port.Instrumentation
}

func NewAuditService(engine port.Engine, sink port.AuditSink, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *AuditService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &AuditService{
		engine: engine,
		sink:   sink,
		logger: logger,
		tracer: tracer,
		inst:   inst,
	}
}

// Audit registers the dataset with the engine, runs every applicable check
// for every column in dataset order, and returns the assembled report.
// customRanges optionally overrides outlier bounds per column name; columns
// with an override skip the quartile pass entirely.
func (s *AuditService) Audit(ctx context.Context, ds *dataset.Dataset, customRanges map[string]domain.Range) (*port.DatasetReport, error) {
	cols := ds.Columns()

	ctx, span := s.tracer.Start(ctx, "AuditService.Audit",
		trace.WithAttributes(
			attribute.String("engine", s.engine.Name()),
			attribute.Int("dataset.columns", len(cols)),
			attribute.Int("dataset.rows", ds.NumRows()),
		),
	)
	defer span.End()

	start := time.Now()

	sess, err := s.engine.Open(ctx, ds)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("opening %s session: %w", s.engine.Name(), err)
	}
	defer func() { _ = sess.Close(ctx) }()

	report := &port.DatasetReport{
		RunID:       uuid.NewString(),
		Engine:      s.engine.Name(),
		GeneratedAt: time.Now().UTC(),
		Columns:     make([]port.ColumnReport, 0, len(cols)),
	}

	for _, col := range cols {
		var bounds *domain.Range
		if r, ok := customRanges[col.Name]; ok {
			bounds = &r
		}

		cr, err := s.auditColumn(ctx, sess, report.RunID, col, bounds)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("auditing column %q: %w", col.Name, err)
		}
		report.Columns = append(report.Columns, cr)
	}

	durationMS := time.Since(start).Milliseconds()
	s.inst.RecordAuditDuration(ctx, float64(durationMS))

	s.logger.InfoContext(ctx, "audit complete",
		slog.String("run_id", report.RunID),
		slog.String("engine", report.Engine),
		slog.Int("columns", len(report.Columns)),
		slog.Int64("duration_ms", durationMS),
	)

	return report, nil
}

// auditColumn builds the fixed-shape record for one column: missing values
// always, numeric overview for integer/float columns, uniqueness when the
// heuristic qualifies the column.
func (s *AuditService) auditColumn(ctx context.Context, sess port.DatasetSession, runID string, col dataset.Column, custom *domain.Range) (port.ColumnReport, error) {
	cr := port.ColumnReport{
		Name:  col.Name,
		Dtype: string(col.Type),
	}

	mv, err := s.missingValues(ctx, sess, runID, col)
	if err != nil {
		return cr, err
	}
	cr.MissingValues = mv

	if col.Type == dataset.TypeInt || col.Type == dataset.TypeFloat {
		ov, err := s.numericOverview(ctx, sess, runID, col, custom)
		if err != nil {
			return cr, err
		}
		cr.NumericOverview = ov
	}

	if domain.NeedsUniquenessCheck(col.Name, col.Type) {
		u, err := s.uniqueness(ctx, sess, runID, col)
		if err != nil {
			return cr, err
		}
		cr.Uniqueness = u
	}

	return cr, nil
}

func (s *AuditService) missingValues(ctx context.Context, sess port.DatasetSession, runID string, col dataset.Column) (port.MissingValues, error) {
	var counts port.MissingCounts
	err := s.observe(ctx, runID, col.Name, checkMissingValues, func() error {
		var err error
		counts, err = sess.MissingCounts(ctx, col)
		return err
	})
	if err != nil {
		return port.MissingValues{}, err
	}
	return port.MissingValues{
		NMissing:   counts.Missing,
		PctMissing: domain.Percentage(counts.Missing, counts.Total),
	}, nil
}

func (s *AuditService) numericOverview(ctx context.Context, sess port.DatasetSession, runID string, col dataset.Column, custom *domain.Range) (*port.NumericOverview, error) {
	var overview port.NumericOverview

	err := s.observe(ctx, runID, col.Name, checkNumericOverview, func() error {
		base, err := sess.NumericBaseCounts(ctx, col)
		if err != nil {
			return err
		}
		overview = port.NumericOverview{
			TotalRows:  base.Total,
			NNonFinite: base.NonFinite,
			NNegative:  base.Negative,
		}

		var bounds domain.Range
		var method domain.ThresholdMethod
		if custom != nil {
			// A caller-supplied range short-circuits the quartile pass.
			bounds = *custom
			method = domain.MethodCustomRange
		} else {
			q1, q3, err := sess.Quartiles(ctx, col)
			if err != nil {
				return err
			}
			if q1 == nil || q3 == nil {
				// Column is entirely null or non-finite: base counts only,
				// no outlier block. Distinct from "zero outliers found".
				return nil
			}
			bounds = domain.TukeyFences(*q1, *q3)
			method = domain.MethodIQR
		}

		oc, err := sess.OutlierCounts(ctx, col, bounds)
		if err != nil {
			return err
		}
		overview.Outliers = &port.Outliers{
			Method:         method,
			LowerThreshold: bounds.Lower,
			UpperThreshold: bounds.Upper,
			NFiniteUsed:    oc.Finite,
			NBelowLower:    oc.BelowLower,
			NAboveUpper:    oc.AboveUpper,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &overview, nil
}

func (s *AuditService) uniqueness(ctx context.Context, sess port.DatasetSession, runID string, col dataset.Column) (*port.Uniqueness, error) {
	var counts port.UniquenessCounts
	err := s.observe(ctx, runID, col.Name, checkUniqueness, func() error {
		var err error
		counts, err = sess.UniquenessCounts(ctx, col)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &port.Uniqueness{
		NUnique:   counts.Distinct,
		PctUnique: domain.Percentage(counts.Distinct, counts.Total),
	}, nil
}

// observe times a check, records it to the audit sink and metrics, and
// returns the check's error unchanged.
func (s *AuditService) observe(ctx context.Context, runID, column, check string, f func() error) error {
	start := time.Now()
	err := f()
	durationMS := time.Since(start).Milliseconds()

	s.inst.RecordCheckDuration(ctx, float64(durationMS))
	if s.sink != nil {
		s.sink.Record(ctx, port.CheckEvent{
			RunID:      runID,
			Column:     column,
			Check:      check,
			DurationMS: durationMS,
			Err:        err,
		})
	}

	if err != nil {
		s.inst.IncrementCheckErrors(ctx)
		s.logger.WarnContext(ctx, "check failed",
			slog.String("column", column),
			slog.String("check", check),
			slog.String("error", err.Error()),
		)
		return err
	}
	s.inst.IncrementCheckCount(ctx)
	return nil
}
