package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabaudit/internal/core/domain"
	"tabaudit/internal/core/port"
	"tabaudit/internal/dataset"
)

// fakeSession answers diagnostic queries from canned per-column data and
// records which queries ran.
type fakeSession struct {
	missing   map[string]port.MissingCounts
	base      map[string]port.NumericBaseCounts
	quartiles map[string][2]*float64
	outliers  map[string]port.OutlierCounts
	unique    map[string]port.UniquenessCounts

	failCheck  string // column name whose first query fails
	calls      []string
	closed     bool
	lastBounds domain.Range
}

func (s *fakeSession) MissingCounts(_ context.Context, col dataset.Column) (port.MissingCounts, error) {
	s.calls = append(s.calls, "missing:"+col.Name)
	if s.failCheck == col.Name {
		return port.MissingCounts{}, errors.New("boom")
	}
	return s.missing[col.Name], nil
}

func (s *fakeSession) NumericBaseCounts(_ context.Context, col dataset.Column) (port.NumericBaseCounts, error) {
	s.calls = append(s.calls, "base:"+col.Name)
	return s.base[col.Name], nil
}

func (s *fakeSession) Quartiles(_ context.Context, col dataset.Column) (*float64, *float64, error) {
	s.calls = append(s.calls, "quartiles:"+col.Name)
	q := s.quartiles[col.Name]
	return q[0], q[1], nil
}

func (s *fakeSession) OutlierCounts(_ context.Context, col dataset.Column, bounds domain.Range) (port.OutlierCounts, error) {
	s.calls = append(s.calls, "outliers:"+col.Name)
	s.lastBounds = bounds
	return s.outliers[col.Name], nil
}

func (s *fakeSession) UniquenessCounts(_ context.Context, col dataset.Column) (port.UniquenessCounts, error) {
	s.calls = append(s.calls, "unique:"+col.Name)
	return s.unique[col.Name], nil
}

func (s *fakeSession) Close(context.Context) error {
	s.closed = true
	return nil
}

type fakeEngine struct {
	sess    *fakeSession
	openErr error
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Open(context.Context, *dataset.Dataset) (port.DatasetSession, error) {
	if e.openErr != nil {
		return nil, e.openErr
	}
	return e.sess, nil
}

func (e *fakeEngine) Fix(_ context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
	return ds, nil
}

// recordingSink keeps every check event in memory.
type recordingSink struct {
	events []port.CheckEvent
}

func (s *recordingSink) Record(_ context.Context, ev port.CheckEvent) {
	s.events = append(s.events, ev)
}

func (s *recordingSink) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDataset(t *testing.T, cols ...dataset.Column) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(cols)
	require.NoError(t, err)
	return ds
}

func f64(v float64) *float64 { return &v }

func TestAuditService_Audit(t *testing.T) {
	t.Parallel()

	t.Run("assembles report in column order", func(t *testing.T) {
		t.Parallel()
		ds := testDataset(t,
			dataset.Column{Name: "user_id", Type: dataset.TypeInt},
			dataset.Column{Name: "amount", Type: dataset.TypeFloat},
			dataset.Column{Name: "comment", Type: dataset.TypeString},
			dataset.Column{Name: "active", Type: dataset.TypeBool},
		)
		sess := &fakeSession{
			missing: map[string]port.MissingCounts{
				"user_id": {Total: 6, Missing: 0},
				"amount":  {Total: 6, Missing: 1},
				"comment": {Total: 6, Missing: 2},
				"active":  {Total: 6, Missing: 0},
			},
			base: map[string]port.NumericBaseCounts{
				"user_id": {Total: 6},
				"amount":  {Total: 6, NonFinite: 1, Negative: 2},
			},
			quartiles: map[string][2]*float64{
				"user_id": {f64(2.25), f64(4.75)},
				"amount":  {f64(-1), f64(3)},
			},
			outliers: map[string]port.OutlierCounts{
				"user_id": {Finite: 6, AboveUpper: 1},
				"amount":  {Finite: 5, BelowLower: 1},
			},
			unique: map[string]port.UniquenessCounts{
				"user_id": {Total: 6, Distinct: 6},
				"comment": {Total: 6, Distinct: 3},
			},
		}
		svc := NewAuditService(&fakeEngine{sess: sess}, &recordingSink{}, discardLogger(), nil, nil)

		rep, err := svc.Audit(context.Background(), ds, nil)
		require.NoError(t, err)

		require.Len(t, rep.Columns, 4)
		assert.Equal(t, []string{"user_id", "amount", "comment", "active"},
			[]string{rep.Columns[0].Name, rep.Columns[1].Name, rep.Columns[2].Name, rep.Columns[3].Name})
		assert.Equal(t, "fake", rep.Engine)
		assert.NotEmpty(t, rep.RunID)
		assert.True(t, sess.closed)

		id := rep.Column("user_id")
		require.NotNil(t, id)
		assert.Equal(t, "integer", id.Dtype)
		require.NotNil(t, id.NumericOverview)
		require.NotNil(t, id.NumericOverview.Outliers)
		assert.Equal(t, domain.MethodIQR, id.NumericOverview.Outliers.Method)
		assert.InDelta(t, -1.5, id.NumericOverview.Outliers.LowerThreshold, 1e-9)
		assert.InDelta(t, 8.5, id.NumericOverview.Outliers.UpperThreshold, 1e-9)
		require.NotNil(t, id.Uniqueness)
		assert.Equal(t, int64(6), id.Uniqueness.NUnique)
		assert.Equal(t, 100.0, id.Uniqueness.PctUnique)

		amount := rep.Column("amount")
		require.NotNil(t, amount)
		assert.Equal(t, int64(1), amount.MissingValues.NMissing)
		assert.Equal(t, 16.67, amount.MissingValues.PctMissing)
		require.NotNil(t, amount.NumericOverview)
		assert.Equal(t, int64(1), amount.NumericOverview.NNonFinite)
		assert.Nil(t, amount.Uniqueness, "no id in name, not a string")

		comment := rep.Column("comment")
		require.NotNil(t, comment)
		assert.Nil(t, comment.NumericOverview, "strings get no numeric overview")
		require.NotNil(t, comment.Uniqueness)

		active := rep.Column("active")
		require.NotNil(t, active)
		assert.Nil(t, active.NumericOverview)
		assert.Nil(t, active.Uniqueness)
	})

	t.Run("custom range skips quartile pass", func(t *testing.T) {
		t.Parallel()
		ds := testDataset(t, dataset.Column{Name: "amount", Type: dataset.TypeFloat})
		sess := &fakeSession{
			missing:  map[string]port.MissingCounts{"amount": {Total: 3}},
			base:     map[string]port.NumericBaseCounts{"amount": {Total: 3}},
			outliers: map[string]port.OutlierCounts{"amount": {Finite: 3, AboveUpper: 2}},
		}
		svc := NewAuditService(&fakeEngine{sess: sess}, &recordingSink{}, discardLogger(), nil, nil)

		ranges := map[string]domain.Range{"amount": {Lower: 0, Upper: 10}}
		rep, err := svc.Audit(context.Background(), ds, ranges)
		require.NoError(t, err)

		assert.NotContains(t, sess.calls, "quartiles:amount")
		assert.Equal(t, domain.Range{Lower: 0, Upper: 10}, sess.lastBounds)

		out := rep.Column("amount").NumericOverview.Outliers
		require.NotNil(t, out)
		assert.Equal(t, domain.MethodCustomRange, out.Method)
		assert.Equal(t, 0.0, out.LowerThreshold)
		assert.Equal(t, 10.0, out.UpperThreshold)
	})

	t.Run("no finite values leaves outliers nil", func(t *testing.T) {
		t.Parallel()
		ds := testDataset(t, dataset.Column{Name: "amount", Type: dataset.TypeFloat})
		sess := &fakeSession{
			missing:   map[string]port.MissingCounts{"amount": {Total: 4, Missing: 4}},
			base:      map[string]port.NumericBaseCounts{"amount": {Total: 4}},
			quartiles: map[string][2]*float64{"amount": {nil, nil}},
		}
		svc := NewAuditService(&fakeEngine{sess: sess}, &recordingSink{}, discardLogger(), nil, nil)

		rep, err := svc.Audit(context.Background(), ds, nil)
		require.NoError(t, err)

		ov := rep.Column("amount").NumericOverview
		require.NotNil(t, ov, "base counts still reported")
		assert.Equal(t, int64(4), ov.TotalRows)
		assert.Nil(t, ov.Outliers, "undefined quartiles must not look like zero outliers")
		assert.NotContains(t, sess.calls, "outliers:amount")
	})

	t.Run("column failure aborts whole audit", func(t *testing.T) {
		t.Parallel()
		ds := testDataset(t,
			dataset.Column{Name: "a", Type: dataset.TypeBool},
			dataset.Column{Name: "b", Type: dataset.TypeBool},
			dataset.Column{Name: "c", Type: dataset.TypeBool},
		)
		sess := &fakeSession{failCheck: "b"}
		svc := NewAuditService(&fakeEngine{sess: sess}, &recordingSink{}, discardLogger(), nil, nil)

		rep, err := svc.Audit(context.Background(), ds, nil)
		require.Error(t, err)
		assert.Nil(t, rep, "no partial report")
		assert.ErrorContains(t, err, `auditing column "b"`)
		assert.NotContains(t, sess.calls, "missing:c", "audit stops at the failing column")
		assert.True(t, sess.closed)
	})

	t.Run("open failure", func(t *testing.T) {
		t.Parallel()
		ds := testDataset(t, dataset.Column{Name: "a", Type: dataset.TypeBool})
		svc := NewAuditService(&fakeEngine{openErr: errors.New("no backend")}, &recordingSink{}, discardLogger(), nil, nil)

		_, err := svc.Audit(context.Background(), ds, nil)
		assert.ErrorContains(t, err, "opening fake session")
	})

	t.Run("column payload is deterministic across runs", func(t *testing.T) {
		t.Parallel()
		ds := testDataset(t,
			dataset.Column{Name: "order_id", Type: dataset.TypeInt},
			dataset.Column{Name: "note", Type: dataset.TypeString},
		)
		newSess := func() *fakeSession {
			return &fakeSession{
				missing: map[string]port.MissingCounts{
					"order_id": {Total: 3},
					"note":     {Total: 3, Missing: 1},
				},
				base:      map[string]port.NumericBaseCounts{"order_id": {Total: 3}},
				quartiles: map[string][2]*float64{"order_id": {f64(1), f64(3)}},
				outliers:  map[string]port.OutlierCounts{"order_id": {Finite: 3}},
				unique: map[string]port.UniquenessCounts{
					"order_id": {Total: 3, Distinct: 3},
					"note":     {Total: 3, Distinct: 2},
				},
			}
		}

		svc1 := NewAuditService(&fakeEngine{sess: newSess()}, &recordingSink{}, discardLogger(), nil, nil)
		svc2 := NewAuditService(&fakeEngine{sess: newSess()}, &recordingSink{}, discardLogger(), nil, nil)

		rep1, err := svc1.Audit(context.Background(), ds, nil)
		require.NoError(t, err)
		rep2, err := svc2.Audit(context.Background(), ds, nil)
		require.NoError(t, err)

		assert.NotEqual(t, rep1.RunID, rep2.RunID)
		assert.Equal(t, rep1.Columns, rep2.Columns)
	})

	t.Run("records events to the audit sink", func(t *testing.T) {
		t.Parallel()
		ds := testDataset(t, dataset.Column{Name: "session_id", Type: dataset.TypeString})
		sess := &fakeSession{
			missing: map[string]port.MissingCounts{"session_id": {Total: 2}},
			unique:  map[string]port.UniquenessCounts{"session_id": {Total: 2, Distinct: 2}},
		}
		sink := &recordingSink{}
		svc := NewAuditService(&fakeEngine{sess: sess}, sink, discardLogger(), nil, nil)

		rep, err := svc.Audit(context.Background(), ds, nil)
		require.NoError(t, err)

		require.Len(t, sink.events, 2)
		assert.Equal(t, "missing_values", sink.events[0].Check)
		assert.Equal(t, "uniqueness", sink.events[1].Check)
		for _, ev := range sink.events {
			assert.Equal(t, rep.RunID, ev.RunID)
			assert.Equal(t, "session_id", ev.Column)
			assert.NoError(t, ev.Err)
		}
	})
}
