package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "tabaudit"

// Instruments holds pre-created OTel metric instruments.
type Instruments struct {
	CheckCount    metric.Int64Counter
	CheckDuration metric.Float64Histogram
	CheckErrors   metric.Int64Counter
	AuditDuration metric.Float64Histogram
}

// NewInstruments creates metric instruments from the global MeterProvider.
func NewInstruments() *Instruments {
	meter := otel.Meter(meterName)
	return newInstrumentsFromMeter(meter)
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	meter := noop.NewMeterProvider().Meter(meterName)
	return newInstrumentsFromMeter(meter)
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// OTel SDK returns noop instruments on error; safe to discard.
	checkCount, _ := meter.Int64Counter("tabaudit.check.count",
		metric.WithDescription("Total number of per-column checks executed"),
	)
	checkDuration, _ := meter.Float64Histogram("tabaudit.check.duration",
		metric.WithDescription("Per-column check duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	checkErrors, _ := meter.Int64Counter("tabaudit.check.errors",
		metric.WithDescription("Total number of failed per-column checks"),
	)
	auditDuration, _ := meter.Float64Histogram("tabaudit.audit.duration",
		metric.WithDescription("Whole-audit duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		CheckCount:    checkCount,
		CheckDuration: checkDuration,
		CheckErrors:   checkErrors,
		AuditDuration: auditDuration,
	}
}

func (i *Instruments) RecordCheckDuration(ctx context.Context, ms float64) {
	i.CheckDuration.Record(ctx, ms)
}

func (i *Instruments) IncrementCheckCount(ctx context.Context) {
	i.CheckCount.Add(ctx, 1)
}

func (i *Instruments) IncrementCheckErrors(ctx context.Context) {
	i.CheckErrors.Add(ctx, 1)
}

func (i *Instruments) RecordAuditDuration(ctx context.Context, ms float64) {
	i.AuditDuration.Record(ctx, ms)
}
