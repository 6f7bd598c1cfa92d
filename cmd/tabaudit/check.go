package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"tabaudit/internal/adapter"
	"tabaudit/internal/audit"
	"tabaudit/internal/config"
	"tabaudit/internal/core/domain"
	"tabaudit/internal/core/port"
	"tabaudit/internal/core/service"
	"tabaudit/internal/dataset"
	"tabaudit/internal/report"
	"tabaudit/internal/telemetry"
)

var (
	flagSchema string
	flagRanges string
	flagFormat string
	flagOutput string
)

var checkCmd = &cobra.Command{
	Use:   "check <data.csv>",
	Short: "Audit a CSV dataset and print the diagnostic report",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&flagSchema, "schema", "", "schema YAML declaring each column's type (required)")
	checkCmd.Flags().StringVar(&flagRanges, "ranges", "", "YAML file of per-column numeric range overrides")
	checkCmd.Flags().StringVar(&flagFormat, "format", "yaml", "report format: yaml or json")
	checkCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write the report to a file instead of stdout")
	_ = checkCmd.MarkFlagRequired("schema")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if flagFormat != "yaml" && flagFormat != "json" {
		return fmt.Errorf("invalid --format value %q: must be yaml or json", flagFormat)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.RangesFile = flagRanges
	logger := newLogger(cfg)

	tracer, inst, shutdown, err := setupTelemetry(cmd, cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	ds, err := dataset.ReadCSVFile(args[0], flagSchema)
	if err != nil {
		return err
	}

	var ranges map[string]domain.Range
	if cfg.RangesFile != "" {
		ranges, err = config.LoadRanges(cfg.RangesFile)
		if err != nil {
			return err
		}
	}

	engine, err := adapter.NewEngine(ctx, cfg.Engine, cfg)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	sink, err := newSink(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = sink.Close() }()

	svc := service.NewAuditService(engine, sink, logger, tracer, inst)
	rep, err := svc.Audit(ctx, ds, ranges)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(flagOutput)
	if err != nil {
		return err
	}
	defer closeOut()

	if flagFormat == "json" {
		return report.EncodeJSON(out, rep)
	}
	return report.EncodeYAML(out, rep)
}

func setupTelemetry(cmd *cobra.Command, cfg *config.Config) (trace.Tracer, port.Instrumentation, func(), error) {
	if !cfg.OTelEnabled {
		return telemetry.NoopTracer(), telemetry.NoopInstruments(), func() {}, nil
	}

	provider, err := telemetry.Init(cmd.Context(), "tabaudit", version)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	shutdown := func() { _ = provider.Shutdown(cmd.Context()) }
	return otel.Tracer("tabaudit"), telemetry.NewInstruments(), shutdown, nil
}

func newSink(cfg *config.Config) (port.AuditSink, error) {
	if cfg.AuditLog == "" {
		return audit.NoopSink{}, nil
	}
	sink, err := audit.NewFileSink(cfg.AuditLog)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return sink, nil
}

func closeEngine(engine port.Engine) {
	if closer, ok := engine.(interface{ Close() }); ok {
		closer.Close()
	}
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
