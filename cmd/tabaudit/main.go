package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tabaudit/internal/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "tabaudit",
	Short:         "Audit tabular datasets for data-quality issues",
	Long:          "tabaudit computes a per-column diagnostic report for a CSV dataset:\nmissing values, numeric-distribution anomalies and uniqueness.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Persistent flag values. Load distinguishes "not set" via cmd.Flags().Changed.
var (
	flagEngine       string
	flagDatabaseURL  string
	flagQueryTimeout time.Duration
	flagLogLevel     string
	flagOTel         bool
	flagAuditLog     string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagEngine, "engine", "", "analytical backend (default: sqlite; overrides TABAUDIT_ENGINE)")
	pf.StringVar(&flagDatabaseURL, "database-url", "", "connection URL for the postgres engine (overrides DATABASE_URL)")
	pf.DurationVar(&flagQueryTimeout, "query-timeout", 0, "per-query timeout (overrides QUERY_TIMEOUT)")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	pf.BoolVar(&flagOTel, "otel", false, "enable OpenTelemetry tracing and metrics")
	pf.StringVar(&flagAuditLog, "audit-log", "", "path to NDJSON audit trail file")

	rootCmd.AddCommand(checkCmd, fixCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tabaudit version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig builds the config from env vars plus any flags that were
// explicitly set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var o config.Overrides
	if cmd.Flags().Changed("engine") {
		o.Engine = &flagEngine
	}
	if cmd.Flags().Changed("database-url") {
		o.DatabaseURL = &flagDatabaseURL
	}
	if cmd.Flags().Changed("query-timeout") {
		o.QueryTimeout = &flagQueryTimeout
	}
	if cmd.Flags().Changed("log-level") {
		o.LogLevel = &flagLogLevel
	}
	o.OTelEnabled = flagOTel
	o.AuditLog = flagAuditLog

	cfg, err := config.Load(o)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the JSON logger. Logs go to stderr — stdout is reserved
// for report and data output.
func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
}
