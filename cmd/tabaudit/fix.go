package main

import (
	"github.com/spf13/cobra"

	"tabaudit/internal/adapter"
	"tabaudit/internal/core/service"
	"tabaudit/internal/dataset"
)

var (
	fixFlagSchema string
	fixFlagOutput string
)

var fixCmd = &cobra.Command{
	Use:   "fix <data.csv>",
	Short: "Run the engine's repair pass over a CSV dataset",
	Long: "Run the engine's repair pass and write the result as CSV.\n" +
		"The sqlite engine currently passes data through unchanged; engines\nwithout repair logic fail explicitly.",
	Args: cobra.ExactArgs(1),
	RunE: runFix,
}

func init() {
	fixCmd.Flags().StringVar(&fixFlagSchema, "schema", "", "schema YAML declaring each column's type (required)")
	fixCmd.Flags().StringVarP(&fixFlagOutput, "output", "o", "", "write the fixed CSV to a file instead of stdout")
	_ = fixCmd.MarkFlagRequired("schema")
}

func runFix(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ds, err := dataset.ReadCSVFile(args[0], fixFlagSchema)
	if err != nil {
		return err
	}

	engine, err := adapter.NewEngine(ctx, cfg.Engine, cfg)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	svc := service.NewFixService(engine, logger)
	fixed, err := svc.Fix(ctx, ds)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(fixFlagOutput)
	if err != nil {
		return err
	}
	defer closeOut()

	return dataset.WriteCSV(out, fixed)
}
