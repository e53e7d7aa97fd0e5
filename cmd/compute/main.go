// Package main provides the one-shot computation entry point.
// Executes: load data → scenarios → metrics → sensitivity → reports.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"windfarm-finance-lab/internal/config"
	"windfarm-finance-lab/internal/orchestrator"
	"windfarm-finance-lab/internal/registry"
	"windfarm-finance-lab/internal/reporting"
	"windfarm-finance-lab/internal/storage"
	"windfarm-finance-lab/internal/storage/memory"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags
	configPath := flag.String("config", "config.yaml", "Run configuration file")
	dataPath := flag.String("data", "data.yaml", "Raw data file (percentile series, contracts, repairs)")
	outputDir := flag.String("output-dir", "output", "Output directory for generated reports")
	parallelism := flag.Int("parallelism", 4, "Concurrent scenario passes")
	skipSensitivity := flag.Bool("skip-sensitivity", false, "Skip the sensitivity phase")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling run...\n", sig)
		cancel()
	}()

	// Load configuration and raw data
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	data, err := config.LoadData(*dataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading data: %v\n", err)
		os.Exit(1)
	}

	// Build the metric registry
	reg, err := registry.Build(registry.Config{
		Metrics:   registry.BuiltinMetrics(cfg.Sources),
		Sources:   cfg.Sources,
		Financing: cfg.Financing.Domain(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building registry: %v\n", err)
		os.Exit(1)
	}

	// Seed in-memory stores from the data file
	seriesStore := memory.NewPercentileSeriesStore()
	if err := seedSeries(ctx, seriesStore, data); err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding data: %v\n", err)
		os.Exit(1)
	}

	// Run the pipeline
	fmt.Println("=== Computation Run ===")
	orch := orchestrator.New(orchestrator.Options{
		PercentileSeriesStore: seriesStore,
		MetricResultStore:     memory.NewMetricResultStore(),
		SensitivityCellStore:  memory.NewSensitivityCellStore(),
		Registry:              reg,
		Scenarios:             cfg.DomainScenarios(),
		BaseDocument:          data.BaseDocument(),
		Variables:             cfg.Sensitivity.Variables,
		TargetMetrics:         cfg.Sensitivity.Targets,
		BaselinePercentile:    cfg.Sensitivity.BaselinePercentile,
		Percentiles:           cfg.Sensitivity.Percentiles,
		Parallelism:           *parallelism,
		SkipSensitivity:       *skipSensitivity,
		Verbose:               *verbose,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Run error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Run completed:\n")
	fmt.Printf("  Run ID: %s\n", result.RunID)
	fmt.Printf("  Scenarios: %d\n", result.ScenariosProcessed)
	fmt.Printf("  Result rows: %d\n", result.ResultRowsStored)
	fmt.Printf("  Sensitivity cells: %d\n", result.CellRowsStored)
	if len(result.Errors) > 0 {
		fmt.Printf("  Metric failures: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}

	// Write reports
	if err := writeReports(*outputDir, result.Report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing reports: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Reports written to %s\n", *outputDir)
}

// seedSeries loads every percentile series from the data file into the store.
func seedSeries(ctx context.Context, store storage.PercentileSeriesStore, data *config.DataFile) error {
	for _, sourceID := range data.SourceIDs() {
		for percentile, series := range data.Series(sourceID) {
			err := store.InsertBulk(ctx, sourceID, percentile, series)
			if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				return fmt.Errorf("seed %s/P%v: %w", sourceID, percentile, err)
			}
		}
	}
	return nil
}

// writeReports renders the report as Markdown and CSV files.
func writeReports(dir string, report *reporting.Report) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	files := map[string]string{
		"REPORT.md":       reporting.RenderMarkdown(report),
		"metrics.csv":     reporting.RenderCSV(report),
		"sensitivity.csv": reporting.RenderSensitivityCSV(report),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}
