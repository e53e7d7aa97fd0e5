// Package main provides the report generation entry point: renders
// Markdown and CSV reports for a stored run from ClickHouse.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"windfarm-finance-lab/internal/config"
	"windfarm-finance-lab/internal/registry"
	"windfarm-finance-lab/internal/reporting"
	chstore "windfarm-finance-lab/internal/storage/clickhouse"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	configPath := flag.String("config", "config.yaml", "Run configuration file")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	runID := flag.String("run-id", "", "Run identifier to report on")
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	flag.Parse()

	if *clickhouseDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --clickhouse-dsn is required")
		os.Exit(1)
	}
	if *runID == "" {
		fmt.Fprintln(os.Stderr, "Error: --run-id is required")
		os.Exit(1)
	}

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	reg, err := registry.Build(registry.Config{
		Metrics:   registry.BuiltinMetrics(cfg.Sources),
		Sources:   cfg.Sources,
		Financing: cfg.Financing.Domain(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building registry: %v\n", err)
		os.Exit(1)
	}

	conn, err := chstore.NewConn(ctx, *clickhouseDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to clickhouse: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	gen := reporting.NewGenerator(reg, chstore.NewMetricResultStore(conn), chstore.NewSensitivityCellStore(conn))
	report, err := gen.Generate(ctx, *runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}
	if report.MetricCount == 0 {
		fmt.Fprintf(os.Stderr, "No results found for run %s\n", *runID)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	files := map[string]string{
		"REPORT.md":       reporting.RenderMarkdown(report),
		"metrics.csv":     reporting.RenderCSV(report),
		"sensitivity.csv": reporting.RenderSensitivityCSV(report),
	}
	for name, content := range files {
		path := filepath.Join(*outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", path)
	}
}
