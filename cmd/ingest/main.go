// Package main provides the data ingestion entry point: loads scenario
// definitions and percentile series from YAML files into PostgreSQL.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"windfarm-finance-lab/internal/config"
	"windfarm-finance-lab/internal/observability"
	"windfarm-finance-lab/internal/storage"
	"windfarm-finance-lab/internal/storage/migrations"
	pgstore "windfarm-finance-lab/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	configPath := flag.String("config", "config.yaml", "Run configuration file")
	dataPath := flag.String("data", "data.yaml", "Raw data file (percentile series)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	skipMigrations := flag.Bool("skip-migrations", false, "Skip running schema migrations")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	data, err := config.LoadData(*dataPath)
	if err != nil {
		logger.Fatalf("Failed to load data: %v", err)
	}

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if !*skipMigrations {
		logger.Println("Running migrations...")
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("Migrations failed: %v", err)
		}
	}

	// Scenarios
	scenarioStore := pgstore.NewScenarioStore(pool)
	var scenariosInserted, scenariosSkipped int
	for _, named := range cfg.NamedScenarios() {
		err := scenarioStore.Insert(ctx, named)
		if errors.Is(err, storage.ErrDuplicateKey) {
			scenariosSkipped++
			continue
		}
		if err != nil {
			logger.Fatalf("Failed to insert scenario %s: %v", named.Name, err)
		}
		scenariosInserted++
		observability.RecordScenarioIngested()
	}
	logger.Printf("Scenarios: %d inserted, %d already present", scenariosInserted, scenariosSkipped)

	// Percentile series
	seriesStore := pgstore.NewPercentileSeriesStore(pool)
	var seriesInserted, seriesSkipped int
	for _, sourceID := range data.SourceIDs() {
		for percentile, series := range data.Series(sourceID) {
			err := seriesStore.InsertBulk(ctx, sourceID, percentile, series)
			if errors.Is(err, storage.ErrDuplicateKey) {
				seriesSkipped++
				continue
			}
			if err != nil {
				logger.Fatalf("Failed to insert series %s/P%v: %v", sourceID, percentile, err)
			}
			seriesInserted++
			observability.RecordSeriesIngested()
		}
	}
	logger.Printf("Percentile series: %d inserted, %d already present", seriesInserted, seriesSkipped)

	logger.Println("Ingestion complete")
}
