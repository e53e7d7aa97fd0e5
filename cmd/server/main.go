// Package main provides the unified service that runs all components together:
// - Scheduled recomputation: load data → metrics → sensitivity → persist
// - Live updates: websocket broadcast of stage transitions and results
// - Reporting: Markdown/CSV snapshots of the latest run
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"windfarm-finance-lab/internal/accessor"
	"windfarm-finance-lab/internal/config"
	"windfarm-finance-lab/internal/observability"
	"windfarm-finance-lab/internal/orchestrator"
	"windfarm-finance-lab/internal/registry"
	"windfarm-finance-lab/internal/reporting"
	"windfarm-finance-lab/internal/storage"
	chstore "windfarm-finance-lab/internal/storage/clickhouse"
	"windfarm-finance-lab/internal/storage/memory"
	"windfarm-finance-lab/internal/storage/migrations"
	pgstore "windfarm-finance-lab/internal/storage/postgres"
	"windfarm-finance-lab/internal/stream"
)

// Server holds all components of the unified service.
type Server struct {
	// Configuration
	cfg             *config.File
	registry        *registry.Registry
	dataPath        string
	outputDir       string
	computeInterval time.Duration
	parallelism     int
	verbose         bool

	// Stores
	stores *allStores

	// Components
	hub    *stream.Hub
	logger *log.Logger

	// State
	mu             sync.Mutex
	computeRunning bool
	lastRun        time.Time
	lastRunID      string
	lastReport     *reporting.Report
	computeRuns    int
	refreshCh      chan struct{}
}

// allStores holds all storage implementations.
type allStores struct {
	scenarioStore         storage.ScenarioStore
	percentileSeriesStore storage.PercentileSeriesStore
	metricResultStore     storage.MetricResultStore
	sensitivityCellStore  storage.SensitivityCellStore
}

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	configPath := flag.String("config", "config.yaml", "Run configuration file")
	dataPath := flag.String("data", "data.yaml", "Raw data file for transformer inputs")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	computeInterval := flag.Duration("compute-interval", 1*time.Hour, "Recomputation interval")
	parallelism := flag.Int("parallelism", 4, "Concurrent scenario passes")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	reg, err := registry.Build(registry.Config{
		Metrics:   registry.BuiltinMetrics(cfg.Sources),
		Sources:   cfg.Sources,
		Financing: cfg.Financing.Domain(),
	})
	if err != nil {
		logger.Fatalf("Failed to build registry: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Create server
	server := &Server{
		cfg:             cfg,
		registry:        reg,
		dataPath:        *dataPath,
		outputDir:       *outputDir,
		computeInterval: *computeInterval,
		parallelism:     *parallelism,
		verbose:         *verbose,
		stores:          stores,
		hub:             stream.NewHub(),
		logger:          logger,
		refreshCh:       make(chan struct{}, 1),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*addr)

	// Run the compute scheduler
	err = server.Run(ctx)
	done <- err
	cancel()

	server.hub.Close()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			scenarioStore:         memory.NewScenarioStore(),
			percentileSeriesStore: memory.NewPercentileSeriesStore(),
			metricResultStore:     memory.NewMetricResultStore(),
			sensitivityCellStore:  memory.NewSensitivityCellStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		// PostgreSQL stores (scenario and source data)
		scenarioStore:         pgstore.NewScenarioStore(pool),
		percentileSeriesStore: pgstore.NewPercentileSeriesStore(pool),

		// ClickHouse stores (analytics)
		metricResultStore:    chstore.NewMetricResultStore(chConn),
		sensitivityCellStore: chstore.NewSensitivityCellStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// Run starts the compute scheduler: one run at startup, then on every
// tick or refresh request.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Printf("Starting compute scheduler (interval: %v)...", s.computeInterval)

	// Run immediately on start
	s.runCompute(ctx)

	ticker := time.NewTicker(s.computeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runCompute(ctx)
		case <-s.refreshCh:
			s.runCompute(ctx)
		}
	}
}

// runCompute executes one full computation run.
func (s *Server) runCompute(ctx context.Context) {
	s.mu.Lock()
	if s.computeRunning {
		s.mu.Unlock()
		s.logger.Println("Computation already running, skipping...")
		return
	}
	s.computeRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.computeRunning = false
		s.lastRun = time.Now()
		s.computeRuns++
		s.mu.Unlock()
	}()

	s.logger.Println("Running computation...")
	start := time.Now()

	baseDoc, err := s.loadBaseDocument()
	if err != nil {
		s.logger.Printf("Computation error: %v", err)
		return
	}

	orch := orchestrator.New(orchestrator.Options{
		ScenarioStore:         s.stores.scenarioStore,
		PercentileSeriesStore: s.stores.percentileSeriesStore,
		MetricResultStore:     s.stores.metricResultStore,
		SensitivityCellStore:  s.stores.sensitivityCellStore,
		Registry:              s.registry,
		Scenarios:             s.cfg.DomainScenarios(),
		BaseDocument:          baseDoc,
		Variables:             s.cfg.Sensitivity.Variables,
		TargetMetrics:         s.cfg.Sensitivity.Targets,
		BaselinePercentile:    s.cfg.Sensitivity.BaselinePercentile,
		Percentiles:           s.cfg.Sensitivity.Percentiles,
		Parallelism:           s.parallelism,
		Verbose:               s.verbose,
		Hub:                   s.hub,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		s.logger.Printf("Computation error: %v", err)
		return
	}

	s.mu.Lock()
	s.lastRunID = result.RunID
	s.lastReport = result.Report
	s.mu.Unlock()

	if err := s.writeReports(result.Report); err != nil {
		s.logger.Printf("Report write error: %v", err)
	}

	s.logger.Printf("Computation completed in %v: run %s, %d scenarios, %d result rows, %d cells",
		time.Since(start), result.RunID, result.ScenariosProcessed, result.ResultRowsStored, result.CellRowsStored)
}

// loadBaseDocument loads transformer inputs from the data file when one
// exists; percentile series come from the store.
func (s *Server) loadBaseDocument() (accessor.Document, error) {
	if s.dataPath == "" {
		return nil, nil
	}
	if _, statErr := os.Stat(s.dataPath); statErr != nil {
		return nil, nil
	}
	data, err := config.LoadData(s.dataPath)
	if err != nil {
		return nil, err
	}
	return data.BaseDocument(), nil
}

// writeReports renders the latest run's reports to the output directory.
func (s *Server) writeReports(report *reporting.Report) error {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return err
	}
	files := map[string]string{
		"REPORT.md":       reporting.RenderMarkdown(report),
		"metrics.csv":     reporting.RenderCSV(report),
		"sensitivity.csv": reporting.RenderSensitivityCSV(report),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(s.outputDir, name), []byte(content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// startHTTPServer serves the websocket stream, health and status endpoints.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.hub)
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/refresh", s.handleRefresh)
	mux.HandleFunc("/report", s.handleReport)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := map[string]any{
		"compute_running":  s.computeRunning,
		"compute_runs":     s.computeRuns,
		"last_run":         s.lastRun,
		"last_run_id":      s.lastRunID,
		"stream_clients":   s.hub.ClientCount(),
		"compute_interval": s.computeInterval.String(),
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	select {
	case s.refreshCh <- struct{}{}:
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("refresh scheduled"))
	default:
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("refresh already pending"))
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	report := s.lastReport
	s.mu.Unlock()

	if report == nil {
		http.Error(w, "no completed run yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(reporting.RenderMarkdown(report)))
}
