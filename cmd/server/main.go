package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/agflows/esr-dashboard/pkg/hcl"
	"github.com/agflows/esr-dashboard/pkg/http"
	"github.com/agflows/esr-dashboard/pkg/temporal"
	"github.com/agflows/esr-dashboard/pkg/usda"
)

func main() {
	var (
		httpAddr     = flag.String("http-addr", ":8080", "HTTP server address")
		temporalAddr = flag.String("temporal-addr", "localhost:7233", "Temporal server address")
		namespace    = flag.String("namespace", "default", "Temporal namespace")
		taskQueue    = flag.String("task-queue", temporal.TaskQueue, "Temporal task queue")
		configPath   = flag.String("config", "config/commodities.hcl", "Commodity configuration file")
		countryCodes = flag.String("country-codes", "", "Path to the FAS country codes workbook (optional)")
		logLevel     = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	// Setup logger
	var logHandler slog.Handler
	switch *logLevel {
	case "debug":
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	case "warn":
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})
	case "error":
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	default:
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	apiKey := os.Getenv("USDA_API_KEY")
	if apiKey == "" {
		logger.Error("USDA_API_KEY environment variable is required")
		os.Exit(1)
	}

	cfg, err := hcl.LoadConfig(*configPath)
	if err != nil {
		logger.Error("Failed to load commodity configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}

	logger.Info("Starting ESR dashboard service",
		"http_addr", *httpAddr,
		"temporal_addr", *temporalAddr,
		"namespace", *namespace,
		"task_queue", *taskQueue,
		"commodities", cfg.Names(),
	)

	// Country names are optional, without them rows keep numeric codes only
	var countries map[int]string
	if *countryCodes != "" {
		countries, err = usda.LoadCountryCodes(*countryCodes)
		if err != nil {
			logger.Error("Failed to load country codes", "path", *countryCodes, "error", err)
			os.Exit(1)
		}
		logger.Info("Loaded country codes", "count", len(countries))
	}

	// Create Temporal client
	temporalClient, err := client.Dial(client.Options{
		HostPort:  *temporalAddr,
		Namespace: *namespace,
	})
	if err != nil {
		logger.Error("Failed to create Temporal client", "error", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	fetcher := usda.NewClient(logger, usda.DefaultBaseURL, apiKey, countries)
	store := temporal.NewMemorySnapshotStore()
	activities := temporal.NewActivitiesImpl(logger, fetcher, store)

	// Create and start Temporal worker
	w := worker.New(temporalClient, *taskQueue, worker.Options{})

	// Register workflows
	w.RegisterWorkflow(temporal.RefreshWorkflow)
	w.RegisterWorkflow(temporal.DashboardWorkflow)

	// Register activities
	w.RegisterActivity(activities.FetchYearActivity)
	w.RegisterActivity(activities.FetchWASDEActivity)
	w.RegisterActivity(activities.StoreSnapshotActivity)
	w.RegisterActivity(activities.LoadSnapshotActivity)
	w.RegisterActivity(activities.BuildSummaryActivity)
	w.RegisterActivity(activities.BuildSeasonalActivity)

	// Start worker in background
	go func() {
		logger.Info("Starting Temporal worker", "task_queue", *taskQueue)
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Error("Temporal worker failed", "error", err)
			os.Exit(1)
		}
	}()

	// Create and start HTTP server
	server := http.NewServer(logger, temporalClient, cfg, *httpAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start server in background
	go func() {
		if err := server.Start(ctx); err != nil {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info("Received shutdown signal, stopping services...")

	// Cancel context to stop HTTP server
	cancel()

	logger.Info("ESR dashboard service stopped")
}
