package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/agflows/esr-dashboard/pkg/esr"
	"github.com/agflows/esr-dashboard/pkg/hcl"
	"github.com/agflows/esr-dashboard/pkg/temporal"
)

func main() {
	// Set up logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Define command line flags
	var (
		configPath  string
		address     string
		namespace   string
		commodity   string
		measure     string
		weekEnding  string
		lookback    int
		topN        int
		displayJSON bool
		mode        string // "refresh" or "dashboard"
	)

	flag.StringVar(&configPath, "config", "config/commodities.hcl", "Path to commodity HCL configuration")
	flag.StringVar(&address, "address", "localhost:7233", "Address of Temporal server")
	flag.StringVar(&namespace, "namespace", "default", "Temporal namespace")
	flag.StringVar(&commodity, "commodity", "", "Commodity name from the configuration (required)")
	flag.StringVar(&measure, "measure", esr.MeasureAccumulatedExports, "Measure for the seasonal view")
	flag.StringVar(&weekEnding, "week-ending", "", "Summary week ending date (YYYY-MM-DD, empty means latest)")
	flag.IntVar(&lookback, "lookback", 0, "Prior marketing years to include (0 uses the configured value)")
	flag.IntVar(&topN, "top-n", 0, "Number of commitment rows to keep (0 uses the default)")
	flag.BoolVar(&displayJSON, "json", false, "Display results as JSON")
	flag.StringVar(&mode, "mode", "dashboard", "Operation mode: 'refresh' or 'dashboard'")
	flag.Parse()

	// Validate required parameters
	if commodity == "" {
		logger.Error("Commodity parameter is required")
		flag.Usage()
		os.Exit(1)
	}

	if mode != "refresh" && mode != "dashboard" {
		logger.Error("Mode must be either 'refresh' or 'dashboard'")
		os.Exit(1)
	}

	cfg, err := hcl.LoadConfig(configPath)
	if err != nil {
		logger.Error("Failed to load configuration", "path", configPath, "error", err)
		os.Exit(1)
	}

	cmd, ok := cfg.Commodity(commodity)
	if !ok {
		logger.Error("Unknown commodity", "commodity", commodity, "known", cfg.Names())
		os.Exit(1)
	}

	// Create Temporal client
	c, err := client.Dial(client.Options{
		HostPort:  address,
		Namespace: namespace,
	})
	if err != nil {
		logger.Error("Unable to create Temporal client", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	ctx := context.Background()

	if mode == "refresh" {
		err = processRefresh(ctx, c, cfg, cmd, logger)
	} else {
		err = processDashboard(ctx, c, cfg, cmd, measure, weekEnding, lookback, topN, displayJSON, logger)
	}

	if err != nil {
		logger.Error("Command failed", "mode", mode, "error", err)
		os.Exit(1)
	}
}

// processRefresh signals the long-running refresh workflow, starting it on first use
func processRefresh(ctx context.Context, c client.Client, cfg *hcl.Config, cmd hcl.Commodity, logger *slog.Logger) error {
	endYear := time.Now().Year() + 1
	req := temporal.RefreshRequest{
		Commodity: cmd.Name,
		Code:      cmd.Code,
		StartYear: cfg.StartYear(endYear - cfg.Lookback(cmd) - 1),
		EndYear:   endYear,
	}

	workflowID := temporal.GenerateRefreshWorkflowID(cmd.Name)

	logger.Info("Signalling refresh",
		"commodity", cmd.Name,
		"start_year", req.StartYear,
		"end_year", req.EndYear)

	_, err := c.SignalWithStartWorkflow(
		ctx,
		workflowID,
		temporal.RefreshSignalName,
		temporal.RefreshSignal{EndYear: endYear},
		client.StartWorkflowOptions{
			ID:        workflowID,
			TaskQueue: temporal.TaskQueue,
		},
		temporal.RefreshWorkflow,
		req,
	)
	if err != nil {
		return fmt.Errorf("failed to signal refresh workflow: %w", err)
	}

	fmt.Printf("Refresh queued for %s, marketing years %d-%d\n", cmd.Name, req.StartYear, req.EndYear)
	return nil
}

// processDashboard executes the dashboard workflow and prints its result
func processDashboard(ctx context.Context, c client.Client, cfg *hcl.Config, cmd hcl.Commodity, measure, weekEnding string, lookback, topN int, jsonOutput bool, logger *slog.Logger) error {
	req := temporal.DashboardRequest{
		Commodity:  cmd.Name,
		Measure:    measure,
		StartMonth: cmd.FiscalStartMonth,
		Lookback:   lookback,
		TopN:       topN,
		Unit:       cmd.UnitLabel(),
	}
	if req.Lookback == 0 {
		req.Lookback = cfg.Lookback(cmd)
	}
	if cmd.FiscalStartDay != nil {
		req.StartDay = *cmd.FiscalStartDay
	}
	if cmd.PSDCode != nil {
		req.PSDCode = *cmd.PSDCode
	}
	if weekEnding != "" {
		parsed, err := time.Parse("2006-01-02", weekEnding)
		if err != nil {
			return fmt.Errorf("invalid week-ending %q, want YYYY-MM-DD: %w", weekEnding, err)
		}
		req.SelectedWeek = parsed
	}

	logger.Info("Executing dashboard",
		"commodity", cmd.Name,
		"measure", req.Measure,
		"lookback", req.Lookback)

	options := client.StartWorkflowOptions{
		ID:        temporal.GenerateDashboardWorkflowID(cmd.Name),
		TaskQueue: temporal.TaskQueue,
	}

	run, err := c.ExecuteWorkflow(ctx, options, temporal.DashboardWorkflow, req)
	if err != nil {
		return fmt.Errorf("failed to execute dashboard workflow: %w", err)
	}

	var result temporal.DashboardResult
	if err := run.Get(ctx, &result); err != nil {
		return fmt.Errorf("failed to get dashboard result: %w", err)
	}

	displayResult(result, jsonOutput, logger)

	return nil
}

// displayResult shows the dashboard result in human-readable or JSON format
func displayResult(result temporal.DashboardResult, jsonOutput bool, logger *slog.Logger) {
	if jsonOutput {
		// Output as JSON
		resultJSON, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			logger.Error("Failed to marshal result to JSON", "error", err)
			fmt.Printf("%+v\n", result)
		} else {
			fmt.Println(string(resultJSON))
		}
		return
	}

	// Output in human-readable format
	if s := result.Summary; s != nil {
		fmt.Printf("Week ending %s (%s):\n", s.WeekEnding.Format("2006-01-02"), s.Commodity)
		fmt.Printf("  Weekly Shipments:      %.0f\n", s.KPIs.Shipments)
		fmt.Printf("  Gross New Sales:       %.0f\n", s.KPIs.GrossNewSales)
		fmt.Printf("  Net New Sales:         %.0f\n", s.KPIs.NetNewSales)
		fmt.Printf("  Cancellations:         %.0f\n", s.KPIs.Cancellations)
		fmt.Printf("  Accumulated Exports:   %.0f\n", s.KPIs.AccumulatedExports)
		fmt.Printf("  Outstanding Sales:     %.0f\n", s.KPIs.OutstandingSales)
		fmt.Printf("  Total Commitment:      %.0f\n", s.KPIs.TotalCommitment)
		fmt.Printf("  Next MY Net Sales:     %.0f\n", s.KPIs.NextMYNetSales)
		fmt.Printf("  Next MY Outstanding:   %.0f\n", s.KPIs.NextMYOutstandingSales)
		if len(s.Commitments) > 0 {
			fmt.Println("  Top destinations:")
			for _, row := range s.Commitments {
				fmt.Printf("    %-20s %12.0f\n", row.Country, row.TotalCommitment)
			}
		}
	}
	if sea := result.Seasonal; sea != nil {
		fmt.Printf("Seasonal view (%s, current MY %d):\n", sea.Measure, sea.CurrentMY)
		for _, my := range sea.Series.Years() {
			fmt.Printf("  MY %d: %d weeks\n", my, len(sea.Series[my]))
		}
	}
	if result.WASDEExport > 0 {
		fmt.Printf("WASDE export projection: %.0f\n", result.WASDEExport)
	}
}
