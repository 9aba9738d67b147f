package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/agflows/esr-dashboard/pkg/esr"
)

const (
	// Workflow IDs
	RefreshWorkflowIDPrefix   = "esr-refresh-"
	DashboardWorkflowIDPrefix = "esr-dashboard-"

	// Signal names
	RefreshSignalName = "refresh-signal"

	// Activity names
	FetchYearActivityName     = "fetch-year"
	FetchWASDEActivityName    = "fetch-wasde"
	StoreSnapshotActivityName = "store-snapshot"
	LoadSnapshotActivityName  = "load-snapshot"
	BuildSummaryActivityName  = "build-summary"
	BuildSeasonalActivityName = "build-seasonal"

	// TaskQueue is the queue shared by the worker and every client
	TaskQueue = "esr-task-queue"

	// DefaultContinueAsNewThreshold bounds refresh-loop history size
	DefaultContinueAsNewThreshold = 50
)

// RefreshRequest describes which commodity to keep retrieved: ESR commodity
// code and the marketing-year range to download.
type RefreshRequest struct {
	Commodity string `json:"commodity"`
	Code      int    `json:"code"`
	StartYear int    `json:"start_year"`
	EndYear   int    `json:"end_year"`
}

// RefreshSignal asks a running refresh workflow to re-download the most
// recent marketing years. EndYear extends the range when a new marketing
// year opens; zero keeps the current range.
type RefreshSignal struct {
	EndYear int `json:"end_year,omitempty"`
}

// DashboardRequest describes one dashboard build: the commodity snapshot to
// load and the fiscal calendar and view settings to apply. The calendar is
// carried explicitly so workflows stay deterministic and config-free.
type DashboardRequest struct {
	Commodity    string    `json:"commodity"`
	Measure      string    `json:"measure"`
	StartMonth   int       `json:"start_month"`
	StartDay     int       `json:"start_day,omitempty"`
	Lookback     int       `json:"lookback,omitempty"`
	SelectedWeek time.Time `json:"selected_week,omitempty"`
	TopN         int       `json:"top_n,omitempty"`
	PSDCode      int       `json:"psd_code,omitempty"`
	Unit         string    `json:"unit,omitempty"`
}

// SummaryResult is the single-week dashboard view
type SummaryResult struct {
	Commodity   string              `json:"commodity"`
	WeekEnding  time.Time           `json:"week_ending"`
	KPIs        esr.KPISummary      `json:"kpis"`
	Commitments []esr.CommitmentRow `json:"commitments"`
}

// SeasonalResult is the year-over-year aligned view
type SeasonalResult struct {
	Commodity         string             `json:"commodity"`
	Measure           string             `json:"measure"`
	CurrentMY         int                `json:"current_my"`
	Series            esr.SeasonalSeries `json:"series"`
	MonthTicks        []string           `json:"month_ticks"`
	MaxWeek           int                `json:"max_week"`
	Unit              string             `json:"unit,omitempty"`
	AvailableYears    int                `json:"available_years"`
	RequestedLookback int                `json:"requested_lookback"`
}

// DashboardResult bundles both views plus the WASDE reference when available
type DashboardResult struct {
	Summary     *SummaryResult  `json:"summary"`
	Seasonal    *SeasonalResult `json:"seasonal"`
	WASDEExport float64         `json:"wasde_export,omitempty"`
}

// RefreshWorkflowState tracks progress of a refresh loop
type RefreshWorkflowState struct {
	Commodity    string    `json:"commodity"`
	RefreshCount int       `json:"refresh_count"`
	LastRefresh  time.Time `json:"last_refresh"`
}

// RefreshWorkflow downloads the configured marketing-year range for one
// commodity, then re-downloads the most recent years on each refresh signal.
// History only changes for the current marketing year, so signalled refreshes
// skip the settled back years.
func RefreshWorkflow(ctx workflow.Context, req RefreshRequest) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting refresh workflow", "commodity", req.Commodity, "startYear", req.StartYear, "endYear", req.EndYear)

	ao := workflow.ActivityOptions{
		ScheduleToCloseTimeout: 5 * time.Minute,
		StartToCloseTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 5 * time.Second,
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	state := RefreshWorkflowState{
		Commodity:   req.Commodity,
		LastRefresh: workflow.Now(ctx),
	}

	if err := refreshYears(ctx, req, req.StartYear, req.EndYear); err != nil {
		return err
	}

	signalChan := workflow.GetSignalChannel(ctx, RefreshSignalName)

	for {
		var signal RefreshSignal
		signalChan.Receive(ctx, &signal)

		if signal.EndYear > req.EndYear {
			req.EndYear = signal.EndYear
		}

		// Only the two most recent years still move week to week
		from := req.EndYear - 1
		if from < req.StartYear {
			from = req.StartYear
		}

		logger.Info("Refreshing recent years", "commodity", req.Commodity, "from", from, "to", req.EndYear)
		if err := refreshYears(ctx, req, from, req.EndYear); err != nil {
			logger.Error("Refresh failed, waiting for next signal", "error", err)
			continue
		}

		state.RefreshCount++
		state.LastRefresh = workflow.Now(ctx)

		if state.RefreshCount >= DefaultContinueAsNewThreshold {
			logger.Info("Continuing as new", "refreshCount", state.RefreshCount)
			return workflow.NewContinueAsNewError(ctx, RefreshWorkflow, req)
		}
	}
}

// refreshYears fetches and stores one marketing year at a time
func refreshYears(ctx workflow.Context, req RefreshRequest, from, to int) error {
	for year := from; year <= to; year++ {
		var obs esr.ObservationSet
		if err := workflow.ExecuteActivity(ctx, FetchYearActivityName, req.Code, year).Get(ctx, &obs); err != nil {
			return fmt.Errorf("fetch MY %d: %w", year, err)
		}
		if err := workflow.ExecuteActivity(ctx, StoreSnapshotActivityName, req.Commodity, year, obs).Get(ctx, nil); err != nil {
			return fmt.Errorf("store MY %d: %w", year, err)
		}
	}
	return nil
}

// DashboardWorkflow loads the retrieved snapshot for a commodity and builds
// the summary and seasonal views, plus the WASDE export reference when a PSD
// code is configured.
func DashboardWorkflow(ctx workflow.Context, req DashboardRequest) (*DashboardResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting dashboard workflow", "commodity", req.Commodity, "measure", req.Measure)

	ao := workflow.ActivityOptions{
		ScheduleToCloseTimeout: 2 * time.Minute,
		StartToCloseTimeout:    30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var obs esr.ObservationSet
	if err := workflow.ExecuteActivity(ctx, LoadSnapshotActivityName, req.Commodity).Get(ctx, &obs); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	result := &DashboardResult{}

	var summary SummaryResult
	if err := workflow.ExecuteActivity(ctx, BuildSummaryActivityName, obs, req).Get(ctx, &summary); err != nil {
		return nil, fmt.Errorf("build summary: %w", err)
	}
	result.Summary = &summary

	var seasonal SeasonalResult
	if err := workflow.ExecuteActivity(ctx, BuildSeasonalActivityName, obs, req).Get(ctx, &seasonal); err != nil {
		return nil, fmt.Errorf("build seasonal: %w", err)
	}
	result.Seasonal = &seasonal

	if req.PSDCode != 0 {
		// WASDE is decoration; its absence must not sink the dashboard
		var wasde float64
		if err := workflow.ExecuteActivity(ctx, FetchWASDEActivityName, req.PSDCode, seasonal.CurrentMY).Get(ctx, &wasde); err != nil {
			logger.Warn("WASDE fetch failed, continuing without reference line", "error", err)
		} else {
			result.WASDEExport = wasde
		}
	}

	return result, nil
}

// GenerateRefreshWorkflowID creates a stable workflow ID per commodity so
// SignalWithStart always reaches the same refresh loop.
func GenerateRefreshWorkflowID(commodity string) string {
	return RefreshWorkflowIDPrefix + commodity
}

// GenerateDashboardWorkflowID creates a unique workflow ID per dashboard build
func GenerateDashboardWorkflowID(commodity string) string {
	return fmt.Sprintf("%s%s-%d", DashboardWorkflowIDPrefix, commodity, time.Now().UnixNano())
}
