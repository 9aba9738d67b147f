package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/agflows/esr-dashboard/pkg/esr"
	hclcfg "github.com/agflows/esr-dashboard/pkg/hcl"
	"github.com/agflows/esr-dashboard/pkg/render"
	"github.com/agflows/esr-dashboard/pkg/temporal"
)

// Server represents the HTTP surface of the ESR dashboard
type Server struct {
	logger         *slog.Logger
	temporalClient client.Client
	config         *hclcfg.Config
	addr           string
}

// NewServer creates a new HTTP server
func NewServer(logger *slog.Logger, temporalClient client.Client, config *hclcfg.Config, addr string) *Server {
	return &Server{
		logger:         logger,
		temporalClient: temporalClient,
		config:         config,
		addr:           addr,
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	// Register routes
	mux.HandleFunc("GET /commodities", s.handleListCommodities)
	mux.HandleFunc("POST /commodities/{name}/refresh", s.handleRefresh)
	mux.HandleFunc("POST /commodities/{name}/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /commodities/{name}/seasonal.png", s.handleSeasonalChart)
	mux.HandleFunc("GET /commodities/{name}/commitments.png", s.handleCommitmentsChart)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Add middleware
	handler := s.loggingMiddleware(mux)

	server := &http.Server{
		Addr:    s.addr,
		Handler: handler,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

// commoditySummary is the list representation of one configured commodity
type commoditySummary struct {
	Name             string `json:"name"`
	Code             int    `json:"code"`
	FiscalStartMonth int    `json:"fiscal_start_month"`
	Unit             string `json:"unit,omitempty"`
	LookbackYears    int    `json:"lookback_years"`
}

// Commodity listing endpoint
func (s *Server) handleListCommodities(w http.ResponseWriter, r *http.Request) {
	commodities := make([]commoditySummary, 0, len(s.config.Commodities))
	for _, c := range s.config.Commodities {
		commodities = append(commodities, commoditySummary{
			Name:             c.Name,
			Code:             c.Code,
			FiscalStartMonth: c.FiscalStartMonth,
			Unit:             c.UnitLabel(),
			LookbackYears:    s.config.Lookback(c),
		})
	}
	s.respondJSON(w, http.StatusOK, commodities)
}

// Refresh trigger endpoint
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	commodity, ok := s.lookupCommodity(w, r)
	if !ok {
		return
	}

	endYear := time.Now().Year() + 1 // next marketing year is already reported late in the cycle
	req := temporal.RefreshRequest{
		Commodity: commodity.Name,
		Code:      commodity.Code,
		StartYear: s.config.StartYear(endYear - s.config.Lookback(commodity) - 1),
		EndYear:   endYear,
	}

	workflowID := temporal.GenerateRefreshWorkflowID(commodity.Name)

	// Use SignalWithStart so the first refresh starts the loop and later
	// ones just nudge it
	signal := temporal.RefreshSignal{EndYear: endYear}

	_, err := s.temporalClient.SignalWithStartWorkflow(
		r.Context(),
		workflowID,
		temporal.RefreshSignalName,
		signal,
		client.StartWorkflowOptions{
			ID:        workflowID,
			TaskQueue: temporal.TaskQueue,
		},
		temporal.RefreshWorkflow,
		req,
	)

	if err != nil {
		s.logger.Error("Failed to signal refresh workflow", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to trigger refresh")
		return
	}

	s.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"message":   "refresh queued",
		"commodity": commodity.Name,
		"years":     fmt.Sprintf("%d-%d", req.StartYear, req.EndYear),
	})
}

// dashboardParams are the caller-adjustable view settings
type dashboardParams struct {
	Measure    string `json:"measure,omitempty"`
	WeekEnding string `json:"week_ending,omitempty"` // YYYY-MM-DD, empty means latest
	Lookback   int    `json:"lookback,omitempty"`
	TopN       int    `json:"top_n,omitempty"`
}

// Dashboard endpoint: builds the summary and seasonal views
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	commodity, ok := s.lookupCommodity(w, r)
	if !ok {
		return
	}

	var params dashboardParams
	if r.Body != nil {
		// An empty body means defaults for everything
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil && !errors.Is(err, io.EOF) {
			s.respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	req, err := s.buildDashboardRequest(commodity, params)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.runDashboard(r.Context(), req)
	if err != nil {
		s.logger.Error("Dashboard workflow failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "dashboard build failed")
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

// Seasonal chart endpoint: renders the aligned-years line chart as PNG
func (s *Server) handleSeasonalChart(w http.ResponseWriter, r *http.Request) {
	commodity, ok := s.lookupCommodity(w, r)
	if !ok {
		return
	}

	params := dashboardParams{Measure: r.URL.Query().Get("measure")}
	req, err := s.buildDashboardRequest(commodity, params)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.runDashboard(r.Context(), req)
	if err != nil {
		s.logger.Error("Dashboard workflow failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "dashboard build failed")
		return
	}

	seasonal := result.Seasonal
	title := fmt.Sprintf("%s %s by marketing week", commodity.Name, seasonal.Measure)
	png, err := render.SeasonalLineChart(seasonal.Series, seasonal.CurrentMY, seasonal.MonthTicks, title, commodity.UnitLabel(), result.WASDEExport)
	if err != nil {
		s.logger.Error("Failed to render seasonal chart", "error", err)
		s.respondError(w, http.StatusInternalServerError, "chart rendering failed")
		return
	}

	s.respondPNG(w, png)
}

// Commitments chart endpoint: renders the stacked per-country bars as PNG
func (s *Server) handleCommitmentsChart(w http.ResponseWriter, r *http.Request) {
	commodity, ok := s.lookupCommodity(w, r)
	if !ok {
		return
	}

	req, err := s.buildDashboardRequest(commodity, dashboardParams{})
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.runDashboard(r.Context(), req)
	if err != nil {
		s.logger.Error("Dashboard workflow failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "dashboard build failed")
		return
	}

	title := fmt.Sprintf("%s commitments, week ending %s", commodity.Name, result.Summary.WeekEnding.Format("2006-01-02"))
	png, err := render.CommitmentsChart(result.Summary.Commitments, title, commodity.UnitLabel())
	if err != nil {
		s.logger.Error("Failed to render commitments chart", "error", err)
		s.respondError(w, http.StatusInternalServerError, "chart rendering failed")
		return
	}

	s.respondPNG(w, png)
}

// Health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// lookupCommodity resolves the path commodity against the configuration
func (s *Server) lookupCommodity(w http.ResponseWriter, r *http.Request) (hclcfg.Commodity, bool) {
	name := r.PathValue("name")
	if name == "" {
		s.respondError(w, http.StatusBadRequest, "commodity name is required")
		return hclcfg.Commodity{}, false
	}

	commodity, ok := s.config.Commodity(name)
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("unknown commodity %q", name))
		return hclcfg.Commodity{}, false
	}
	return commodity, true
}

// buildDashboardRequest combines configuration and caller parameters
func (s *Server) buildDashboardRequest(commodity hclcfg.Commodity, params dashboardParams) (temporal.DashboardRequest, error) {
	measure := params.Measure
	if measure == "" {
		measure = esr.MeasureAccumulatedExports
	}

	var selectedWeek time.Time
	if params.WeekEnding != "" {
		parsed, err := time.Parse("2006-01-02", params.WeekEnding)
		if err != nil {
			return temporal.DashboardRequest{}, fmt.Errorf("invalid week_ending %q, want YYYY-MM-DD", params.WeekEnding)
		}
		selectedWeek = parsed
	}

	lookback := params.Lookback
	if lookback == 0 {
		lookback = s.config.Lookback(commodity)
	}

	req := temporal.DashboardRequest{
		Commodity:    commodity.Name,
		Measure:      measure,
		StartMonth:   commodity.FiscalStartMonth,
		Lookback:     lookback,
		SelectedWeek: selectedWeek,
		TopN:         params.TopN,
		Unit:         commodity.UnitLabel(),
	}
	if commodity.FiscalStartDay != nil {
		req.StartDay = *commodity.FiscalStartDay
	}
	if commodity.PSDCode != nil {
		req.PSDCode = *commodity.PSDCode
	}
	return req, nil
}

// runDashboard executes the dashboard workflow and waits for its result
func (s *Server) runDashboard(ctx context.Context, req temporal.DashboardRequest) (*temporal.DashboardResult, error) {
	workflowID := temporal.GenerateDashboardWorkflowID(req.Commodity)

	workflowRun, err := s.temporalClient.ExecuteWorkflow(
		ctx,
		client.StartWorkflowOptions{
			ID:        workflowID,
			TaskQueue: temporal.TaskQueue,
		},
		temporal.DashboardWorkflow,
		req,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start dashboard workflow: %w", err)
	}

	var result *temporal.DashboardResult
	if err := workflowRun.Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("dashboard workflow failed: %w", err)
	}
	return result, nil
}

// Middleware for request logging
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap ResponseWriter to capture status code
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		s.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.statusCode,
			"duration", duration,
			"user_agent", r.UserAgent(),
		)
	})
}

// Response helpers
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (s *Server) respondPNG(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		s.logger.Error("Failed to write PNG response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.logger.Warn("HTTP error response", "status", status, "message", message)
	s.respondJSON(w, status, map[string]string{"error": message})
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
