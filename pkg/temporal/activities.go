package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agflows/esr-dashboard/pkg/esr"
)

// DefaultCommitmentRows caps the commitments table when the request does not say
const DefaultCommitmentRows = 20

// Activities interface defines all the activities used by workflows
type Activities interface {
	FetchYearActivity(ctx context.Context, commodityCode, marketYear int) (esr.ObservationSet, error)
	FetchWASDEActivity(ctx context.Context, psdCode, marketYear int) (float64, error)
	StoreSnapshotActivity(ctx context.Context, commodity string, marketYear int, obs esr.ObservationSet) error
	LoadSnapshotActivity(ctx context.Context, commodity string) (esr.ObservationSet, error)
	BuildSummaryActivity(ctx context.Context, obs esr.ObservationSet, req DashboardRequest) (*SummaryResult, error)
	BuildSeasonalActivity(ctx context.Context, obs esr.ObservationSet, req DashboardRequest) (*SeasonalResult, error)
}

// ExportFetcher is the slice of the USDA client the activities depend on
type ExportFetcher interface {
	FetchExportsYear(ctx context.Context, commodityCode, marketYear int) (esr.ObservationSet, error)
	FetchWASDEExport(ctx context.Context, psdCode, marketYear int) (float64, error)
}

// ActivitiesImpl implements the Activities interface
type ActivitiesImpl struct {
	logger  *slog.Logger
	fetcher ExportFetcher
	store   SnapshotStore
}

// NewActivitiesImpl creates a new activities implementation
func NewActivitiesImpl(logger *slog.Logger, fetcher ExportFetcher, store SnapshotStore) *ActivitiesImpl {
	return &ActivitiesImpl{
		logger:  logger,
		fetcher: fetcher,
		store:   store,
	}
}

// FetchYearActivity downloads one marketing year of ESR rows from the USDA API
func (a *ActivitiesImpl) FetchYearActivity(ctx context.Context, commodityCode, marketYear int) (esr.ObservationSet, error) {
	a.logger.Info("Fetching ESR year", "commodityCode", commodityCode, "marketYear", marketYear)

	obs, err := a.fetcher.FetchExportsYear(ctx, commodityCode, marketYear)
	if err != nil {
		a.logger.Error("Failed to fetch ESR year", "error", err)
		return nil, fmt.Errorf("failed to fetch ESR year %d: %w", marketYear, err)
	}

	a.logger.Info("Fetched ESR year", "commodityCode", commodityCode, "marketYear", marketYear, "rows", len(obs))
	return obs, nil
}

// FetchWASDEActivity retrieves the PSD export total used as the WASDE line
func (a *ActivitiesImpl) FetchWASDEActivity(ctx context.Context, psdCode, marketYear int) (float64, error) {
	a.logger.Info("Fetching WASDE export", "psdCode", psdCode, "marketYear", marketYear)

	value, err := a.fetcher.FetchWASDEExport(ctx, psdCode, marketYear)
	if err != nil {
		a.logger.Error("Failed to fetch WASDE export", "error", err)
		return 0, fmt.Errorf("failed to fetch WASDE export: %w", err)
	}
	return value, nil
}

// StoreSnapshotActivity persists one fetched marketing year
func (a *ActivitiesImpl) StoreSnapshotActivity(ctx context.Context, commodity string, marketYear int, obs esr.ObservationSet) error {
	a.logger.Info("Storing snapshot", "commodity", commodity, "marketYear", marketYear, "rows", len(obs))

	if err := a.store.SaveYear(ctx, commodity, marketYear, obs); err != nil {
		a.logger.Error("Failed to store snapshot", "error", err)
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

// LoadSnapshotActivity loads every stored marketing year of a commodity
func (a *ActivitiesImpl) LoadSnapshotActivity(ctx context.Context, commodity string) (esr.ObservationSet, error) {
	obs, err := a.store.Load(ctx, commodity)
	if err != nil {
		a.logger.Error("Failed to load snapshot", "error", err)
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	a.logger.Info("Loaded snapshot", "commodity", commodity, "rows", len(obs))
	return obs, nil
}

// BuildSummaryActivity filters the snapshot to one report week and computes
// the KPI and commitments views.
func (a *ActivitiesImpl) BuildSummaryActivity(ctx context.Context, obs esr.ObservationSet, req DashboardRequest) (*SummaryResult, error) {
	snapshot := esr.LastWeekSnapshot(obs, req.SelectedWeek)
	if len(snapshot) == 0 && !req.SelectedWeek.IsZero() {
		return nil, fmt.Errorf("no report rows for week ending %s", req.SelectedWeek.Format("2006-01-02"))
	}

	weekEnding := req.SelectedWeek
	if weekEnding.IsZero() {
		weekEnding, _ = esr.LatestWeekEnding(obs)
	}

	topN := req.TopN
	if topN == 0 {
		topN = DefaultCommitmentRows
	}

	result := &SummaryResult{
		Commodity:   req.Commodity,
		WeekEnding:  weekEnding,
		KPIs:        esr.ComputeKPIs(snapshot),
		Commitments: esr.CommitmentRows(snapshot, topN),
	}

	a.logger.Info("Built summary", "commodity", req.Commodity, "weekEnding", weekEnding, "countries", len(result.Commitments))
	return result, nil
}

// BuildSeasonalActivity runs the marketing-year alignment pipeline and
// extracts the aligned series for the requested measure.
func (a *ActivitiesImpl) BuildSeasonalActivity(ctx context.Context, obs esr.ObservationSet, req DashboardRequest) (*SeasonalResult, error) {
	cal, err := esr.NewFiscalCalendar(time.Month(req.StartMonth), req.StartDay)
	if err != nil {
		return nil, fmt.Errorf("invalid fiscal calendar: %w", err)
	}

	lookback := req.Lookback
	if lookback == 0 {
		lookback = esr.DefaultLookbackYears
	}

	weekly, err := esr.AggregateWeekly(obs, cal)
	if err != nil {
		return nil, fmt.Errorf("aggregate weekly: %w", err)
	}

	currentMY, ok := esr.CurrentMarketingYear(weekly)
	if !ok {
		return nil, fmt.Errorf("no observations stored for %s", req.Commodity)
	}

	series, err := esr.ExtractSeasonal(weekly, req.Measure, currentMY, lookback)
	if err != nil {
		return nil, fmt.Errorf("extract seasonal: %w", err)
	}

	// 53-week years must not clip, short histories still span a full cycle
	maxWeek := weekly.MaxWeek()
	if maxWeek < 52 {
		maxWeek = 52
	}

	result := &SeasonalResult{
		Commodity:         req.Commodity,
		Measure:           req.Measure,
		CurrentMY:         currentMY,
		Series:            series,
		MonthTicks:        esr.MonthTicks(cal, maxWeek),
		MaxWeek:           maxWeek,
		Unit:              req.Unit,
		AvailableYears:    len(series),
		RequestedLookback: lookback,
	}

	a.logger.Info("Built seasonal view", "commodity", req.Commodity, "currentMY", currentMY, "years", len(series))
	return result, nil
}
