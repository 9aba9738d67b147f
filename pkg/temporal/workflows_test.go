package temporal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/agflows/esr-dashboard/pkg/esr"
)

func TestRefreshWorkflowID(t *testing.T) {
	workflowID := GenerateRefreshWorkflowID("cotton")

	expected := RefreshWorkflowIDPrefix + "cotton"
	if workflowID != expected {
		t.Errorf("Expected workflow ID '%s', got '%s'", expected, workflowID)
	}

	// Stable ID: signalling twice must reach the same workflow
	if GenerateRefreshWorkflowID("cotton") != workflowID {
		t.Error("refresh workflow ID must be stable per commodity")
	}
}

func TestDashboardWorkflowID(t *testing.T) {
	workflowID := GenerateDashboardWorkflowID("cotton")

	if !strings.Contains(workflowID, DashboardWorkflowIDPrefix+"cotton") {
		t.Errorf("Dashboard workflow ID should contain prefix, got '%s'", workflowID)
	}
}

func TestRefreshRequestStructure(t *testing.T) {
	req := RefreshRequest{
		Commodity: "cotton",
		Code:      1404,
		StartYear: 2021,
		EndYear:   2026,
	}

	if req.EndYear-req.StartYear != 5 {
		t.Errorf("Expected 5-year span, got %d", req.EndYear-req.StartYear)
	}
}

func TestDashboardRequestStructure(t *testing.T) {
	req := DashboardRequest{
		Commodity:  "wheat",
		Measure:    "accumulatedExports",
		StartMonth: 6,
		Lookback:   5,
	}

	if req.Commodity != "wheat" {
		t.Errorf("Expected commodity 'wheat', got '%s'", req.Commodity)
	}
	if req.SelectedWeek != (time.Time{}) {
		t.Error("Zero selected week should mean latest")
	}
}

// registerRefreshActivities wires the named activities the refresh loop invokes
func registerRefreshActivities(env *testsuite.TestWorkflowEnvironment, activities *ActivitiesImpl) {
	env.RegisterActivityWithOptions(activities.FetchYearActivity, activity.RegisterOptions{Name: FetchYearActivityName})
	env.RegisterActivityWithOptions(activities.StoreSnapshotActivity, activity.RegisterOptions{Name: StoreSnapshotActivityName})
}

func countYear(calls []int, year int) int {
	n := 0
	for _, y := range calls {
		if y == year {
			n++
		}
	}
	return n
}

func TestRefreshWorkflow(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}

	// The refresh loop never returns on its own, so each run ends at the
	// environment's test timeout; assertions go against the recorded
	// activity calls and the store.
	t.Run("Initial Fetch Then Signalled Extension", func(t *testing.T) {
		env := testSuite.NewTestWorkflowEnvironment()
		env.SetTestTimeout(time.Second)
		env.RegisterWorkflow(RefreshWorkflow)

		fetcher := &fakeFetcher{rows: map[int]esr.ObservationSet{
			2024: cottonYear(2024, 1),
			2025: cottonYear(2025, 1),
			2026: cottonYear(2026, 1),
			2027: cottonYear(2027, 1),
		}}
		store := NewMemorySnapshotStore()
		registerRefreshActivities(env, testActivities(fetcher, store))

		env.RegisterDelayedCallback(func() {
			env.SignalWorkflow(RefreshSignalName, RefreshSignal{EndYear: 2027})
		}, time.Minute)

		env.ExecuteWorkflow(RefreshWorkflow, RefreshRequest{
			Commodity: "cotton",
			Code:      1404,
			StartYear: 2024,
			EndYear:   2026,
		})

		require.True(t, env.IsWorkflowCompleted())

		// Full range once, then only the two newest years of the extended range
		assert.Equal(t, []int{2024, 2025, 2026, 2026, 2027}, fetcher.calls)

		loaded, err := store.Load(context.Background(), "cotton")
		require.NoError(t, err)
		assert.Len(t, loaded, 4)
	})

	t.Run("Refresh Window Clamps To Start Year", func(t *testing.T) {
		env := testSuite.NewTestWorkflowEnvironment()
		env.SetTestTimeout(time.Second)
		env.RegisterWorkflow(RefreshWorkflow)

		fetcher := &fakeFetcher{rows: map[int]esr.ObservationSet{2026: cottonYear(2026, 1)}}
		registerRefreshActivities(env, testActivities(fetcher, NewMemorySnapshotStore()))

		// EndYear zero keeps the range; from = EndYear-1 must not precede StartYear
		env.RegisterDelayedCallback(func() {
			env.SignalWorkflow(RefreshSignalName, RefreshSignal{})
		}, time.Minute)

		env.ExecuteWorkflow(RefreshWorkflow, RefreshRequest{
			Commodity: "cotton",
			Code:      1404,
			StartYear: 2026,
			EndYear:   2026,
		})

		require.True(t, env.IsWorkflowCompleted())
		assert.Equal(t, []int{2026, 2026}, fetcher.calls)
	})

	t.Run("Failed Refresh Keeps Loop Alive", func(t *testing.T) {
		env := testSuite.NewTestWorkflowEnvironment()
		env.SetTestTimeout(time.Second)
		env.RegisterWorkflow(RefreshWorkflow)

		fetcher := &fakeFetcher{
			rows: map[int]esr.ObservationSet{
				2025: cottonYear(2025, 1),
				2026: cottonYear(2026, 1),
			},
			failYears: map[int]bool{2027: true},
		}
		registerRefreshActivities(env, testActivities(fetcher, NewMemorySnapshotStore()))

		env.RegisterDelayedCallback(func() {
			env.SignalWorkflow(RefreshSignalName, RefreshSignal{EndYear: 2027})
		}, time.Minute)
		env.RegisterDelayedCallback(func() {
			env.SignalWorkflow(RefreshSignalName, RefreshSignal{})
		}, 2*time.Minute)

		env.ExecuteWorkflow(RefreshWorkflow, RefreshRequest{
			Commodity: "cotton",
			Code:      1404,
			StartYear: 2025,
			EndYear:   2026,
		})

		require.True(t, env.IsWorkflowCompleted())

		// Initial range plus one 2026 fetch per signalled round: the second
		// signal was processed, so the failed round did not end the loop
		assert.GreaterOrEqual(t, countYear(fetcher.calls, 2026), 3)
		assert.GreaterOrEqual(t, countYear(fetcher.calls, 2027), 2)
	})

	t.Run("Continues As New At Threshold", func(t *testing.T) {
		env := testSuite.NewTestWorkflowEnvironment()
		env.RegisterWorkflow(RefreshWorkflow)

		fetcher := &fakeFetcher{rows: map[int]esr.ObservationSet{
			2025: cottonYear(2025, 1),
			2026: cottonYear(2026, 1),
		}}
		registerRefreshActivities(env, testActivities(fetcher, NewMemorySnapshotStore()))

		for i := 0; i < DefaultContinueAsNewThreshold; i++ {
			delay := time.Duration(i+1) * time.Minute
			env.RegisterDelayedCallback(func() {
				env.SignalWorkflow(RefreshSignalName, RefreshSignal{})
			}, delay)
		}

		env.ExecuteWorkflow(RefreshWorkflow, RefreshRequest{
			Commodity: "cotton",
			Code:      1404,
			StartYear: 2025,
			EndYear:   2026,
		})

		require.True(t, env.IsWorkflowCompleted())
		require.Error(t, env.GetWorkflowError())
		assert.True(t, workflow.IsContinueAsNewError(env.GetWorkflowError()))
	})
}

// registerDashboardActivities wires the named activities the workflow invokes
func registerDashboardActivities(env *testsuite.TestWorkflowEnvironment, activities *ActivitiesImpl) {
	env.RegisterActivityWithOptions(activities.LoadSnapshotActivity, activity.RegisterOptions{Name: LoadSnapshotActivityName})
	env.RegisterActivityWithOptions(activities.BuildSummaryActivity, activity.RegisterOptions{Name: BuildSummaryActivityName})
	env.RegisterActivityWithOptions(activities.BuildSeasonalActivity, activity.RegisterOptions{Name: BuildSeasonalActivityName})
	env.RegisterActivityWithOptions(activities.FetchWASDEActivity, activity.RegisterOptions{Name: FetchWASDEActivityName})
}

func TestDashboardWorkflow(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}

	store := NewMemorySnapshotStore()
	for my := 2022; my <= 2026; my++ {
		require.NoError(t, store.SaveYear(context.Background(), "cotton", my, cottonYear(my, 4)))
	}

	request := DashboardRequest{
		Commodity:  "cotton",
		Measure:    esr.MeasureAccumulatedExports,
		StartMonth: 8,
		Lookback:   5,
		PSDCode:    2631000,
		Unit:       "Bales",
	}

	t.Run("Full Dashboard With WASDE", func(t *testing.T) {
		env := testSuite.NewTestWorkflowEnvironment()
		env.RegisterWorkflow(DashboardWorkflow)
		registerDashboardActivities(env, testActivities(&fakeFetcher{wasde: 11500000}, store))

		var result *DashboardResult
		env.ExecuteWorkflow(DashboardWorkflow, request)

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())
		require.NoError(t, env.GetWorkflowResult(&result))

		require.NotNil(t, result.Summary)
		assert.Equal(t, "cotton", result.Summary.Commodity)
		require.NotNil(t, result.Seasonal)
		assert.Equal(t, 2026, result.Seasonal.CurrentMY)
		assert.Len(t, result.Seasonal.Series, 5)
		assert.Equal(t, 11500000.0, result.WASDEExport)
	})

	t.Run("WASDE Failure Does Not Fail Dashboard", func(t *testing.T) {
		env := testSuite.NewTestWorkflowEnvironment()
		env.RegisterWorkflow(DashboardWorkflow)
		registerDashboardActivities(env, testActivities(&fakeFetcher{}, store))

		var result *DashboardResult
		env.ExecuteWorkflow(DashboardWorkflow, request)

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())
		require.NoError(t, env.GetWorkflowResult(&result))

		require.NotNil(t, result.Summary)
		assert.Zero(t, result.WASDEExport)
	})

	t.Run("Empty Snapshot Fails", func(t *testing.T) {
		env := testSuite.NewTestWorkflowEnvironment()
		env.RegisterWorkflow(DashboardWorkflow)
		registerDashboardActivities(env, testActivities(&fakeFetcher{}, NewMemorySnapshotStore()))

		env.ExecuteWorkflow(DashboardWorkflow, request)

		require.True(t, env.IsWorkflowCompleted())
		assert.Error(t, env.GetWorkflowError())
	})
}
