package esr

import (
	"testing"
	"time"
)

func snapshotFixture() ObservationSet {
	w1 := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)
	w2 := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	return ObservationSet{
		{
			WeekEnding: w1, CountryCode: 5700, Country: "CHINA",
			Measures: map[string]float64{
				MeasureGrossNewSales:       100,
				MeasureCurrentMYNetSales:   90,
				MeasureWeeklyExports:       50,
				MeasureAccumulatedExports:  500,
				MeasureOutstandingSales:    200,
				MeasureCurrentMYCommitment: 700,
			},
		},
		{
			WeekEnding: w2, CountryCode: 5700, Country: "CHINA",
			Measures: map[string]float64{
				MeasureGrossNewSales:       120,
				MeasureCurrentMYNetSales:   80,
				MeasureWeeklyExports:       60,
				MeasureAccumulatedExports:  560,
				MeasureOutstandingSales:    180,
				MeasureCurrentMYCommitment: 740,
			},
		},
		{
			WeekEnding: w2, CountryCode: 5880, Country: "S. KOREA",
			Measures: map[string]float64{
				MeasureGrossNewSales:       30,
				MeasureCurrentMYNetSales:   25,
				MeasureWeeklyExports:       10,
				MeasureAccumulatedExports:  90,
				MeasureOutstandingSales:    40,
				MeasureCurrentMYCommitment: 130,
			},
		},
		{
			WeekEnding: w2, CountryCode: 9999,
			Measures: map[string]float64{
				MeasureCurrentMYCommitment: 9000, // unknown destination, no description
			},
		},
	}
}

func TestLastWeekSnapshotDefaultsToLatest(t *testing.T) {
	snapshot := LastWeekSnapshot(snapshotFixture(), time.Time{})

	if len(snapshot) != 3 {
		t.Fatalf("expected 3 rows for the latest week, got %d", len(snapshot))
	}
	for _, o := range snapshot {
		if o.WeekEnding.Day() != 15 {
			t.Errorf("row from wrong week: %v", o.WeekEnding)
		}
	}
}

func TestLastWeekSnapshotDerivesCancellations(t *testing.T) {
	snapshot := LastWeekSnapshot(snapshotFixture(), time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))

	for _, o := range snapshot {
		expected := o.Measure(MeasureGrossNewSales) - o.Measure(MeasureCurrentMYNetSales)
		if got := o.Measure(MeasureCancellations); got != expected {
			t.Errorf("country %d: expected cancellations %v, got %v", o.CountryCode, expected, got)
		}
	}
}

func TestLastWeekSnapshotDoesNotMutateInput(t *testing.T) {
	obs := snapshotFixture()
	LastWeekSnapshot(obs, time.Time{})

	for _, o := range obs {
		if _, present := o.Measures[MeasureCancellations]; present {
			t.Fatal("input observations were mutated")
		}
	}
}

func TestComputeKPIs(t *testing.T) {
	snapshot := LastWeekSnapshot(snapshotFixture(), time.Time{})
	k := ComputeKPIs(snapshot)

	if k.GrossNewSales != 150 {
		t.Errorf("expected gross new sales 150, got %v", k.GrossNewSales)
	}
	if k.NetNewSales != 105 {
		t.Errorf("expected net new sales 105, got %v", k.NetNewSales)
	}
	if k.Cancellations != 45 {
		t.Errorf("expected cancellations 45, got %v", k.Cancellations)
	}
	if k.Shipments != 70 {
		t.Errorf("expected shipments 70, got %v", k.Shipments)
	}
	if k.TotalCommitment != 9870 {
		t.Errorf("expected total commitment 9870, got %v", k.TotalCommitment)
	}
}

func TestCommitmentRows(t *testing.T) {
	snapshot := LastWeekSnapshot(snapshotFixture(), time.Time{})
	rows := CommitmentRows(snapshot, 0)

	// Unknown destination has no description and is dropped
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Country != "CHINA" || rows[1].Country != "S. KOREA" {
		t.Errorf("expected descending commitment order, got %+v", rows)
	}

	top := CommitmentRows(snapshot, 1)
	if len(top) != 1 || top[0].Country != "CHINA" {
		t.Errorf("expected only top row CHINA, got %+v", top)
	}
}
