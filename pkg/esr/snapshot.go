package esr

import (
	"sort"
	"time"
)

// KPISummary holds the headline numbers for a single report week, summed
// across all destinations. Values are raw units; scaling to thousands is a
// presentation concern.
type KPISummary struct {
	GrossNewSales          float64 `json:"grossNewSales"`
	NetNewSales            float64 `json:"netNewSales"`
	Cancellations          float64 `json:"cancellations"`
	Shipments              float64 `json:"shipments"`
	NextMYNetSales         float64 `json:"nextMYNetSales"`
	AccumulatedExports     float64 `json:"accumulatedExports"`
	OutstandingSales       float64 `json:"outstandingSales"`
	TotalCommitment        float64 `json:"totalCommitment"`
	NextMYOutstandingSales float64 `json:"nextMYOutstandingSales"`
}

// CommitmentRow is one country's position in the commitments view
type CommitmentRow struct {
	Country         string  `json:"country"`
	Shipments       float64 `json:"shipments"`
	Outstanding     float64 `json:"outstanding"`
	TotalCommitment float64 `json:"totalCommitment"`
}

// LatestWeekEnding returns the most recent week-ending date present, false
// when the set is empty.
func LatestWeekEnding(obs ObservationSet) (time.Time, bool) {
	if len(obs) == 0 {
		return time.Time{}, false
	}

	latest := obs[0].WeekEnding
	for _, o := range obs[1:] {
		if o.WeekEnding.After(latest) {
			latest = o.WeekEnding
		}
	}
	return latest, true
}

// LastWeekSnapshot filters observations to a single week-ending date and
// derives the cancellations measure for each row. A zero selected time means
// the latest week in the data.
func LastWeekSnapshot(obs ObservationSet, selected time.Time) ObservationSet {
	if selected.IsZero() {
		latest, ok := LatestWeekEnding(obs)
		if !ok {
			return nil
		}
		selected = latest
	}

	var snapshot ObservationSet
	for _, o := range obs {
		if !o.WeekEnding.Equal(selected) {
			continue
		}

		measures := make(map[string]float64, len(o.Measures)+1)
		for name, v := range o.Measures {
			measures[name] = v
		}
		measures[MeasureCancellations] = measures[MeasureGrossNewSales] - measures[MeasureCurrentMYNetSales]
		o.Measures = measures
		snapshot = append(snapshot, o)
	}
	return snapshot
}

// ComputeKPIs aggregates the headline numbers over a one-week snapshot
func ComputeKPIs(snapshot ObservationSet) KPISummary {
	var k KPISummary
	for _, o := range snapshot {
		k.GrossNewSales += o.Measure(MeasureGrossNewSales)
		k.NetNewSales += o.Measure(MeasureCurrentMYNetSales)
		k.Cancellations += o.Measure(MeasureCancellations)
		k.Shipments += o.Measure(MeasureWeeklyExports)
		k.NextMYNetSales += o.Measure(MeasureNextMYNetSales)
		k.AccumulatedExports += o.Measure(MeasureAccumulatedExports)
		k.OutstandingSales += o.Measure(MeasureOutstandingSales)
		k.TotalCommitment += o.Measure(MeasureCurrentMYCommitment)
		k.NextMYOutstandingSales += o.Measure(MeasureNextMYOutstandingSales)
	}
	return k
}

// CommitmentRows lists per-country commitments sorted by total commitment
// descending. Rows without a country description are dropped, matching the
// published table. topN <= 0 means all rows.
func CommitmentRows(snapshot ObservationSet, topN int) []CommitmentRow {
	var rows []CommitmentRow
	for _, o := range snapshot {
		if o.Country == "" {
			continue
		}
		rows = append(rows, CommitmentRow{
			Country:         o.Country,
			Shipments:       o.Measure(MeasureAccumulatedExports),
			Outstanding:     o.Measure(MeasureOutstandingSales),
			TotalCommitment: o.Measure(MeasureCurrentMYCommitment),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TotalCommitment > rows[j].TotalCommitment
	})

	if topN > 0 && len(rows) > topN {
		rows = rows[:topN]
	}
	return rows
}
