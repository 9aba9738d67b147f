package esr

import (
	"time"
)

// Measure names as they appear in the USDA ESR export feed
const (
	MeasureWeeklyExports          = "weeklyExports"
	MeasureGrossNewSales          = "grossNewSales"
	MeasureCurrentMYNetSales      = "currentMYNetSales"
	MeasureNextMYNetSales         = "nextMYNetSales"
	MeasureCurrentMYCommitment    = "currentMYTotalCommitment"
	MeasureAccumulatedExports     = "accumulatedExports"
	MeasureOutstandingSales       = "outstandingSales"
	MeasureNextMYOutstandingSales = "nextMYOutstandingSales"
	MeasureCancellations          = "cancellations" // derived: grossNewSales - currentMYNetSales
)

// Observation is a single ESR report row: one destination country for one
// week-ending date, with its numeric measures keyed by name.
type Observation struct {
	WeekEnding  time.Time          `json:"weekEndingDate"`
	CountryCode int                `json:"countryCode"`
	Country     string             `json:"country,omitempty"`
	Measures    map[string]float64 `json:"measures"`
}

// ObservationSet is a flat list of report rows across countries and weeks
type ObservationSet []Observation

// WeeklyTotal is one row per (marketing year, week-ending date) with measures
// summed across countries. Week is the 1-based position of the date within
// its marketing year.
type WeeklyTotal struct {
	MarketingYear int                `json:"marketingYear"`
	WeekEnding    time.Time          `json:"weekEndingDate"`
	Week          int                `json:"week"`
	Measures      map[string]float64 `json:"measures"`
}

// WeeklySeries is an ordered list of weekly totals
type WeeklySeries []WeeklyTotal

// WeekValue is a single point of an aligned seasonal series
type WeekValue struct {
	Week  int     `json:"week"`
	Value float64 `json:"value"`
}

// SeasonalSeries maps a marketing year to its aligned (week, value) sequence
type SeasonalSeries map[int][]WeekValue

// Measure returns the named measure of an observation, zero if absent
func (o Observation) Measure(name string) float64 {
	return o.Measures[name]
}
