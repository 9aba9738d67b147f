package usda

import (
	"time"

	"github.com/agflows/esr-dashboard/pkg/esr"
)

// ExportRecord is one row of the ESR exports feed as served by the FAS API
type ExportRecord struct {
	CommodityCode            int     `json:"commodityCode"`
	CountryCode              int     `json:"countryCode"`
	WeekEndingDate           string  `json:"weekEndingDate"`
	WeeklyExports            float64 `json:"weeklyExports"`
	AccumulatedExports       float64 `json:"accumulatedExports"`
	OutstandingSales         float64 `json:"outstandingSales"`
	GrossNewSales            float64 `json:"grossNewSales"`
	CurrentMYNetSales        float64 `json:"currentMYNetSales"`
	CurrentMYTotalCommitment float64 `json:"currentMYTotalCommitment"`
	NextMYNetSales           float64 `json:"nextMYNetSales"`
	NextMYOutstandingSales   float64 `json:"nextMYOutstandingSales"`
	UnitID                   int     `json:"unitId"`
}

// PSDRecord is one attribute row of the PSD commodity feed
type PSDRecord struct {
	CommodityCode int     `json:"commodityCode"`
	CountryCode   string  `json:"countryCode"`
	MarketYear    int     `json:"marketYear"`
	AttributeID   int     `json:"attributeId"`
	Value         float64 `json:"value"`
}

// weekEndingLayouts are the timestamp forms the feed has served over time
var weekEndingLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// Observation converts the wire record to a domain observation, resolving the
// country description through the lookup (empty when the code is unknown).
func (r ExportRecord) Observation(countries map[int]string) (esr.Observation, error) {
	var weekEnding time.Time
	var err error
	for _, layout := range weekEndingLayouts {
		weekEnding, err = time.Parse(layout, r.WeekEndingDate)
		if err == nil {
			break
		}
	}
	if err != nil {
		return esr.Observation{}, err
	}

	return esr.Observation{
		WeekEnding:  weekEnding.UTC(),
		CountryCode: r.CountryCode,
		Country:     countries[r.CountryCode],
		Measures: map[string]float64{
			esr.MeasureWeeklyExports:          r.WeeklyExports,
			esr.MeasureAccumulatedExports:     r.AccumulatedExports,
			esr.MeasureOutstandingSales:       r.OutstandingSales,
			esr.MeasureGrossNewSales:          r.GrossNewSales,
			esr.MeasureCurrentMYNetSales:      r.CurrentMYNetSales,
			esr.MeasureCurrentMYCommitment:    r.CurrentMYTotalCommitment,
			esr.MeasureNextMYNetSales:         r.NextMYNetSales,
			esr.MeasureNextMYOutstandingSales: r.NextMYOutstandingSales,
		},
	}, nil
}
