package esr

import (
	"fmt"
	"sort"
)

// DefaultLookbackYears is how many prior marketing years a seasonal view
// compares against the current one.
const DefaultLookbackYears = 5

// CurrentMarketingYear returns the marketing year of the most recent
// week-ending date in the series. It is derived from the data, never from the
// wall clock, so a historical data set still aligns correctly. The bool is
// false when the series is empty.
func CurrentMarketingYear(weekly WeeklySeries) (int, bool) {
	if len(weekly) == 0 {
		return 0, false
	}

	latest := weekly[0]
	for _, row := range weekly[1:] {
		if row.WeekEnding.After(latest.WeekEnding) {
			latest = row
		}
	}
	return latest.MarketingYear, true
}

// ExtractSeasonal builds one aligned (week, value) sequence per marketing
// year for the named measure: at most lookback years ending with the current
// one, so lookback 5 over 2021..2026 keeps 2022..2026. Fewer available years
// is not an error; the result just covers what exists. A measure name that
// appears nowhere in the series is a configuration error.
func ExtractSeasonal(weekly WeeklySeries, measure string, currentMY, lookback int) (SeasonalSeries, error) {
	if lookback < 0 {
		return nil, fmt.Errorf("lookback %d must not be negative", lookback)
	}
	if len(weekly) > 0 && !hasMeasure(weekly, measure) {
		return nil, fmt.Errorf("unknown measure %q", measure)
	}

	years := selectYears(weekly.MarketingYears(), currentMY, lookback)

	series := make(SeasonalSeries, len(years))
	for _, my := range years {
		series[my] = []WeekValue{}
		for _, row := range weekly.Year(my) {
			series[my] = append(series[my], WeekValue{Week: row.Week, Value: row.Measures[measure]})
		}
		sort.Slice(series[my], func(i, j int) bool {
			return series[my][i].Week < series[my][j].Week
		})
	}

	return series, nil
}

// selectYears picks currentMY plus the largest prior years present, keeping
// at most lookback years in total.
func selectYears(available []int, currentMY, lookback int) []int {
	var prior []int
	for _, y := range available {
		if y < currentMY {
			prior = append(prior, y)
		}
	}
	sort.Ints(prior)
	if keep := lookback - 1; keep < 0 {
		prior = nil
	} else if len(prior) > keep {
		prior = prior[len(prior)-keep:]
	}

	return append(prior, currentMY)
}

func hasMeasure(weekly WeeklySeries, measure string) bool {
	for _, row := range weekly {
		if _, ok := row.Measures[measure]; ok {
			return true
		}
	}
	return false
}

// Years returns the marketing years of the series, ascending
func (s SeasonalSeries) Years() []int {
	years := make([]int, 0, len(s))
	for my := range s {
		years = append(years, my)
	}
	sort.Ints(years)
	return years
}
