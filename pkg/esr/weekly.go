package esr

import (
	"sort"
	"time"
)

// AggregateWeekly collapses observations to one row per (marketing year,
// week-ending date), summing every measure across countries, and assigns the
// relative week index within each marketing year. The result is sorted by
// marketing year then date.
func AggregateWeekly(obs ObservationSet, cal FiscalCalendar) (WeeklySeries, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}

	type key struct {
		my   int
		date time.Time
	}

	totals := make(map[key]map[string]float64)
	for _, o := range obs {
		k := key{my: cal.MarketingYear(o.WeekEnding), date: o.WeekEnding}
		if totals[k] == nil {
			totals[k] = make(map[string]float64)
		}
		for name, v := range o.Measures {
			totals[k][name] += v
		}
	}

	weekly := make(WeeklySeries, 0, len(totals))
	for k, measures := range totals {
		weekly = append(weekly, WeeklyTotal{
			MarketingYear: k.my,
			WeekEnding:    k.date,
			Measures:      measures,
		})
	}

	return AssignRelativeWeeks(weekly), nil
}

// AssignRelativeWeeks sorts rows by marketing year then week-ending date and
// numbers each row 1..W within its marketing year. Input must already be one
// row per (marketing year, date); AggregateWeekly guarantees that. For a year
// with W dates the indices are exactly {1..W}, no gaps, no duplicates.
func AssignRelativeWeeks(weekly WeeklySeries) WeeklySeries {
	out := make(WeeklySeries, len(weekly))
	copy(out, weekly)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MarketingYear != out[j].MarketingYear {
			return out[i].MarketingYear < out[j].MarketingYear
		}
		return out[i].WeekEnding.Before(out[j].WeekEnding)
	})

	week := 0
	currentYear := 0
	for i := range out {
		if i == 0 || out[i].MarketingYear != currentYear {
			currentYear = out[i].MarketingYear
			week = 0
		}
		week++
		out[i].Week = week
	}

	return out
}

// MarketingYears returns the distinct marketing years present, ascending
func (w WeeklySeries) MarketingYears() []int {
	seen := make(map[int]bool)
	var years []int
	for _, row := range w {
		if !seen[row.MarketingYear] {
			seen[row.MarketingYear] = true
			years = append(years, row.MarketingYear)
		}
	}
	sort.Ints(years)
	return years
}

// Year returns the rows belonging to one marketing year, in week order
func (w WeeklySeries) Year(my int) WeeklySeries {
	var rows WeeklySeries
	for _, row := range w {
		if row.MarketingYear == my {
			rows = append(rows, row)
		}
	}
	return rows
}

// MaxWeek returns the largest relative week index present, zero when empty
func (w WeeklySeries) MaxWeek() int {
	max := 0
	for _, row := range w {
		if row.Week > max {
			max = row.Week
		}
	}
	return max
}
