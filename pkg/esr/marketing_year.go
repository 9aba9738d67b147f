package esr

import (
	"fmt"
	"time"
)

// FiscalCalendar defines when a commodity's marketing year begins. StartDay
// defaults to 1, so a month-only calendar is just StartDay == 1.
type FiscalCalendar struct {
	StartMonth time.Month `json:"startMonth"`
	StartDay   int        `json:"startDay"`
}

// NewFiscalCalendar creates a validated fiscal calendar. A startDay of 0 is
// treated as the first of the month.
func NewFiscalCalendar(startMonth time.Month, startDay int) (FiscalCalendar, error) {
	if startDay == 0 {
		startDay = 1
	}
	cal := FiscalCalendar{StartMonth: startMonth, StartDay: startDay}
	if err := cal.Validate(); err != nil {
		return FiscalCalendar{}, err
	}
	return cal, nil
}

// Validate checks the calendar against the legal month/day ranges
func (c FiscalCalendar) Validate() error {
	if c.StartMonth < time.January || c.StartMonth > time.December {
		return fmt.Errorf("fiscal start month %d out of range 1..12", c.StartMonth)
	}
	if c.StartDay < 1 || c.StartDay > 31 {
		return fmt.Errorf("fiscal start day %d out of range 1..31", c.StartDay)
	}
	return nil
}

// MarketingYear returns the marketing year containing d. A date on or after
// the fiscal start boundary belongs to the new marketing year: with an
// August-1 start, 2024-07-28 is MY 2024 and 2024-08-04 is MY 2025.
func (c FiscalCalendar) MarketingYear(d time.Time) int {
	year := d.Year()
	month := d.Month()
	if month > c.StartMonth || (month == c.StartMonth && d.Day() >= c.StartDay) {
		return year + 1
	}
	return year
}

// AssignMarketingYears labels each date with its marketing year, preserving
// input order and length.
func AssignMarketingYears(dates []time.Time, cal FiscalCalendar) ([]int, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}

	years := make([]int, len(dates))
	for i, d := range dates {
		years[i] = cal.MarketingYear(d)
	}
	return years, nil
}
