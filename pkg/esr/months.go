package esr

// WeeksPerMonthTick is the chart approximation of a month on the weekly axis
const WeeksPerMonthTick = 4

var monthNames = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// MonthTicks maps each relative week 1..maxWeek to a month label, rotated so
// the fiscal start month labels week 1. Four weeks approximate a month and
// weeks past the twelfth month keep the final label, so 53-week years do not
// run off the calendar.
func MonthTicks(cal FiscalCalendar, maxWeek int) []string {
	ordered := append(append([]string{}, monthNames[cal.StartMonth-1:]...), monthNames[:cal.StartMonth-1]...)

	labels := make([]string, maxWeek)
	for w := 1; w <= maxWeek; w++ {
		idx := (w - 1) / WeeksPerMonthTick
		if idx > 11 {
			idx = 11
		}
		labels[w-1] = ordered[idx]
	}
	return labels
}
