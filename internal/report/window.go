package report

import "time"

// Clock supplies the current instant. Tests substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

const (
	upcomingHorizon = 7 * 24 * time.Hour
	trendMonths     = 6
	monthLabel      = "Jan 2006"
)

// Window pins the reporting periods to one instant. Month and year ranges
// are inclusive at millisecond precision: End is the next period's start
// minus one millisecond.
type Window struct {
	Now time.Time

	MonthStart time.Time
	MonthEnd   time.Time
	YearStart  time.Time
	YearEnd    time.Time

	// TodayEnd is exclusive.
	TodayStart time.Time
	TodayEnd   time.Time

	UpcomingEnd time.Time
}

// NewWindow computes the periods around now in loc. A nil loc means UTC.
func NewWindow(now time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	y, m, d := now.Date()

	monthStart := time.Date(y, m, 1, 0, 0, 0, 0, loc)
	yearStart := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	todayStart := time.Date(y, m, d, 0, 0, 0, 0, loc)

	return Window{
		Now:         now,
		MonthStart:  monthStart,
		MonthEnd:    lastMilli(monthStart.AddDate(0, 1, 0)),
		YearStart:   yearStart,
		YearEnd:     lastMilli(yearStart.AddDate(1, 0, 0)),
		TodayStart:  todayStart,
		TodayEnd:    todayStart.AddDate(0, 0, 1),
		UpcomingEnd: now.Add(upcomingHorizon),
	}
}

func lastMilli(next time.Time) time.Time {
	return next.Add(-time.Millisecond)
}

// Month is one calendar month of a trend series.
type Month struct {
	Label string
	Start time.Time
	End   time.Time
}

// Months returns the trailing n calendar months including the current one,
// oldest first.
func (w Window) Months(n int) []Month {
	out := make([]Month, 0, n)
	for i := n - 1; i >= 0; i-- {
		start := w.MonthStart.AddDate(0, -i, 0)
		out = append(out, Month{
			Label: start.Format(monthLabel),
			Start: start,
			End:   lastMilli(start.AddDate(0, 1, 0)),
		})
	}
	return out
}

// MonthDates returns the current month as inclusive YYYY-MM-DD bounds, the
// form timesheet dates are stored in.
func (w Window) MonthDates() (from, to string) {
	return w.MonthStart.Format(time.DateOnly), w.MonthEnd.Format(time.DateOnly)
}

// YearDates is MonthDates for the current year.
func (w Window) YearDates() (from, to string) {
	return w.YearStart.Format(time.DateOnly), w.YearEnd.Format(time.DateOnly)
}
