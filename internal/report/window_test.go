package report_test

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/ats/internal/report"
)

func TestNewWindow_UTC(t *testing.T) {
	now := time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)
	w := report.NewWindow(now, nil)

	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), w.MonthStart)
	assert.Equal(t, time.Date(2026, time.March, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC), w.MonthEnd)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), w.YearStart)
	assert.Equal(t, time.Date(2026, time.December, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC), w.YearEnd)
	assert.Equal(t, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC), w.TodayStart)
	assert.Equal(t, time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC), w.TodayEnd)
	assert.Equal(t, now.Add(7*24*time.Hour), w.UpcomingEnd)

	from, to := w.MonthDates()
	assert.Equal(t, "2026-03-01", from)
	assert.Equal(t, "2026-03-31", to)
	from, to = w.YearDates()
	assert.Equal(t, "2026-01-01", from)
	assert.Equal(t, "2026-12-31", to)
}

func TestNewWindow_Location(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	// 01:00 UTC on April 1st is still March 31st in Sao Paulo.
	w := report.NewWindow(time.Date(2026, time.April, 1, 1, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, time.March, w.MonthStart.Month())
	assert.Equal(t, time.Date(2026, time.March, 1, 3, 0, 0, 0, time.UTC), w.MonthStart.UTC())
}

func TestWindow_Months(t *testing.T) {
	w := report.NewWindow(time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC), nil)
	months := w.Months(6)
	require.Len(t, months, 6)

	labels := make([]string, 0, len(months))
	for _, m := range months {
		labels = append(labels, m.Label)
	}
	assert.Equal(t, []string{"Sep 2025", "Oct 2025", "Nov 2025", "Dec 2025", "Jan 2026", "Feb 2026"}, labels)

	for i := 1; i < len(months); i++ {
		assert.Equal(t, months[i-1].End.Add(time.Millisecond), months[i].Start, "months must be contiguous")
	}
	assert.Equal(t, w.MonthEnd, months[5].End)
}
