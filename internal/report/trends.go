package report

import (
	"context"
	"fmt"

	"github.com/garnizeh/ats/pkg/repository"
)

const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// MonthCount is one entry of a monthly creation series.
type MonthCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// Trend compares the last two months of a series.
type Trend struct {
	Category string `json:"category"`
	Trend    string `json:"trend"`
	Change   int64  `json:"change"`
	Period   string `json:"period"`
}

// Series holds the six monthly counts the report trends are derived from.
type Series struct {
	Jobs       []MonthCount `json:"jobs"`
	Candidates []MonthCount `json:"candidates"`
}

// TrendBlock is the trends section of the analytics bundle.
type TrendBlock struct {
	MonthlyJobTrend         []MonthCount      `json:"monthlyJobTrend"`
	MonthlyApplicationTrend []MonthCount      `json:"monthlyApplicationTrend"`
	TopJobCategories        []DepartmentCount `json:"topJobCategories"`
}

// MonthlySeries counts records of c whose field falls in each of the
// trailing months of w, oldest first. Months without records count zero.
func MonthlySeries(ctx context.Context, s repository.Store, c repository.Collection, field string, w Window) ([]MonthCount, error) {
	months := w.Months(trendMonths)
	out := make([]MonthCount, len(months))

	b := newBatch(ctx, s)
	for i, m := range months {
		out[i].Month = m.Label
		b.count(&out[i].Count, c, repository.Between(field, m.Start, m.End)...)
	}
	if err := b.wait(); err != nil {
		return nil, fmt.Errorf("monthly %s series: %w", c, err)
	}
	return out, nil
}

// Direction reports how the last month of series moved against the one
// before it. Series shorter than two months are stable.
func Direction(category string, series []MonthCount) Trend {
	t := Trend{Category: category, Trend: TrendStable, Period: "monthly"}
	if len(series) < 2 {
		return t
	}
	delta := series[len(series)-1].Count - series[len(series)-2].Count
	switch {
	case delta > 0:
		t.Trend = TrendIncreasing
	case delta < 0:
		t.Trend = TrendDecreasing
		delta = -delta
	}
	t.Change = delta
	return t
}

// Trends builds the analytics trend block.
func Trends(ctx context.Context, s repository.Store, w Window) (*TrendBlock, error) {
	var (
		tb          TrendBlock
		departments []repository.Group
	)

	b := newBatch(ctx, s)
	b.run(func(ctx context.Context) error {
		var err error
		tb.MonthlyJobTrend, err = MonthlySeries(ctx, s, repository.Jobs, "createdAt", w)
		return err
	})
	b.run(func(ctx context.Context) error {
		var err error
		tb.MonthlyApplicationTrend, err = MonthlySeries(ctx, s, repository.Candidates, "appliedAt", w)
		return err
	})
	b.groupBy(&departments, repository.Jobs, repository.GroupQuery{By: "department"})
	if err := b.wait(); err != nil {
		return nil, fmt.Errorf("trends: %w", err)
	}
	tb.TopJobCategories = topDepartments(departments, AnalyticsLimits.Top)
	return &tb, nil
}
