package report

import (
	"context"
	"fmt"

	"github.com/garnizeh/ats/internal/models"
	"github.com/garnizeh/ats/pkg/repository"
)

// Limits caps the ranked and sampled lists of a metric block.
type Limits struct {
	Top    int
	Recent int
}

var (
	// AnalyticsLimits sizes the analytics bundle.
	AnalyticsLimits = Limits{Top: 5, Recent: 5}
	// DetailLimits sizes the report details section.
	DetailLimits = Limits{Top: 10, Recent: 10}
)

const uncategorized = "Uncategorized"

type JobsOverview struct {
	Total    int64   `json:"total"`
	Active   int64   `json:"active"`
	Filled   int64   `json:"filled"`
	Paused   int64   `json:"paused"`
	Closed   int64   `json:"closed"`
	Other    int64   `json:"other"`
	FillRate float64 `json:"fillRate"`
}

type WorkTypeCounts struct {
	Onsite int64 `json:"onsite"`
	Remote int64 `json:"remote"`
	Hybrid int64 `json:"hybrid"`
	Other  int64 `json:"other"`
}

// PeriodCounts counts records created in the current month and year.
type PeriodCounts struct {
	ThisMonth int64 `json:"thisMonth"`
	ThisYear  int64 `json:"thisYear"`
}

type CompanyCount struct {
	Company  string `json:"company"`
	JobCount int64  `json:"jobCount"`
}

type DepartmentCount struct {
	Department string `json:"department"`
	JobCount   int64  `json:"jobCount"`
}

type JobMetrics struct {
	Overview          JobsOverview       `json:"overview"`
	ByWorkType        WorkTypeCounts     `json:"byWorkType"`
	Trends            PeriodCounts       `json:"trends"`
	TopCompanies      []CompanyCount     `json:"topCompanies"`
	TopDepartments    []DepartmentCount  `json:"topDepartments"`
	StatusBreakdown   []repository.Group `json:"statusBreakdown"`
	WorkTypeBreakdown []repository.Group `json:"workTypeBreakdown"`
	RecentJobs        []models.JobPost   `json:"recentJobs"`
}

// Jobs summarizes job posts.
func Jobs(ctx context.Context, s repository.Store, w Window, lim Limits) (*JobMetrics, error) {
	var (
		m                      JobMetrics
		statuses, workTypes    []repository.Group
		companies, departments []repository.Group
	)

	b := newBatch(ctx, s)
	b.groupBy(&statuses, repository.Jobs, repository.GroupQuery{By: "status"})
	b.groupBy(&workTypes, repository.Jobs, repository.GroupQuery{By: "workType"})
	b.groupBy(&companies, repository.Jobs, repository.GroupQuery{By: "company"})
	b.groupBy(&departments, repository.Jobs, repository.GroupQuery{By: "department"})
	b.count(&m.Trends.ThisMonth, repository.Jobs, repository.Between("createdAt", w.MonthStart, w.MonthEnd)...)
	b.count(&m.Trends.ThisYear, repository.Jobs, repository.Between("createdAt", w.YearStart, w.YearEnd)...)
	b.run(func(ctx context.Context) error {
		var err error
		m.RecentJobs, err = s.FindJobs(ctx, repository.Query{OrderBy: "createdAt", Desc: true, Limit: lim.Recent})
		return err
	})
	if err := b.wait(); err != nil {
		return nil, fmt.Errorf("job metrics: %w", err)
	}

	m.Overview = jobsOverview(statuses)
	m.ByWorkType = workTypeCounts(workTypes)
	m.StatusBreakdown = statuses
	m.WorkTypeBreakdown = workTypes
	m.TopCompanies = []CompanyCount{}
	for _, g := range topByCount(companies, lim.Top) {
		m.TopCompanies = append(m.TopCompanies, CompanyCount{Company: g.Key, JobCount: g.Count})
	}
	m.TopDepartments = topDepartments(departments, lim.Top)
	return &m, nil
}

func jobsOverview(statuses []repository.Group) JobsOverview {
	var o JobsOverview
	for _, g := range statuses {
		switch models.JobStatus(g.Key) {
		case models.JobActive:
			o.Active += g.Count
		case models.JobFilled:
			o.Filled += g.Count
		case models.JobPaused:
			o.Paused += g.Count
		case models.JobClosed:
			o.Closed += g.Count
		default:
			o.Other += g.Count
		}
	}
	o.Total = countOf(statuses)
	o.FillRate = Rate(o.Filled, o.Total)
	return o
}

func workTypeCounts(groups []repository.Group) WorkTypeCounts {
	var c WorkTypeCounts
	for _, g := range groups {
		switch models.WorkType(g.Key) {
		case models.WorkOnsite:
			c.Onsite += g.Count
		case models.WorkRemote:
			c.Remote += g.Count
		case models.WorkHybrid:
			c.Hybrid += g.Count
		default:
			c.Other += g.Count
		}
	}
	return c
}

// topDepartments ranks departments by job count. Jobs without a department
// are reported as Uncategorized.
func topDepartments(groups []repository.Group, n int) []DepartmentCount {
	out := []DepartmentCount{}
	for _, g := range topByCount(groups, n) {
		name := g.Key
		if name == "" {
			name = uncategorized
		}
		out = append(out, DepartmentCount{Department: name, JobCount: g.Count})
	}
	return out
}
