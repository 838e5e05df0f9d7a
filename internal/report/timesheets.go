package report

import (
	"context"
	"fmt"

	"github.com/garnizeh/ats/internal/models"
	"github.com/garnizeh/ats/pkg/repository"
)

type TimesheetsOverview struct {
	TotalEntries int64   `json:"totalEntries"`
	Pending      int64   `json:"pending"`
	Approved     int64   `json:"approved"`
	Rejected     int64   `json:"rejected"`
	Other        int64   `json:"other"`
	ApprovalRate float64 `json:"approvalRate"`
}

// HoursSummary totals hours. Total, ThisMonth and ThisYear cover approved
// entries only; Logged and Billable cover every entry.
type HoursSummary struct {
	Total     float64 `json:"total"`
	ThisMonth float64 `json:"thisMonth"`
	ThisYear  float64 `json:"thisYear"`
	Logged    float64 `json:"logged"`
	Billable  float64 `json:"billable"`
}

type CategoryHours struct {
	Category string  `json:"category"`
	Hours    float64 `json:"hours"`
}

type EntityHours struct {
	Entity string  `json:"entity"`
	Hours  float64 `json:"hours"`
}

type RecruiterHours struct {
	Name  string  `json:"name"`
	Hours float64 `json:"hours"`
}

type TimesheetMetrics struct {
	Overview          TimesheetsOverview      `json:"overview"`
	Hours             HoursSummary            `json:"hours"`
	ByCategory        []CategoryHours         `json:"byCategory"`
	ByEntity          []EntityHours           `json:"byEntity"`
	TopRecruiters     []RecruiterHours        `json:"topRecruiters"`
	StatusBreakdown   []repository.Group      `json:"statusBreakdown"`
	PriorityBreakdown []repository.Group      `json:"priorityBreakdown"`
	RecentEntries     []models.TimesheetEntry `json:"recentEntries"`
}

func approved() repository.Cond {
	return repository.Eq("status", models.TimesheetApproved)
}

// Timesheets summarizes recruiter time entries.
func Timesheets(ctx context.Context, s repository.Store, w Window, lim Limits) (*TimesheetMetrics, error) {
	var (
		m                              TimesheetMetrics
		statuses, priorities           []repository.Group
		categories, entities, recruits []repository.Group
	)
	monthFrom, monthTo := w.MonthDates()
	yearFrom, yearTo := w.YearDates()

	b := newBatch(ctx, s)
	b.groupBy(&statuses, repository.Timesheets, repository.GroupQuery{By: "status"})
	b.groupBy(&priorities, repository.Timesheets, repository.GroupQuery{By: "priority"})
	b.groupBy(&categories, repository.Timesheets, repository.GroupQuery{By: "taskCategory", Sum: "hours", Where: []repository.Cond{approved()}})
	b.groupBy(&entities, repository.Timesheets, repository.GroupQuery{By: "entityType", Sum: "hours", Where: []repository.Cond{approved()}})
	b.groupBy(&recruits, repository.Timesheets, repository.GroupQuery{By: "recruiterName", Sum: "hours", Where: []repository.Cond{approved()}})
	b.sum(&m.Hours.Total, repository.Timesheets, "hours", approved())
	b.sum(&m.Hours.ThisMonth, repository.Timesheets, "hours", approved(), repository.Gte("date", monthFrom), repository.Lte("date", monthTo))
	b.sum(&m.Hours.ThisYear, repository.Timesheets, "hours", approved(), repository.Gte("date", yearFrom), repository.Lte("date", yearTo))
	b.sum(&m.Hours.Logged, repository.Timesheets, "hours")
	b.sum(&m.Hours.Billable, repository.Timesheets, "hours", repository.Eq("billable", true))
	b.run(func(ctx context.Context) error {
		var err error
		m.RecentEntries, err = s.FindTimesheets(ctx, repository.Query{OrderBy: "createdAt", Desc: true, Limit: lim.Recent})
		return err
	})
	if err := b.wait(); err != nil {
		return nil, fmt.Errorf("timesheet metrics: %w", err)
	}

	m.Overview = timesheetsOverview(statuses)
	m.StatusBreakdown = statuses
	m.PriorityBreakdown = priorities
	m.Hours.Total = Round2(m.Hours.Total)
	m.Hours.ThisMonth = Round2(m.Hours.ThisMonth)
	m.Hours.ThisYear = Round2(m.Hours.ThisYear)
	m.Hours.Logged = Round2(m.Hours.Logged)
	m.Hours.Billable = Round2(m.Hours.Billable)

	m.ByCategory = make([]CategoryHours, 0, len(categories))
	for _, g := range categories {
		m.ByCategory = append(m.ByCategory, CategoryHours{Category: g.Key, Hours: Round2(g.Sum)})
	}
	m.ByEntity = make([]EntityHours, 0, len(entities))
	for _, g := range entities {
		m.ByEntity = append(m.ByEntity, EntityHours{Entity: g.Key, Hours: Round2(g.Sum)})
	}
	m.TopRecruiters = []RecruiterHours{}
	for _, g := range topBySum(recruits, lim.Top) {
		m.TopRecruiters = append(m.TopRecruiters, RecruiterHours{Name: g.Key, Hours: Round2(g.Sum)})
	}
	return &m, nil
}

func timesheetsOverview(statuses []repository.Group) TimesheetsOverview {
	var o TimesheetsOverview
	for _, g := range statuses {
		switch models.TimesheetStatus(g.Key) {
		case models.TimesheetPending:
			o.Pending += g.Count
		case models.TimesheetApproved:
			o.Approved += g.Count
		case models.TimesheetRejected:
			o.Rejected += g.Count
		default:
			o.Other += g.Count
		}
	}
	o.TotalEntries = countOf(statuses)
	o.ApprovalRate = Rate(o.Approved, o.TotalEntries)
	return o
}
