package report

import (
	"context"
	"fmt"

	"github.com/garnizeh/ats/internal/models"
	"github.com/garnizeh/ats/pkg/repository"
)

type InterviewsOverview struct {
	Total          int64   `json:"total"`
	Scheduled      int64   `json:"scheduled"`
	Completed      int64   `json:"completed"`
	Cancelled      int64   `json:"cancelled"`
	Rescheduled    int64   `json:"rescheduled"`
	Other          int64   `json:"other"`
	CompletionRate float64 `json:"completionRate"`
}

// InterviewCurrent counts scheduled interviews today and all interviews
// dated this month.
type InterviewCurrent struct {
	Today     int64 `json:"today"`
	ThisMonth int64 `json:"thisMonth"`
}

type TypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

type ModeCount struct {
	Mode  string `json:"mode"`
	Count int64  `json:"count"`
}

type InterviewMetrics struct {
	Overview        InterviewsOverview         `json:"overview"`
	Current         InterviewCurrent           `json:"current"`
	ByType          []TypeCount                `json:"byType"`
	ByMode          []ModeCount                `json:"byMode"`
	StatusBreakdown []repository.Group         `json:"statusBreakdown"`
	Upcoming        []models.InterviewSchedule `json:"upcoming"`
}

// upcomingQuery selects scheduled interviews from now through the horizon,
// soonest first.
func upcomingQuery(w Window, limit int) repository.Query {
	where := append(repository.Between("interviewDate", w.Now, w.UpcomingEnd),
		repository.Eq("status", models.InterviewScheduled))
	return repository.Query{Where: where, OrderBy: "interviewDate", Limit: limit}
}

// Interviews summarizes interview schedules.
func Interviews(ctx context.Context, s repository.Store, w Window, lim Limits) (*InterviewMetrics, error) {
	var (
		m                      InterviewMetrics
		statuses, types, modes []repository.Group
	)

	b := newBatch(ctx, s)
	b.groupBy(&statuses, repository.Interviews, repository.GroupQuery{By: "status"})
	b.groupBy(&types, repository.Interviews, repository.GroupQuery{By: "type"})
	b.groupBy(&modes, repository.Interviews, repository.GroupQuery{By: "mode"})
	b.count(&m.Current.Today, repository.Interviews,
		repository.Eq("status", models.InterviewScheduled),
		repository.Gte("interviewDate", w.TodayStart),
		repository.Lt("interviewDate", w.TodayEnd))
	b.count(&m.Current.ThisMonth, repository.Interviews, repository.Between("interviewDate", w.MonthStart, w.MonthEnd)...)
	b.run(func(ctx context.Context) error {
		var err error
		m.Upcoming, err = s.FindInterviews(ctx, upcomingQuery(w, lim.Recent))
		return err
	})
	if err := b.wait(); err != nil {
		return nil, fmt.Errorf("interview metrics: %w", err)
	}

	m.Overview = interviewsOverview(statuses)
	m.StatusBreakdown = statuses
	m.ByType = make([]TypeCount, 0, len(types))
	for _, g := range types {
		m.ByType = append(m.ByType, TypeCount{Type: g.Key, Count: g.Count})
	}
	m.ByMode = make([]ModeCount, 0, len(modes))
	for _, g := range modes {
		m.ByMode = append(m.ByMode, ModeCount{Mode: g.Key, Count: g.Count})
	}
	return &m, nil
}

func interviewsOverview(statuses []repository.Group) InterviewsOverview {
	var o InterviewsOverview
	for _, g := range statuses {
		switch models.InterviewStatus(g.Key) {
		case models.InterviewScheduled:
			o.Scheduled += g.Count
		case models.InterviewCompleted:
			o.Completed += g.Count
		case models.InterviewCancelled:
			o.Cancelled += g.Count
		case models.InterviewRescheduled:
			o.Rescheduled += g.Count
		default:
			o.Other += g.Count
		}
	}
	o.Total = countOf(statuses)
	o.CompletionRate = Rate(o.Completed, o.Total)
	return o
}
