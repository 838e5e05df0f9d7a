package report

import (
	"context"
	"fmt"

	"github.com/garnizeh/ats/internal/models"
	"github.com/garnizeh/ats/pkg/repository"
)

type CustomersOverview struct {
	Total      int64   `json:"total"`
	Active     int64   `json:"active"`
	Inactive   int64   `json:"inactive"`
	Prospects  int64   `json:"prospects"`
	Suspended  int64   `json:"suspended"`
	Other      int64   `json:"other"`
	ActiveRate float64 `json:"activeRate"`
}

type PriorityCount struct {
	Priority string `json:"priority"`
	Count    int64  `json:"count"`
}

type IndustryCount struct {
	Industry string `json:"industry"`
	Count    int64  `json:"count"`
}

type TopCustomer struct {
	ID          int64                 `json:"id"`
	CompanyName string                `json:"companyName"`
	Industry    string                `json:"industry"`
	Status      models.CustomerStatus `json:"status"`
	JobCount    int64                 `json:"jobCount"`
}

type CustomerMetrics struct {
	Overview        CustomersOverview  `json:"overview"`
	ByPriority      []PriorityCount    `json:"byPriority"`
	ByIndustry      []IndustryCount    `json:"byIndustry"`
	TopCustomers    []TopCustomer      `json:"topCustomers"`
	StatusBreakdown []repository.Group `json:"statusBreakdown"`
	RecentCustomers []models.Customer  `json:"recentCustomers"`
}

// Customers summarizes client companies and ranks them by job posts.
func Customers(ctx context.Context, s repository.Store, w Window, lim Limits) (*CustomerMetrics, error) {
	var (
		m                              CustomerMetrics
		statuses, priorities, industry []repository.Group
		top                            []models.Customer
	)

	b := newBatch(ctx, s)
	b.groupBy(&statuses, repository.Customers, repository.GroupQuery{By: "status"})
	b.groupBy(&priorities, repository.Customers, repository.GroupQuery{By: "priority"})
	b.groupBy(&industry, repository.Customers, repository.GroupQuery{By: "industry"})
	b.run(func(ctx context.Context) error {
		var err error
		top, err = s.TopCustomersByJobs(ctx, lim.Top)
		return err
	})
	b.run(func(ctx context.Context) error {
		var err error
		m.RecentCustomers, err = s.FindCustomers(ctx, repository.Query{OrderBy: "createdAt", Desc: true, Limit: lim.Recent})
		return err
	})
	if err := b.wait(); err != nil {
		return nil, fmt.Errorf("customer metrics: %w", err)
	}

	m.Overview = customersOverview(statuses)
	m.StatusBreakdown = statuses
	m.ByPriority = make([]PriorityCount, 0, len(priorities))
	for _, g := range priorities {
		m.ByPriority = append(m.ByPriority, PriorityCount{Priority: g.Key, Count: g.Count})
	}
	m.ByIndustry = []IndustryCount{}
	for _, g := range topByCount(industry, lim.Top) {
		m.ByIndustry = append(m.ByIndustry, IndustryCount{Industry: g.Key, Count: g.Count})
	}
	m.TopCustomers = make([]TopCustomer, 0, len(top))
	for _, c := range top {
		m.TopCustomers = append(m.TopCustomers, TopCustomer{
			ID:          c.ID,
			CompanyName: c.CompanyName,
			Industry:    c.Industry,
			Status:      c.Status,
			JobCount:    c.JobCount,
		})
	}
	return &m, nil
}

func customersOverview(statuses []repository.Group) CustomersOverview {
	var o CustomersOverview
	for _, g := range statuses {
		switch models.CustomerStatus(g.Key) {
		case models.CustomerActive:
			o.Active += g.Count
		case models.CustomerInactive:
			o.Inactive += g.Count
		case models.CustomerProspect:
			o.Prospects += g.Count
		case models.CustomerSuspended:
			o.Suspended += g.Count
		default:
			o.Other += g.Count
		}
	}
	o.Total = countOf(statuses)
	o.ActiveRate = Rate(o.Active, o.Total)
	return o
}
