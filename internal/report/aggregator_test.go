package report_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/ats/internal/models"
	"github.com/garnizeh/ats/internal/report"
	"github.com/garnizeh/ats/internal/repository/sqlstore/sqlstoretest"
	"github.com/garnizeh/ats/pkg/repository"
	"github.com/garnizeh/ats/pkg/repository/mock"
)

var now = time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)

func fixedClock() report.Clock {
	return report.ClockFunc(func() time.Time { return now })
}

func newAggregator(s repository.Store, opts ...report.Option) *report.Aggregator {
	return report.New(s, append([]report.Option{report.WithClock(fixedClock())}, opts...)...)
}

func TestReport_EmptyStore(t *testing.T) {
	f := sqlstoretest.Open(t)

	r, err := newAggregator(f.Store, report.WithSchemaValidation(true)).Report(context.Background())
	require.NoError(t, err)

	assert.Zero(t, r.Summary.Jobs.FillRate)
	assert.Zero(t, r.Summary.Candidates.ConversionRate)
	assert.Zero(t, r.Summary.Interviews.CompletionRate)
	assert.Zero(t, r.Summary.Customers.ActiveRate)
	assert.Zero(t, r.Summary.Timesheets.ApprovalRate)
	assert.Zero(t, r.Summary.Performance.AvgTimeToFill)
	assert.Zero(t, r.Summary.Performance.InterviewConversionRate)
	assert.Zero(t, r.Summary.Performance.HireConversionRate)
	assert.Zero(t, r.Metadata.TotalRecords)
	assert.Len(t, r.Insights, 3)

	// NaN or Inf would make encoding fail.
	_, err = json.Marshal(r)
	require.NoError(t, err)
}

func TestReport_Summary(t *testing.T) {
	f := sqlstoretest.Open(t)
	ctx := context.Background()

	acme := f.Customer(models.Customer{CompanyName: "Acme", Industry: "Tech", CreatedAt: now.AddDate(0, -2, 0)})
	f.Customer(models.Customer{CompanyName: "Initech", Status: models.CustomerProspect, CreatedAt: now.AddDate(0, -1, 0)})

	created := now.AddDate(0, 0, -10)
	filled := f.Job(models.JobPost{Company: "Acme", CustomerID: &acme, Status: models.JobFilled, CreatedAt: created})
	open := f.Job(models.JobPost{Company: "Acme", CustomerID: &acme, CreatedAt: now.AddDate(0, -1, 0)})
	f.Job(models.JobPost{Company: "Globex", Status: models.JobPaused, CreatedAt: now.AddDate(0, -1, 0)})

	hired := f.Candidate(models.CandidateApplication{JobID: filled, Status: "Hired", AppliedAt: created.Add(50 * time.Hour)})
	pending := f.Candidate(models.CandidateApplication{JobID: open, AppliedAt: now.AddDate(0, 0, -1)})
	f.Candidate(models.CandidateApplication{JobID: open, Status: "First Interview", AppliedAt: now.AddDate(0, 0, -2)})
	f.Candidate(models.CandidateApplication{JobID: open, Status: models.CandidateRejected, AppliedAt: now.AddDate(0, -1, 0)})

	f.Interview(models.InterviewSchedule{CandidateID: hired, Status: models.InterviewCompleted, InterviewDate: created.Add(24 * time.Hour)})
	f.Interview(models.InterviewSchedule{CandidateID: hired, Status: models.InterviewCompleted, InterviewDate: created.Add(48 * time.Hour)})
	f.Interview(models.InterviewSchedule{CandidateID: pending, InterviewDate: now.Add(48 * time.Hour)})

	f.Timesheet(models.TimesheetEntry{Date: "2026-03-02", Hours: 6, Status: models.TimesheetApproved, Billable: true})
	f.Timesheet(models.TimesheetEntry{Date: "2026-02-27", Hours: 2.5, Status: models.TimesheetApproved})
	f.Timesheet(models.TimesheetEntry{Date: "2026-03-03", Hours: 4})

	r, err := newAggregator(f.Store, report.WithSchemaValidation(true)).Report(ctx)
	require.NoError(t, err)

	assert.Equal(t, report.Overall{
		TotalJobs: 3, TotalCandidates: 4, TotalInterviews: 3, TotalCustomers: 2, TotalTimesheets: 3, TotalActivities: 15,
	}, r.Summary.Overall)
	assert.EqualValues(t, 15, r.Metadata.TotalRecords)
	assert.Equal(t, now, r.Metadata.GeneratedAt)

	assert.EqualValues(t, 1, r.Summary.Jobs.Filled)
	assert.Equal(t, 33.33, r.Summary.Jobs.FillRate)
	assert.EqualValues(t, 1, r.Summary.Candidates.Hired, "status match is case-insensitive")
	assert.EqualValues(t, 1, r.Summary.Candidates.Other)
	assert.Equal(t, 25.0, r.Summary.Candidates.ConversionRate)
	assert.Equal(t, 66.67, r.Summary.Interviews.CompletionRate)
	assert.Equal(t, 50.0, r.Summary.Customers.ActiveRate)

	assert.Equal(t, report.TimesheetSummary{
		Total: 3, TotalHours: 12.5, BillableHours: 6, Approved: 2, Pending: 1, ApprovalRate: 66.67,
	}, r.Summary.Timesheets)

	perf := r.Summary.Performance
	assert.Equal(t, 3.0, perf.AvgTimeToFill)
	assert.EqualValues(t, 1, perf.TotalFilledJobs)
	assert.Equal(t, 50.0, perf.InterviewConversionRate)
	assert.Equal(t, 66.67, perf.HireConversionRate)

	categories := make([]string, 0, len(r.Insights))
	for _, in := range r.Insights {
		categories = append(categories, in.Category)
	}
	assert.Equal(t, []string{"interviews"}, categories)

	require.Len(t, r.Trends, 2)
	assert.Equal(t, report.Trend{Category: "jobs", Trend: report.TrendDecreasing, Change: 1, Period: "monthly"}, r.Trends[0])
	assert.Equal(t, report.Trend{Category: "candidates", Trend: report.TrendIncreasing, Change: 2, Period: "monthly"}, r.Trends[1])

	require.Len(t, r.Details.Jobs.RecentJobs, 3)
	assert.Equal(t, filled, r.Details.Jobs.RecentJobs[0].ID)
	assert.Equal(t, []report.SkillCount{}, r.Details.Candidates.TopSkills)
}

func TestPerformance_TimeToFillExcludesUnhiredJobs(t *testing.T) {
	f := sqlstoretest.Open(t)
	created := now.AddDate(0, -1, 0)

	a := f.Job(models.JobPost{Status: models.JobFilled, CreatedAt: created})
	b := f.Job(models.JobPost{Status: models.JobFilled, CreatedAt: created})
	f.Job(models.JobPost{Status: models.JobFilled, CreatedAt: created})

	f.Candidate(models.CandidateApplication{JobID: a, Status: models.CandidateHired, AppliedAt: created.Add(2 * 24 * time.Hour)})
	f.Candidate(models.CandidateApplication{JobID: b, Status: models.CandidateHired, AppliedAt: created.Add(6 * 24 * time.Hour)})
	// A later hire on the same job does not move its time-to-fill.
	f.Candidate(models.CandidateApplication{JobID: b, Status: models.CandidateHired, AppliedAt: created.Add(20 * 24 * time.Hour)})

	p, err := report.PerformanceMetrics(context.Background(), f.Store)
	require.NoError(t, err)
	assert.Equal(t, 4.0, p.AvgTimeToFill)
	assert.EqualValues(t, 2, p.TotalFilledJobs)
}

func TestJobs_TopCompaniesOrdering(t *testing.T) {
	f := sqlstoretest.Open(t)

	add := func(company string, n int) {
		for range n {
			f.Job(models.JobPost{Company: company, CreatedAt: now})
		}
	}
	add("Delta", 1)
	add("Charlie", 3)
	add("Bravo", 5)
	add("Alpha", 5)
	add("Echo", 1)
	add("Foxtrot", 1)
	add("Golf", 1)

	m, err := report.Jobs(context.Background(), f.Store, report.NewWindow(now, nil), report.AnalyticsLimits)
	require.NoError(t, err)

	require.Len(t, m.TopCompanies, 5)
	assert.Equal(t, []report.CompanyCount{
		{Company: "Bravo", JobCount: 5},
		{Company: "Alpha", JobCount: 5},
		{Company: "Charlie", JobCount: 3},
		{Company: "Delta", JobCount: 1},
		{Company: "Echo", JobCount: 1},
	}, m.TopCompanies)
}

func TestJobs_UnknownStatusesLandInOther(t *testing.T) {
	f := sqlstoretest.Open(t)
	f.Job(models.JobPost{Status: models.JobActive, WorkType: models.WorkRemote, CreatedAt: now})
	f.Job(models.JobPost{Status: "ARCHIVED", WorkType: "FLOATING", CreatedAt: now})
	f.Job(models.JobPost{Status: models.JobFilled, Department: "Engineering", CreatedAt: now.AddDate(-1, 0, 0)})

	m, err := report.Jobs(context.Background(), f.Store, report.NewWindow(now, nil), report.AnalyticsLimits)
	require.NoError(t, err)

	assert.Equal(t, report.JobsOverview{Total: 3, Active: 1, Filled: 1, Other: 1, FillRate: 33.33}, m.Overview)
	assert.Equal(t, report.WorkTypeCounts{Onsite: 1, Remote: 1, Other: 1}, m.ByWorkType)
	assert.Equal(t, report.PeriodCounts{ThisMonth: 2, ThisYear: 2}, m.Trends)
	assert.Equal(t, []report.DepartmentCount{
		{Department: "Uncategorized", JobCount: 2},
		{Department: "Engineering", JobCount: 1},
	}, m.TopDepartments)
}

func TestJobs_BlankAndMissingDepartmentsShareOneBucket(t *testing.T) {
	f := sqlstoretest.Open(t)
	f.Job(models.JobPost{Department: "Sales", CreatedAt: now})
	f.Job(models.JobPost{CreatedAt: now})
	blank := f.Job(models.JobPost{CreatedAt: now})
	_, err := f.DB.Exec(context.Background(), `UPDATE job_posts SET department = '' WHERE id = ?`, blank)
	require.NoError(t, err)

	m, err := report.Jobs(context.Background(), f.Store, report.NewWindow(now, nil), report.AnalyticsLimits)
	require.NoError(t, err)
	assert.Equal(t, []report.DepartmentCount{
		{Department: "Uncategorized", JobCount: 2},
		{Department: "Sales", JobCount: 1},
	}, m.TopDepartments)
}

func TestMonthlySeries_AlwaysSixMonths(t *testing.T) {
	f := sqlstoretest.Open(t)
	w := report.NewWindow(now, nil)

	f.Job(models.JobPost{CreatedAt: w.MonthStart})
	f.Job(models.JobPost{CreatedAt: w.MonthStart.Add(-time.Millisecond)}) // last instant of February
	f.Job(models.JobPost{CreatedAt: time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)})
	f.Job(models.JobPost{CreatedAt: time.Date(2025, time.September, 30, 0, 0, 0, 0, time.UTC)}) // outside the window

	series, err := report.MonthlySeries(context.Background(), f.Store, repository.Jobs, "createdAt", w)
	require.NoError(t, err)

	assert.Equal(t, []report.MonthCount{
		{Month: "Oct 2025", Count: 1},
		{Month: "Nov 2025", Count: 0},
		{Month: "Dec 2025", Count: 0},
		{Month: "Jan 2026", Count: 0},
		{Month: "Feb 2026", Count: 1},
		{Month: "Mar 2026", Count: 1},
	}, series)
}

func TestReport_CarriesMonthlySeries(t *testing.T) {
	f := sqlstoretest.Open(t)
	job := f.Job(models.JobPost{CreatedAt: now.AddDate(0, 0, -2)})
	f.Job(models.JobPost{CreatedAt: now.AddDate(0, -1, 0)})
	f.Candidate(models.CandidateApplication{JobID: job, AppliedAt: now.AddDate(0, 0, -1)})

	r, err := newAggregator(f.Store, report.WithSchemaValidation(true)).Report(context.Background())
	require.NoError(t, err)

	require.Len(t, r.Series.Jobs, 6)
	require.Len(t, r.Series.Candidates, 6)
	assert.Equal(t, report.MonthCount{Month: "Feb 2026", Count: 1}, r.Series.Jobs[4])
	assert.Equal(t, report.MonthCount{Month: "Mar 2026", Count: 1}, r.Series.Jobs[5])
	assert.Equal(t, report.MonthCount{Month: "Mar 2026", Count: 1}, r.Series.Candidates[5])
	assert.Equal(t, "Oct 2025", r.Series.Candidates[0].Month)

	doc, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(doc), `"series":{"jobs":[{"month":"Oct 2025","count":0}`)
}

func TestMonthlySeries_EmptyStore(t *testing.T) {
	f := sqlstoretest.Open(t)

	series, err := report.MonthlySeries(context.Background(), f.Store, repository.Candidates, "appliedAt", report.NewWindow(now, nil))
	require.NoError(t, err)
	require.Len(t, series, 6)
	for _, m := range series {
		assert.Zero(t, m.Count)
	}
}

func TestCandidates_Metrics(t *testing.T) {
	f := sqlstoretest.Open(t)
	job := f.Job(models.JobPost{Title: "Backend", Company: "Acme", CreatedAt: now})

	f.Candidate(models.CandidateApplication{JobID: job, Status: "Shortlisted", YearsOfExperience: ptrInt(3), KeySkills: "Go, SQL", AppliedAt: now.AddDate(0, 0, -3)})
	f.Candidate(models.CandidateApplication{JobID: job, Status: "HIRED", YearsOfExperience: ptrInt(5), KeySkills: "Go", AppliedAt: now.AddDate(0, 0, -2)})
	f.Candidate(models.CandidateApplication{JobID: job, YearsOfExperience: ptrInt(3), AppliedAt: now.AddDate(0, -2, 0)})

	m, err := report.Candidates(context.Background(), f.Store, report.NewWindow(now, nil), report.AnalyticsLimits)
	require.NoError(t, err)

	assert.EqualValues(t, 3, m.Overview.Total)
	assert.EqualValues(t, 1, m.Overview.Shortlisted)
	assert.EqualValues(t, 1, m.Overview.Hired)
	assert.EqualValues(t, 1, m.Overview.Pending)
	assert.Equal(t, report.ConversionRates{ShortlistRate: 33.33, HireRate: 33.33}, m.ConversionRates)
	assert.Equal(t, report.PeriodCounts{ThisMonth: 2, ThisYear: 3}, m.Trends)
	assert.Equal(t, []report.ExperienceCount{{Experience: 3, Count: 2}, {Experience: 5, Count: 1}}, m.ExperienceLevels)
	assert.Equal(t, []report.SkillCount{{Skill: "Go", Count: 2}, {Skill: "SQL", Count: 1}}, m.TopSkills)

	require.Len(t, m.RecentApplications, 3)
	require.NotNil(t, m.RecentApplications[0].Job)
	assert.Equal(t, "Backend", m.RecentApplications[0].Job.Title)
}

func TestInterviews_UpcomingAndToday(t *testing.T) {
	f := sqlstoretest.Open(t)
	job := f.Job(models.JobPost{CreatedAt: now})
	cand := f.Candidate(models.CandidateApplication{JobID: job, AppliedAt: now})

	for i := range 7 {
		f.Interview(models.InterviewSchedule{CandidateID: cand, InterviewDate: now.Add(time.Duration(7-i) * 12 * time.Hour), Type: "Technical", Mode: "ONLINE"})
	}
	f.Interview(models.InterviewSchedule{CandidateID: cand, InterviewDate: now.Add(8 * 24 * time.Hour)})
	f.Interview(models.InterviewSchedule{CandidateID: cand, InterviewDate: now.Add(time.Hour), Status: models.InterviewCancelled})
	f.Interview(models.InterviewSchedule{CandidateID: cand, InterviewDate: now.Add(-time.Hour), Status: models.InterviewCompleted})

	m, err := report.Interviews(context.Background(), f.Store, report.NewWindow(now, nil), report.AnalyticsLimits)
	require.NoError(t, err)

	require.Len(t, m.Upcoming, 5)
	for i := 1; i < len(m.Upcoming); i++ {
		assert.True(t, m.Upcoming[i-1].InterviewDate.Before(m.Upcoming[i].InterviewDate))
	}
	assert.Equal(t, now.Add(12*time.Hour), m.Upcoming[0].InterviewDate)

	// Scheduled today: +12h lands on the 15th at 22:00.
	assert.EqualValues(t, 1, m.Current.Today)
	assert.EqualValues(t, 10, m.Current.ThisMonth)
	assert.Equal(t, []report.TypeCount{{Type: "Technical", Count: 7}, {Type: "", Count: 3}}, m.ByType)
	assert.EqualValues(t, 8, m.Overview.Scheduled)
	assert.Equal(t, 10.0, m.Overview.CompletionRate)
}

func TestCustomers_Metrics(t *testing.T) {
	f := sqlstoretest.Open(t)

	ids := make([]int64, 0, 6)
	for i, industry := range []string{"Tech", "Health", "Tech", "Retail", "Tech", "Health"} {
		ids = append(ids, f.Customer(models.Customer{CompanyName: fmt.Sprintf("C%d", i), Industry: industry, CreatedAt: now.Add(time.Duration(i) * time.Minute)}))
	}
	for range 3 {
		f.Job(models.JobPost{CustomerID: &ids[4], CreatedAt: now})
	}
	f.Job(models.JobPost{CustomerID: &ids[1], CreatedAt: now})

	m, err := report.Customers(context.Background(), f.Store, report.NewWindow(now, nil), report.AnalyticsLimits)
	require.NoError(t, err)

	assert.Equal(t, report.CustomersOverview{Total: 6, Active: 6, ActiveRate: 100}, m.Overview)
	assert.Equal(t, []report.IndustryCount{{Industry: "Tech", Count: 3}, {Industry: "Health", Count: 2}, {Industry: "Retail", Count: 1}}, m.ByIndustry)
	require.Len(t, m.TopCustomers, 5)
	assert.Equal(t, "C4", m.TopCustomers[0].CompanyName)
	assert.EqualValues(t, 3, m.TopCustomers[0].JobCount)
	assert.Equal(t, "C1", m.TopCustomers[1].CompanyName)
	require.Len(t, m.RecentCustomers, 5)
	assert.Equal(t, "C5", m.RecentCustomers[0].CompanyName)
}

func TestTimesheets_Metrics(t *testing.T) {
	f := sqlstoretest.Open(t)

	f.Timesheet(models.TimesheetEntry{RecruiterName: "Ana", Date: "2026-03-01", Hours: 3, TaskCategory: "Sourcing", EntityType: "JOB", Status: models.TimesheetApproved})
	f.Timesheet(models.TimesheetEntry{RecruiterName: "Bo", Date: "2026-03-31", Hours: 5, TaskCategory: "Screening", EntityType: "CANDIDATE", Status: models.TimesheetApproved, Billable: true})
	f.Timesheet(models.TimesheetEntry{RecruiterName: "Ana", Date: "2026-01-10", Hours: 4, TaskCategory: "Sourcing", EntityType: "JOB", Status: models.TimesheetApproved})
	f.Timesheet(models.TimesheetEntry{RecruiterName: "Cy", Date: "2025-12-31", Hours: 1.25, TaskCategory: "Admin", Status: models.TimesheetApproved})
	f.Timesheet(models.TimesheetEntry{RecruiterName: "Bo", Date: "2026-03-02", Hours: 8, Status: models.TimesheetRejected, Billable: true})

	m, err := report.Timesheets(context.Background(), f.Store, report.NewWindow(now, nil), report.AnalyticsLimits)
	require.NoError(t, err)

	assert.Equal(t, report.TimesheetsOverview{TotalEntries: 5, Approved: 4, Rejected: 1, ApprovalRate: 80}, m.Overview)
	assert.Equal(t, report.HoursSummary{Total: 13.25, ThisMonth: 8, ThisYear: 12, Logged: 21.25, Billable: 13}, m.Hours)
	assert.Equal(t, []report.CategoryHours{{Category: "Sourcing", Hours: 7}, {Category: "Screening", Hours: 5}, {Category: "Admin", Hours: 1.25}}, m.ByCategory)
	assert.Equal(t, []report.RecruiterHours{{Name: "Ana", Hours: 7}, {Name: "Bo", Hours: 5}, {Name: "Cy", Hours: 1.25}}, m.TopRecruiters)
}

func TestAnalytics_Shape(t *testing.T) {
	f := sqlstoretest.Open(t)
	job := f.Job(models.JobPost{Company: "Acme", CreatedAt: now})
	for i := range 4 {
		f.Candidate(models.CandidateApplication{JobID: job, AppliedAt: now.Add(-time.Duration(i) * time.Hour)})
	}

	a, err := newAggregator(f.Store).Analytics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, now, a.Timestamp)
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), a.Period.Current.Month)
	assert.Len(t, a.RecentActivity.RecentApplications, 3)
	assert.Len(t, a.RecentActivity.RecentJobs, 1)
	assert.Len(t, a.Trends.MonthlyJobTrend, 6)
	assert.Len(t, a.Trends.MonthlyApplicationTrend, 6)
	assert.Equal(t, []report.DepartmentCount{{Department: "Uncategorized", JobCount: 1}}, a.Trends.TopJobCategories)
	assert.Len(t, a.Candidates.RecentApplications, 4)
}

func TestDashboardAndQuickStats(t *testing.T) {
	f := sqlstoretest.Open(t)
	cust := f.Customer(models.Customer{CompanyName: "Acme", Industry: "Tech", CreatedAt: now})
	job := f.Job(models.JobPost{CustomerID: &cust, WorkType: models.WorkHybrid, CreatedAt: now})
	f.Job(models.JobPost{Status: models.JobClosed, CreatedAt: now.AddDate(0, -2, 0)})
	cand := f.Candidate(models.CandidateApplication{JobID: job, AppliedAt: now})
	f.Interview(models.InterviewSchedule{CandidateID: cand, InterviewDate: now.Add(2 * time.Hour)})
	f.Interview(models.InterviewSchedule{CandidateID: cand, InterviewDate: now.Add(3 * 24 * time.Hour)})
	f.Timesheet(models.TimesheetEntry{Date: "2026-03-05", Hours: 2, TaskCategory: "Sourcing", Status: models.TimesheetApproved})
	f.Timesheet(models.TimesheetEntry{Date: "2026-03-06", Hours: 1, TaskCategory: "Sourcing"})

	agg := newAggregator(f.Store)
	d, err := agg.Dashboard(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 2, d.Summary.TotalJobs)
	assert.EqualValues(t, 1, d.Summary.ActiveJobs)
	assert.EqualValues(t, 1, d.Summary.ScheduledInterviews)
	assert.EqualValues(t, 2, d.Summary.MonthlyHours)
	assert.Len(t, d.Recent.UpcomingInterviews, 2)
	assert.Len(t, d.Recent.Timesheets, 2)
	assert.Equal(t, []report.IndustryCount{{Industry: "Tech", Count: 1}}, d.Charts.IndustryDistribution)
	assert.Equal(t, []report.CategoryCount{{Category: "Sourcing", Count: 2}}, d.Charts.TaskCategoryDistribution)
	assert.Equal(t, []report.WorkTypeCount{{WorkType: "HYBRID", Count: 1}, {WorkType: "ONSITE", Count: 1}}, d.Charts.WorkTypeDistribution)

	qs, err := agg.QuickStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.QuickStats{
		ActiveJobs: 1, PendingCandidates: 1, ScheduledInterviews: 2, PendingTimesheets: 1,
		NewApplicationsThisMonth: 1, NewJobsThisMonth: 1,
	}, *qs)
}

func TestReport_FailureFailsWholeReport(t *testing.T) {
	f := sqlstoretest.Open(t)
	store := mock.New(f.Store)
	store.Fail("EarliestHires", fmt.Errorf("store down: %w", repository.ErrUnavailable))

	r, err := newAggregator(store).Report(context.Background())
	require.Error(t, err)
	assert.Nil(t, r)
	assert.ErrorIs(t, err, repository.ErrUnavailable)
}

func TestReport_Timeout(t *testing.T) {
	f := sqlstoretest.Open(t)
	store := mock.New(f.Store)
	store.Delay(time.Second)

	start := time.Now()
	_, err := newAggregator(store, report.WithTimeout(20*time.Millisecond)).Report(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

type narratorFunc func(ctx context.Context, r *report.Report) (string, error)

func (f narratorFunc) Narrate(ctx context.Context, r *report.Report) (string, error) { return f(ctx, r) }

func TestReport_Narrator(t *testing.T) {
	f := sqlstoretest.Open(t)

	ok := narratorFunc(func(_ context.Context, r *report.Report) (string, error) {
		return fmt.Sprintf("%d records", r.Metadata.TotalRecords), nil
	})
	r, err := newAggregator(f.Store, report.WithNarrator(ok)).Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0 records", r.Narrative)

	failing := narratorFunc(func(context.Context, *report.Report) (string, error) {
		return "", errors.New("model offline")
	})
	r, err = newAggregator(f.Store, report.WithNarrator(failing)).Report(context.Background())
	require.NoError(t, err)
	assert.Empty(t, r.Narrative)
}

func TestValidateDocument(t *testing.T) {
	ctx := context.Background()
	assert.NotEmpty(t, report.Schema())

	err := report.ValidateDocument(ctx, []byte(`{"metadata":{}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, report.ErrSchemaMismatch)
}

func ptrInt(v int64) *int64 { return &v }
