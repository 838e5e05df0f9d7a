package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/garnizeh/ats/internal/models"
	"github.com/garnizeh/ats/pkg/repository"
)

const (
	tracerName     = "github.com/garnizeh/ats/internal/report"
	activitySample = 3
)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger replaces the package logger.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Narrator turns a finished report into a short prose summary.
type Narrator interface {
	Narrate(ctx context.Context, r *Report) (string, error)
}

// Aggregator computes the analytics, dashboard and report documents from a
// store. Every document is built from one concurrent batch of queries; any
// failing query fails the whole document.
type Aggregator struct {
	store    repository.Store
	clock    Clock
	loc      *time.Location
	timeout  time.Duration
	narrator Narrator
	validate bool
}

type Option func(*Aggregator)

func WithClock(c Clock) Option { return func(a *Aggregator) { a.clock = c } }

// WithLocation sets the time zone month and year boundaries are cut in.
func WithLocation(loc *time.Location) Option { return func(a *Aggregator) { a.loc = loc } }

// WithTimeout bounds each document's query batch.
func WithTimeout(d time.Duration) Option { return func(a *Aggregator) { a.timeout = d } }

func WithNarrator(n Narrator) Option { return func(a *Aggregator) { a.narrator = n } }

// WithSchemaValidation checks every report against the published schema
// before returning it.
func WithSchemaValidation(on bool) Option { return func(a *Aggregator) { a.validate = on } }

func New(store repository.Store, opts ...Option) *Aggregator {
	a := &Aggregator{store: store, clock: SystemClock, loc: time.UTC}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Window returns the reporting window for the current instant.
func (a *Aggregator) Window() Window {
	return NewWindow(a.clock.Now(), a.loc)
}

func (a *Aggregator) run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "report."+name)
	defer span.End()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	span.SetAttributes(attribute.Int64("report.duration_ms", time.Since(start).Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s: %w", name, err)
	}
	logger.Debug("report computed", slog.String("document", name), slog.Duration("took", time.Since(start)))
	return nil
}

type Period struct {
	Current struct {
		Month time.Time `json:"month"`
		Year  time.Time `json:"year"`
	} `json:"current"`
}

type RecentActivity struct {
	RecentJobs         []models.JobPost              `json:"recentJobs"`
	RecentApplications []models.CandidateApplication `json:"recentApplications"`
	RecentInterviews   []models.InterviewSchedule    `json:"recentInterviews"`
}

// Analytics is the full analytics bundle.
type Analytics struct {
	Timestamp      time.Time         `json:"timestamp"`
	Period         Period            `json:"period"`
	Jobs           *JobMetrics       `json:"jobs"`
	Candidates     *CandidateMetrics `json:"candidates"`
	Interviews     *InterviewMetrics `json:"interviews"`
	Customers      *CustomerMetrics  `json:"customers"`
	Timesheets     *TimesheetMetrics `json:"timesheets"`
	Performance    *Performance      `json:"performance"`
	RecentActivity *RecentActivity   `json:"recentActivity"`
	Trends         *TrendBlock       `json:"trends"`
}

// Analytics computes the analytics bundle.
func (a *Aggregator) Analytics(ctx context.Context) (*Analytics, error) {
	w := a.Window()
	out := &Analytics{Timestamp: w.Now.UTC()}
	out.Period.Current.Month = w.MonthStart
	out.Period.Current.Year = w.YearStart

	err := a.run(ctx, "analytics", func(ctx context.Context) error {
		b := newBatch(ctx, a.store)
		b.run(func(ctx context.Context) (err error) {
			out.Jobs, err = Jobs(ctx, a.store, w, AnalyticsLimits)
			return err
		})
		b.run(func(ctx context.Context) (err error) {
			out.Candidates, err = Candidates(ctx, a.store, w, AnalyticsLimits)
			return err
		})
		b.run(func(ctx context.Context) (err error) {
			out.Interviews, err = Interviews(ctx, a.store, w, AnalyticsLimits)
			return err
		})
		b.run(func(ctx context.Context) (err error) {
			out.Customers, err = Customers(ctx, a.store, w, AnalyticsLimits)
			return err
		})
		b.run(func(ctx context.Context) (err error) {
			out.Timesheets, err = Timesheets(ctx, a.store, w, AnalyticsLimits)
			return err
		})
		b.run(func(ctx context.Context) (err error) {
			out.Performance, err = PerformanceMetrics(ctx, a.store)
			return err
		})
		b.run(func(ctx context.Context) (err error) {
			out.RecentActivity, err = recentActivity(ctx, a.store)
			return err
		})
		b.run(func(ctx context.Context) (err error) {
			out.Trends, err = Trends(ctx, a.store, w)
			return err
		})
		return b.wait()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func recentActivity(ctx context.Context, s repository.Store) (*RecentActivity, error) {
	var ra RecentActivity
	b := newBatch(ctx, s)
	b.run(func(ctx context.Context) (err error) {
		ra.RecentJobs, err = s.FindJobs(ctx, repository.Query{OrderBy: "createdAt", Desc: true, Limit: activitySample})
		return err
	})
	b.run(func(ctx context.Context) (err error) {
		ra.RecentApplications, err = s.FindCandidates(ctx, repository.Query{OrderBy: "appliedAt", Desc: true, Limit: activitySample})
		return err
	})
	b.run(func(ctx context.Context) (err error) {
		ra.RecentInterviews, err = s.FindInterviews(ctx, repository.Query{OrderBy: "createdAt", Desc: true, Limit: activitySample})
		return err
	})
	if err := b.wait(); err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	return &ra, nil
}

type DashboardSummary struct {
	TotalJobs             int64   `json:"totalJobs"`
	ActiveJobs            int64   `json:"activeJobs"`
	FilledJobs            int64   `json:"filledJobs"`
	TotalCandidates       int64   `json:"totalCandidates"`
	PendingCandidates     int64   `json:"pendingCandidates"`
	ShortlistedCandidates int64   `json:"shortlistedCandidates"`
	HiredCandidates       int64   `json:"hiredCandidates"`
	TotalInterviews       int64   `json:"totalInterviews"`
	ScheduledInterviews   int64   `json:"scheduledInterviews"`
	CompletedInterviews   int64   `json:"completedInterviews"`
	TotalCustomers        int64   `json:"totalCustomers"`
	ActiveCustomers       int64   `json:"activeCustomers"`
	TotalTimesheets       int64   `json:"totalTimesheets"`
	PendingTimesheets     int64   `json:"pendingTimesheets"`
	ApprovedTimesheets    int64   `json:"approvedTimesheets"`
	MonthlyHours          float64 `json:"monthlyHours"`
}

type WorkTypeCount struct {
	WorkType string `json:"workType"`
	Count    int64  `json:"count"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

type DashboardCharts struct {
	WorkTypeDistribution     []WorkTypeCount `json:"workTypeDistribution"`
	IndustryDistribution     []IndustryCount `json:"industryDistribution"`
	TaskCategoryDistribution []CategoryCount `json:"taskCategoryDistribution"`
}

type DashboardRecent struct {
	Jobs               []models.JobPost              `json:"jobs"`
	Applications       []models.CandidateApplication `json:"applications"`
	UpcomingInterviews []models.InterviewSchedule    `json:"upcomingInterviews"`
	Customers          []models.Customer             `json:"customers"`
	Timesheets         []models.TimesheetEntry       `json:"timesheets"`
}

type Dashboard struct {
	Summary DashboardSummary `json:"summary"`
	Charts  DashboardCharts  `json:"charts"`
	Recent  DashboardRecent  `json:"recent"`
}

// Dashboard computes summary counts, chart distributions and the most
// recent records of every collection.
func (a *Aggregator) Dashboard(ctx context.Context) (*Dashboard, error) {
	w := a.Window()
	lim := DetailLimits

	var (
		jobs                   *JobMetrics
		cands                  *CandidateMetrics
		ivs                    *InterviewMetrics
		custs                  *CustomerMetrics
		sheets                 *TimesheetMetrics
		industries, categories []repository.Group
	)
	err := a.run(ctx, "dashboard", func(ctx context.Context) error {
		b := newBatch(ctx, a.store)
		b.run(func(ctx context.Context) (err error) {
			jobs, err = Jobs(ctx, a.store, w, lim)
			return err
		})
		b.run(func(ctx context.Context) (err error) {
			cands, err = Candidates(ctx, a.store, w, lim)
			return err
		})
		b.run(func(ctx context.Context) (err error) {
			ivs, err = Interviews(ctx, a.store, w, lim)
			return err
		})
		b.run(func(ctx context.Context) (err error) {
			custs, err = Customers(ctx, a.store, w, lim)
			return err
		})
		b.run(func(ctx context.Context) (err error) {
			sheets, err = Timesheets(ctx, a.store, w, lim)
			return err
		})
		b.groupBy(&industries, repository.Customers, repository.GroupQuery{By: "industry"})
		b.groupBy(&categories, repository.Timesheets, repository.GroupQuery{By: "taskCategory"})
		return b.wait()
	})
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		Summary: DashboardSummary{
			TotalJobs:             jobs.Overview.Total,
			ActiveJobs:            jobs.Overview.Active,
			FilledJobs:            jobs.Overview.Filled,
			TotalCandidates:       cands.Overview.Total,
			PendingCandidates:     cands.Overview.Pending,
			ShortlistedCandidates: cands.Overview.Shortlisted,
			HiredCandidates:       cands.Overview.Hired,
			TotalInterviews:       ivs.Overview.Total,
			ScheduledInterviews:   ivs.Current.Today,
			CompletedInterviews:   ivs.Overview.Completed,
			TotalCustomers:        custs.Overview.Total,
			ActiveCustomers:       custs.Overview.Active,
			TotalTimesheets:       sheets.Overview.TotalEntries,
			PendingTimesheets:     sheets.Overview.Pending,
			ApprovedTimesheets:    sheets.Overview.Approved,
			MonthlyHours:          sheets.Hours.ThisMonth,
		},
		Recent: DashboardRecent{
			Jobs:               jobs.RecentJobs,
			Applications:       cands.RecentApplications,
			UpcomingInterviews: ivs.Upcoming,
			Customers:          custs.RecentCustomers,
			Timesheets:         sheets.RecentEntries,
		},
	}
	d.Charts.WorkTypeDistribution = make([]WorkTypeCount, 0, len(jobs.WorkTypeBreakdown))
	for _, g := range jobs.WorkTypeBreakdown {
		d.Charts.WorkTypeDistribution = append(d.Charts.WorkTypeDistribution, WorkTypeCount{WorkType: g.Key, Count: g.Count})
	}
	d.Charts.IndustryDistribution = make([]IndustryCount, 0, len(industries))
	for _, g := range industries {
		d.Charts.IndustryDistribution = append(d.Charts.IndustryDistribution, IndustryCount{Industry: g.Key, Count: g.Count})
	}
	d.Charts.TaskCategoryDistribution = make([]CategoryCount, 0, len(categories))
	for _, g := range categories {
		d.Charts.TaskCategoryDistribution = append(d.Charts.TaskCategoryDistribution, CategoryCount{Category: g.Key, Count: g.Count})
	}
	return d, nil
}

type QuickStats struct {
	ActiveJobs               int64 `json:"activeJobs"`
	PendingCandidates        int64 `json:"pendingCandidates"`
	ScheduledInterviews      int64 `json:"scheduledInterviews"`
	PendingTimesheets        int64 `json:"pendingTimesheets"`
	NewApplicationsThisMonth int64 `json:"newApplicationsThisMonth"`
	NewJobsThisMonth         int64 `json:"newJobsThisMonth"`
}

// QuickStats computes the widget counters.
func (a *Aggregator) QuickStats(ctx context.Context) (*QuickStats, error) {
	w := a.Window()
	var qs QuickStats
	err := a.run(ctx, "quick_stats", func(ctx context.Context) error {
		b := newBatch(ctx, a.store)
		b.count(&qs.ActiveJobs, repository.Jobs, repository.Eq("status", models.JobActive))
		b.count(&qs.PendingCandidates, repository.Candidates, repository.Fold("status", models.CandidatePending))
		b.count(&qs.ScheduledInterviews, repository.Interviews, repository.Eq("status", models.InterviewScheduled))
		b.count(&qs.PendingTimesheets, repository.Timesheets, repository.Eq("status", models.TimesheetPending))
		b.count(&qs.NewApplicationsThisMonth, repository.Candidates, repository.Gte("appliedAt", w.MonthStart))
		b.count(&qs.NewJobsThisMonth, repository.Jobs, repository.Gte("createdAt", w.MonthStart))
		return b.wait()
	})
	if err != nil {
		return nil, err
	}
	return &qs, nil
}

type Metadata struct {
	GeneratedAt  time.Time `json:"generatedAt"`
	TotalRecords int64     `json:"totalRecords"`
}

type Overall struct {
	TotalJobs       int64 `json:"totalJobs"`
	TotalCandidates int64 `json:"totalCandidates"`
	TotalInterviews int64 `json:"totalInterviews"`
	TotalCustomers  int64 `json:"totalCustomers"`
	TotalTimesheets int64 `json:"totalTimesheets"`
	TotalActivities int64 `json:"totalActivities"`
}

type TimesheetSummary struct {
	Total         int64   `json:"total"`
	TotalHours    float64 `json:"totalHours"`
	BillableHours float64 `json:"billableHours"`
	Approved      int64   `json:"approved"`
	Pending       int64   `json:"pending"`
	ApprovalRate  float64 `json:"approvalRate"`
}

type Summary struct {
	Overall     Overall            `json:"overall"`
	Jobs        JobsOverview       `json:"jobs"`
	Candidates  CandidatesOverview `json:"candidates"`
	Interviews  InterviewsOverview `json:"interviews"`
	Customers   CustomersOverview  `json:"customers"`
	Timesheets  TimesheetSummary   `json:"timesheets"`
	Performance *Performance       `json:"performance"`
}

type Details struct {
	Jobs       *JobMetrics       `json:"jobs"`
	Candidates *CandidateMetrics `json:"candidates"`
	Interviews *InterviewMetrics `json:"interviews"`
	Customers  *CustomerMetrics  `json:"customers"`
	Timesheets *TimesheetMetrics `json:"timesheets"`
}

// Report is the comprehensive report snapshot.
type Report struct {
	Metadata  Metadata  `json:"metadata"`
	Summary   Summary   `json:"summary"`
	Details   Details   `json:"details"`
	Insights  []Insight `json:"insights"`
	Trends    []Trend   `json:"trends"`
	Series    Series    `json:"series"`
	Narrative string    `json:"narrative,omitempty"`
}

// Warnings returns the warning insights of r.
func (r *Report) Warnings() []Insight {
	var out []Insight
	for _, in := range r.Insights {
		if in.Type == SeverityWarning {
			out = append(out, in)
		}
	}
	return out
}

// Report computes the comprehensive report snapshot.
func (a *Aggregator) Report(ctx context.Context) (*Report, error) {
	w := a.Window()
	lim := DetailLimits

	var (
		d                    Details
		perf                 *Performance
		jobSeries, appSeries []MonthCount
	)
	err := a.run(ctx, "report", func(ctx context.Context) error {
		b := newBatch(ctx, a.store)
		b.run(func(ctx context.Context) (err error) {
			d.Jobs, err = Jobs(ctx, a.store, w, lim)
			return err
		})
		b.run(func(ctx context.Context) (err error) {
			d.Candidates, err = Candidates(ctx, a.store, w, lim)
			return err
		})
		b.run(func(ctx context.Context) (err error) {
			d.Interviews, err = Interviews(ctx, a.store, w, lim)
			return err
		})
		b.run(func(ctx context.Context) (err error) {
			d.Customers, err = Customers(ctx, a.store, w, lim)
			return err
		})
		b.run(func(ctx context.Context) (err error) {
			d.Timesheets, err = Timesheets(ctx, a.store, w, lim)
			return err
		})
		b.run(func(ctx context.Context) (err error) {
			perf, err = PerformanceMetrics(ctx, a.store)
			return err
		})
		b.run(func(ctx context.Context) (err error) {
			jobSeries, err = MonthlySeries(ctx, a.store, repository.Jobs, "createdAt", w)
			return err
		})
		b.run(func(ctx context.Context) (err error) {
			appSeries, err = MonthlySeries(ctx, a.store, repository.Candidates, "appliedAt", w)
			return err
		})
		return b.wait()
	})
	if err != nil {
		return nil, err
	}

	r := assemble(w, d, perf)
	r.Trends = []Trend{Direction("jobs", jobSeries), Direction("candidates", appSeries)}
	r.Series = Series{Jobs: jobSeries, Candidates: appSeries}

	if a.narrator != nil {
		text, err := a.narrator.Narrate(ctx, r)
		if err != nil {
			logger.Warn("report narration failed", slog.String("error", err.Error()))
		} else {
			r.Narrative = text
		}
	}

	if a.validate {
		doc, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		if err := ValidateDocument(ctx, doc); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func assemble(w Window, d Details, perf *Performance) *Report {
	overall := Overall{
		TotalJobs:       d.Jobs.Overview.Total,
		TotalCandidates: d.Candidates.Overview.Total,
		TotalInterviews: d.Interviews.Overview.Total,
		TotalCustomers:  d.Customers.Overview.Total,
		TotalTimesheets: d.Timesheets.Overview.TotalEntries,
	}
	overall.TotalActivities = overall.TotalJobs + overall.TotalCandidates + overall.TotalInterviews +
		overall.TotalCustomers + overall.TotalTimesheets

	ts := d.Timesheets
	r := &Report{
		Metadata: Metadata{GeneratedAt: w.Now.UTC(), TotalRecords: overall.TotalActivities},
		Summary: Summary{
			Overall:    overall,
			Jobs:       d.Jobs.Overview,
			Candidates: d.Candidates.Overview,
			Interviews: d.Interviews.Overview,
			Customers:  d.Customers.Overview,
			Timesheets: TimesheetSummary{
				Total:         ts.Overview.TotalEntries,
				TotalHours:    ts.Hours.Logged,
				BillableHours: ts.Hours.Billable,
				Approved:      ts.Overview.Approved,
				Pending:       ts.Overview.Pending,
				ApprovalRate:  ts.Overview.ApprovalRate,
			},
			Performance: perf,
		},
		Details: d,
	}
	r.Insights = Insights(Rates{
		FillRate:       d.Jobs.Overview.FillRate,
		ConversionRate: d.Candidates.Overview.ConversionRate,
		CompletionRate: d.Interviews.Overview.CompletionRate,
	})
	return r
}
