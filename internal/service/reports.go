// Package service joins the aggregator, the result cache and the notifier
// into the operations served over HTTP and run by the scheduler.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/garnizeh/ats/internal/cache"
	"github.com/garnizeh/ats/internal/notify"
	"github.com/garnizeh/ats/internal/report"
)

// ReportCacheKey is the single key the comprehensive report is cached under.
const ReportCacheKey = "all_project_reports"

var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by service. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Observer records how long a document took to build.
type Observer interface {
	ObserveReport(document string, err error, d time.Duration)
}

type Reports struct {
	agg      *report.Aggregator
	cache    *cache.Cache
	notifier *notify.Notifier
	observer Observer

	mu      sync.Mutex
	alerted string // warning categories of the last alert sent
}

type Option func(*Reports)

func WithNotifier(n *notify.Notifier) Option { return func(r *Reports) { r.notifier = n } }

func WithObserver(o Observer) Option { return func(r *Reports) { r.observer = o } }

func NewReports(agg *report.Aggregator, c *cache.Cache, opts ...Option) *Reports {
	if c == nil {
		c = cache.New(nil)
	}
	r := &Reports{agg: agg, cache: c}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (s *Reports) observe(document string, start time.Time, err error) {
	if s.observer != nil {
		s.observer.ObserveReport(document, err, time.Since(start))
	}
}

// Report returns the comprehensive report, from cache while it is fresh.
// A freshly built report whose set of warnings differs from the last
// alerted one triggers an insight alert.
func (s *Reports) Report(ctx context.Context) (cache.Entry, bool, error) {
	return s.cache.Fetch(ctx, ReportCacheKey, s.build)
}

// Refresh rebuilds the cached report regardless of its age.
func (s *Reports) Refresh(ctx context.Context) error {
	_, err := s.cache.Refresh(ctx, ReportCacheKey, s.build)
	return err
}

func (s *Reports) build(ctx context.Context) (any, error) {
	start := time.Now()
	r, err := s.agg.Report(ctx)
	s.observe("report", start, err)
	if err != nil {
		return nil, err
	}
	if s.shouldAlert(r.Warnings()) {
		s.notifier.Notify(ctx, notify.TemplateInsightAlert, r)
	}
	return r, nil
}

// shouldAlert reports whether warnings differ from the last alerted set.
// A report without warnings clears the set so a recurrence alerts again.
func (s *Reports) shouldAlert(warnings []report.Insight) bool {
	cats := make([]string, 0, len(warnings))
	for _, w := range warnings {
		cats = append(cats, w.Category)
	}
	slices.Sort(cats)
	key := strings.Join(cats, ",")

	s.mu.Lock()
	defer s.mu.Unlock()
	if key == s.alerted {
		return false
	}
	s.alerted = key
	return key != ""
}

// Digest sends the report digest, reusing a fresh cached report.
func (s *Reports) Digest(ctx context.Context) error {
	e, cached, err := s.Report(ctx)
	if err != nil {
		return fmt.Errorf("digest: %w", err)
	}
	var r report.Report
	if err := json.Unmarshal(e.Payload, &r); err != nil {
		return fmt.Errorf("digest: decode report: %w", err)
	}
	logger.Info("sending report digest", slog.Bool("cached", cached), slog.Time("generated_at", r.Metadata.GeneratedAt))
	s.notifier.Notify(ctx, notify.TemplateReportDigest, &r)
	return nil
}

func (s *Reports) Analytics(ctx context.Context) (*report.Analytics, error) {
	start := time.Now()
	a, err := s.agg.Analytics(ctx)
	s.observe("analytics", start, err)
	return a, err
}

func (s *Reports) Dashboard(ctx context.Context) (*report.Dashboard, error) {
	start := time.Now()
	d, err := s.agg.Dashboard(ctx)
	s.observe("dashboard", start, err)
	return d, err
}

func (s *Reports) QuickStats(ctx context.Context) (*report.QuickStats, error) {
	start := time.Now()
	q, err := s.agg.QuickStats(ctx)
	s.observe("quick_stats", start, err)
	return q, err
}
