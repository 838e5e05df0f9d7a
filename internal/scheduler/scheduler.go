// Package scheduler runs the periodic report tasks: the cache warmer and the
// insight digest.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
)

// Task names, also used as metric labels.
const (
	TaskRefresh = "refresh"
	TaskDigest  = "digest"
)

const taskTimeout = 2 * time.Minute

var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by the scheduler. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Reports is the work the scheduler triggers.
type Reports interface {
	Refresh(ctx context.Context) error
	Digest(ctx context.Context) error
}

// Specs holds the cron expressions; an empty spec disables its task.
type Specs struct {
	Refresh string
	Digest  string
}

type Scheduler struct {
	cron    *cron.Cron
	reports Reports
	specs   Specs
	runs    *prometheus.CounterVec
}

type Option func(*Scheduler)

// WithRuns counts task runs by task and outcome.
func WithRuns(v *prometheus.CounterVec) Option {
	return func(s *Scheduler) { s.runs = v }
}

// WithLocation evaluates cron expressions in loc instead of UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.cron = newCron(loc)
		}
	}
}

func newCron(loc *time.Location) *cron.Cron {
	l := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))
	return cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)
}

func New(reports Reports, specs Specs, opts ...Option) *Scheduler {
	s := &Scheduler{cron: newCron(time.UTC), reports: reports, specs: specs}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start registers the enabled tasks and starts the cron loop. Tasks run
// with ctx as parent.
func (s *Scheduler) Start(ctx context.Context) error {
	tasks := []struct {
		name, spec string
	}{
		{TaskRefresh, s.specs.Refresh},
		{TaskDigest, s.specs.Digest},
	}
	for _, t := range tasks {
		if t.spec == "" {
			continue
		}
		name := t.name
		if _, err := s.cron.AddFunc(t.spec, func() { s.Run(ctx, name) }); err != nil {
			return fmt.Errorf("schedule %s %q: %w", name, t.spec, err)
		}
		logger.Info("scheduler: task registered", slog.String("task", name), slog.String("spec", t.spec))
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Run executes one task now. Errors are logged and counted.
func (s *Scheduler) Run(ctx context.Context, task string) error {
	ctx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	var err error
	switch task {
	case TaskRefresh:
		err = s.reports.Refresh(ctx)
	case TaskDigest:
		err = s.reports.Digest(ctx)
	default:
		err = fmt.Errorf("unknown task %q", task)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		logger.Error("scheduler: task failed", slog.String("task", task), slog.Any("err", err))
	}
	if s.runs != nil {
		s.runs.WithLabelValues(task, outcome).Inc()
	}
	return err
}
