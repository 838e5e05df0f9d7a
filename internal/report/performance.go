package report

import (
	"context"
	"fmt"
	"math"

	"github.com/garnizeh/ats/internal/models"
	"github.com/garnizeh/ats/pkg/repository"
)

const msPerDay = 24 * 60 * 60 * 1000

type Performance struct {
	AvgTimeToFill           float64 `json:"avgTimeToFill"`
	InterviewConversionRate float64 `json:"interviewConversionRate"`
	HireConversionRate      float64 `json:"hireConversionRate"`
	TotalFilledJobs         int64   `json:"totalFilledJobs"`
}

// PerformanceMetrics computes the cross-entity funnel metrics: time-to-fill,
// application to interview conversion and interview to hire conversion.
// Interviews are credited by the candidate's current status.
func PerformanceMetrics(ctx context.Context, s repository.Store) (*Performance, error) {
	var (
		p                             Performance
		filled                        []models.JobPost
		hires                         []models.Hire
		applications, withInterviews  int64
		interviews, interviewsOfHires int64
	)

	b := newBatch(ctx, s)
	b.run(func(ctx context.Context) error {
		var err error
		if filled, err = s.FindJobs(ctx, repository.Query{Where: []repository.Cond{repository.Eq("status", models.JobFilled)}}); err != nil {
			return err
		}
		ids := make([]int64, 0, len(filled))
		for _, j := range filled {
			ids = append(ids, j.ID)
		}
		hires, err = s.EarliestHires(ctx, ids)
		return err
	})
	b.count(&applications, repository.Candidates)
	b.count(&interviews, repository.Interviews)
	b.run(func(ctx context.Context) error {
		var err error
		withInterviews, err = s.CountCandidatesWithInterviews(ctx)
		return err
	})
	b.run(func(ctx context.Context) error {
		var err error
		interviewsOfHires, err = s.CountInterviewsByCandidateStatus(ctx, models.CandidateHired)
		return err
	})
	if err := b.wait(); err != nil {
		return nil, fmt.Errorf("performance metrics: %w", err)
	}

	p.AvgTimeToFill, p.TotalFilledJobs = TimeToFill(filled, hires)
	p.InterviewConversionRate = Rate(withInterviews, applications)
	p.HireConversionRate = Rate(interviewsOfHires, interviews)
	return &p, nil
}

// TimeToFill averages whole days, rounded up, between each job's creation
// and its hire. Jobs without a hire are left out of the average entirely.
// It returns the average rounded to one decimal and the number of jobs
// that contributed.
func TimeToFill(jobs []models.JobPost, hires []models.Hire) (float64, int64) {
	hiredAt := make(map[int64]int64, len(hires))
	for _, h := range hires {
		hiredAt[h.JobID] = h.HiredAt.UnixMilli()
	}

	var days float64
	var n int64
	for _, j := range jobs {
		at, ok := hiredAt[j.ID]
		if !ok {
			continue
		}
		days += math.Ceil(float64(at-j.CreatedAt.UnixMilli()) / msPerDay)
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return Round1(days / float64(n)), n
}
