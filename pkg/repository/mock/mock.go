package mock

import (
	"context"
	"sync"
	"time"

	"github.com/garnizeh/ats/internal/models"
	"github.com/garnizeh/ats/pkg/repository"
)

// Store wraps a real repository.Store, counting calls and injecting
// failures or latency per method. Method names match the interface.
type Store struct {
	inner repository.Store

	mu    sync.Mutex
	fail  map[string]error
	delay time.Duration
	calls map[string]int
}

var _ repository.Store = (*Store)(nil)

func New(inner repository.Store) *Store {
	return &Store{inner: inner, fail: map[string]error{}, calls: map[string]int{}}
}

// Fail makes method return err until cleared with a nil err. The method "*"
// matches every call.
func (s *Store) Fail(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, method)
		return
	}
	s.fail[method] = err
}

// Delay slows every call down by d, honouring context cancellation.
func (s *Store) Delay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// Calls reports how often method was invoked.
func (s *Store) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// TotalCalls reports the number of calls across all methods.
func (s *Store) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *Store) enter(ctx context.Context, method string) error {
	s.mu.Lock()
	s.calls[method]++
	err, ok := s.fail[method]
	if !ok {
		err = s.fail["*"]
	}
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.enter(ctx, "Ping"); err != nil {
		return err
	}
	return s.inner.Ping(ctx)
}

func (s *Store) Count(ctx context.Context, c repository.Collection, where ...repository.Cond) (int64, error) {
	if err := s.enter(ctx, "Count"); err != nil {
		return 0, err
	}
	return s.inner.Count(ctx, c, where...)
}

func (s *Store) Sum(ctx context.Context, c repository.Collection, field string, where ...repository.Cond) (float64, error) {
	if err := s.enter(ctx, "Sum"); err != nil {
		return 0, err
	}
	return s.inner.Sum(ctx, c, field, where...)
}

func (s *Store) GroupBy(ctx context.Context, c repository.Collection, q repository.GroupQuery) ([]repository.Group, error) {
	if err := s.enter(ctx, "GroupBy"); err != nil {
		return nil, err
	}
	return s.inner.GroupBy(ctx, c, q)
}

func (s *Store) FindJobs(ctx context.Context, q repository.Query) ([]models.JobPost, error) {
	if err := s.enter(ctx, "FindJobs"); err != nil {
		return nil, err
	}
	return s.inner.FindJobs(ctx, q)
}

func (s *Store) EarliestHires(ctx context.Context, jobIDs []int64) ([]models.Hire, error) {
	if err := s.enter(ctx, "EarliestHires"); err != nil {
		return nil, err
	}
	return s.inner.EarliestHires(ctx, jobIDs)
}

func (s *Store) FindCandidates(ctx context.Context, q repository.Query) ([]models.CandidateApplication, error) {
	if err := s.enter(ctx, "FindCandidates"); err != nil {
		return nil, err
	}
	return s.inner.FindCandidates(ctx, q)
}

func (s *Store) CountCandidatesWithInterviews(ctx context.Context) (int64, error) {
	if err := s.enter(ctx, "CountCandidatesWithInterviews"); err != nil {
		return 0, err
	}
	return s.inner.CountCandidatesWithInterviews(ctx)
}

func (s *Store) FindInterviews(ctx context.Context, q repository.Query) ([]models.InterviewSchedule, error) {
	if err := s.enter(ctx, "FindInterviews"); err != nil {
		return nil, err
	}
	return s.inner.FindInterviews(ctx, q)
}

func (s *Store) CountInterviewsByCandidateStatus(ctx context.Context, status string) (int64, error) {
	if err := s.enter(ctx, "CountInterviewsByCandidateStatus"); err != nil {
		return 0, err
	}
	return s.inner.CountInterviewsByCandidateStatus(ctx, status)
}

func (s *Store) FindCustomers(ctx context.Context, q repository.Query) ([]models.Customer, error) {
	if err := s.enter(ctx, "FindCustomers"); err != nil {
		return nil, err
	}
	return s.inner.FindCustomers(ctx, q)
}

func (s *Store) TopCustomersByJobs(ctx context.Context, limit int) ([]models.Customer, error) {
	if err := s.enter(ctx, "TopCustomersByJobs"); err != nil {
		return nil, err
	}
	return s.inner.TopCustomersByJobs(ctx, limit)
}

func (s *Store) FindTimesheets(ctx context.Context, q repository.Query) ([]models.TimesheetEntry, error) {
	if err := s.enter(ctx, "FindTimesheets"); err != nil {
		return nil, err
	}
	return s.inner.FindTimesheets(ctx, q)
}
