package repository

import (
	"context"
	"errors"

	"github.com/garnizeh/ats/internal/models"
)

// Repository interfaces for the ATS entities. These are the public contracts
// the reporting core depends on; concrete implementations live under internal/.

var (
	// ErrUnavailable marks failures to reach the data store (connection refused,
	// pool exhausted, busy database, timeouts).
	ErrUnavailable = errors.New("data store unavailable")
	// ErrConstraint marks uniqueness or other constraint violations.
	ErrConstraint = errors.New("constraint violation")
	// ErrUnknownField is returned for filter, sort or group fields the
	// collection does not expose.
	ErrUnknownField = errors.New("unknown field")
)

// Collection names one of the entity collections.
type Collection string

const (
	Jobs       Collection = "jobs"
	Candidates Collection = "candidates"
	Interviews Collection = "interviews"
	Customers  Collection = "customers"
	Timesheets Collection = "timesheets"
)

// AllCollections lists every entity collection in report order.
var AllCollections = []Collection{Jobs, Candidates, Interviews, Customers, Timesheets}

// Aggregates covers the counting side of the store.
type Aggregates interface {
	Count(ctx context.Context, c Collection, where ...Cond) (int64, error)
	Sum(ctx context.Context, c Collection, field string, where ...Cond) (float64, error)
	GroupBy(ctx context.Context, c Collection, q GroupQuery) ([]Group, error)
}

type JobRepo interface {
	FindJobs(ctx context.Context, q Query) ([]models.JobPost, error)
	// EarliestHires returns, per job id, the earliest application whose
	// status denotes a hire. Jobs without one are absent from the result.
	EarliestHires(ctx context.Context, jobIDs []int64) ([]models.Hire, error)
}

type CandidateRepo interface {
	FindCandidates(ctx context.Context, q Query) ([]models.CandidateApplication, error)
	CountCandidatesWithInterviews(ctx context.Context) (int64, error)
}

type InterviewRepo interface {
	FindInterviews(ctx context.Context, q Query) ([]models.InterviewSchedule, error)
	// CountInterviewsByCandidateStatus counts interview schedules whose
	// candidate currently holds status (case-insensitive).
	CountInterviewsByCandidateStatus(ctx context.Context, status string) (int64, error)
}

type CustomerRepo interface {
	FindCustomers(ctx context.Context, q Query) ([]models.Customer, error)
	// TopCustomersByJobs ranks customers by the number of job posts they own.
	TopCustomersByJobs(ctx context.Context, limit int) ([]models.Customer, error)
}

type TimesheetRepo interface {
	FindTimesheets(ctx context.Context, q Query) ([]models.TimesheetEntry, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Store is the full read surface the reporting core consumes.
type Store interface {
	Aggregates
	JobRepo
	CandidateRepo
	InterviewRepo
	CustomerRepo
	TimesheetRepo
	Pinger
}
