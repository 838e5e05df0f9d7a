package models

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Domain models matching the database schema in db/migrations/0001_init.sql.
// Records are read-only from the reporting side; the CRUD services own them.

type JobStatus string

const (
	JobActive JobStatus = "ACTIVE"
	JobPaused JobStatus = "PAUSED"
	JobClosed JobStatus = "CLOSED"
	JobFilled JobStatus = "FILLED"
)

type WorkType string

const (
	WorkOnsite WorkType = "ONSITE"
	WorkRemote WorkType = "REMOTE"
	WorkHybrid WorkType = "HYBRID"
)

type InterviewStatus string

const (
	InterviewScheduled   InterviewStatus = "SCHEDULED"
	InterviewCompleted   InterviewStatus = "COMPLETED"
	InterviewCancelled   InterviewStatus = "CANCELLED"
	InterviewRescheduled InterviewStatus = "RESCHEDULED"
)

type CustomerStatus string

const (
	CustomerActive    CustomerStatus = "ACTIVE"
	CustomerInactive  CustomerStatus = "INACTIVE"
	CustomerProspect  CustomerStatus = "PROSPECT"
	CustomerSuspended CustomerStatus = "SUSPENDED"
)

type TimesheetStatus string

const (
	TimesheetPending  TimesheetStatus = "PENDING"
	TimesheetApproved TimesheetStatus = "APPROVED"
	TimesheetRejected TimesheetStatus = "REJECTED"
)

// Candidate statuses form an open set: the pipeline writes labels such as
// "First Interview" or "Hired" next to the lowercase legacy values below.
const (
	CandidatePending     = "pending"
	CandidateShortlisted = "shortlisted"
	CandidateHired       = "hired"
	CandidateRejected    = "rejected"
)

// FoldStatus normalizes a status label for case-insensitive comparison.
// Casers carry state, so each call builds its own.
func FoldStatus(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// IsHired reports whether a candidate status denotes a hire.
func IsHired(status string) bool {
	return FoldStatus(status) == CandidateHired
}

type JobPost struct {
	ID         int64     `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	Company    string    `json:"company" db:"company"`
	Department string    `json:"department,omitempty" db:"department"`
	CustomerID *int64    `json:"customerId,omitempty" db:"customer_id"`
	Status     JobStatus `json:"jobStatus" db:"status"`
	WorkType   WorkType  `json:"workType" db:"work_type"`
	SalaryMin  *float64  `json:"salaryMin,omitempty" db:"salary_min"`
	SalaryMax  *float64  `json:"salaryMax,omitempty" db:"salary_max"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

type CandidateApplication struct {
	ID                int64     `json:"id" db:"id"`
	FirstName         string    `json:"firstName" db:"first_name"`
	LastName          string    `json:"lastName" db:"last_name"`
	Email             string    `json:"email" db:"email"`
	Phone             string    `json:"phone,omitempty" db:"phone"`
	JobID             int64     `json:"jobId" db:"job_id"`
	Status            string    `json:"status" db:"status"`
	AppliedAt         time.Time `json:"appliedAt" db:"applied_at"`
	YearsOfExperience *int64    `json:"yearsOfExperience,omitempty" db:"years_of_experience"`
	KeySkills         string    `json:"keySkills,omitempty" db:"key_skills"`
	UpdatedAt         time.Time `json:"updatedAt" db:"updated_at"`

	// Job is populated from the owning job post when listing applications.
	Job *JobRef `json:"job,omitempty"`
}

// JobRef is the slice of a job post embedded in candidate listings.
type JobRef struct {
	Title   string `json:"title"`
	Company string `json:"company"`
}

type InterviewSchedule struct {
	ID            int64           `json:"id" db:"id"`
	CandidateID   int64           `json:"candidateId" db:"candidate_id"`
	CandidateName string          `json:"candidateName" db:"candidate_name"`
	InterviewDate time.Time       `json:"interviewDate" db:"interview_date"`
	InterviewTime string          `json:"interviewTime,omitempty" db:"interview_time"`
	Type          string          `json:"interviewType,omitempty" db:"interview_type"`
	Mode          string          `json:"interviewMode,omitempty" db:"interview_mode"`
	Platform      string          `json:"platform,omitempty" db:"platform"`
	Interviewer   string          `json:"interviewer,omitempty" db:"interviewer"`
	Status        InterviewStatus `json:"status" db:"status"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}

type Customer struct {
	ID          int64          `json:"id" db:"id"`
	CompanyName string         `json:"companyName" db:"company_name"`
	Industry    string         `json:"industry,omitempty" db:"industry"`
	Status      CustomerStatus `json:"status" db:"status"`
	Priority    string         `json:"priority,omitempty" db:"priority"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`

	// JobCount is filled by job-count rankings only.
	JobCount int64 `json:"jobCount,omitempty"`
}

type TimesheetEntry struct {
	ID            int64           `json:"id" db:"id"`
	RecruiterName string          `json:"recruiterName" db:"recruiter_name"`
	Date          string          `json:"date" db:"date"`
	Hours         float64         `json:"hours" db:"hours"`
	TaskType      string          `json:"taskType,omitempty" db:"task_type"`
	TaskCategory  string          `json:"taskCategory,omitempty" db:"task_category"`
	EntityType    string          `json:"entityType,omitempty" db:"entity_type"`
	Priority      string          `json:"priority,omitempty" db:"priority"`
	Status        TimesheetStatus `json:"status" db:"status"`
	Billable      bool            `json:"billable" db:"billable"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}

// Hire is the earliest hired application recorded against a job post.
type Hire struct {
	JobID       int64     `json:"jobId"`
	CandidateID int64     `json:"candidateId"`
	HiredAt     time.Time `json:"hiredAt"`
}
