// Package sqlstoretest opens migrated throwaway SQLite stores and inserts
// fixture rows for tests.
package sqlstoretest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	dbfs "github.com/garnizeh/ats/db"
	"github.com/garnizeh/ats/internal/db"
	"github.com/garnizeh/ats/internal/models"
	"github.com/garnizeh/ats/internal/repository/sqlstore"
)

// Fixture bundles a migrated store with its underlying database.
type Fixture struct {
	t     testing.TB
	seq   int
	DB    *db.DB
	Store *sqlstore.Store
}

// Open creates an empty, migrated database in a temp dir. It is closed when
// the test finishes.
func Open(t testing.TB) *Fixture {
	t.Helper()
	ctx := context.Background()

	logger := slog.New(slog.DiscardHandler)
	d, err := db.New(ctx, filepath.Join(t.TempDir(), "ats.db"), logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if err := db.Migrate(ctx, d, dbfs.Migrations, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return &Fixture{t: t, DB: d, Store: sqlstore.New(sqlstore.NewSQLite(d), logger)}
}

func (f *Fixture) exec(q string, args ...any) int64 {
	f.t.Helper()
	res, err := f.DB.Exec(context.Background(), q, args...)
	if err != nil {
		f.t.Fatalf("fixture insert: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		f.t.Fatalf("fixture last insert id: %v", err)
	}
	return id
}

func ms(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UnixMilli()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Customer inserts c and returns its id.
func (f *Fixture) Customer(c models.Customer) int64 {
	f.t.Helper()
	if c.Status == "" {
		c.Status = models.CustomerActive
	}
	if c.Priority == "" {
		c.Priority = "MEDIUM"
	}
	return f.exec(`INSERT INTO customers (company_name, industry, status, priority, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.CompanyName, nullString(c.Industry), string(c.Status), c.Priority, ms(c.CreatedAt))
}

// Job inserts j and returns its id.
func (f *Fixture) Job(j models.JobPost) int64 {
	f.t.Helper()
	if j.Status == "" {
		j.Status = models.JobActive
	}
	if j.WorkType == "" {
		j.WorkType = models.WorkOnsite
	}
	if j.Title == "" {
		j.Title = "Engineer"
	}
	return f.exec(`INSERT INTO job_posts (title, company, department, customer_id, status, work_type, salary_min, salary_max, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.Title, j.Company, nullString(j.Department), j.CustomerID, string(j.Status), string(j.WorkType), j.SalaryMin, j.SalaryMax, ms(j.CreatedAt))
}

// Candidate inserts c and returns its id. Email defaults to a unique value.
func (f *Fixture) Candidate(c models.CandidateApplication) int64 {
	f.t.Helper()
	if c.Status == "" {
		c.Status = models.CandidatePending
	}
	if c.FirstName == "" {
		c.FirstName = "Test"
	}
	if c.LastName == "" {
		c.LastName = "Candidate"
	}
	if c.Email == "" {
		f.seq++
		c.Email = fmt.Sprintf("candidate%d@example.com", f.seq)
	}
	applied := ms(c.AppliedAt)
	return f.exec(`INSERT INTO candidate_applications (first_name, last_name, email, phone, job_id, status, applied_at, years_of_experience, key_skills, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.FirstName, c.LastName, c.Email, nullString(c.Phone), c.JobID, c.Status, applied, c.YearsOfExperience, nullString(c.KeySkills), applied)
}

// Interview inserts i and returns its id.
func (f *Fixture) Interview(i models.InterviewSchedule) int64 {
	f.t.Helper()
	if i.Status == "" {
		i.Status = models.InterviewScheduled
	}
	if i.CandidateName == "" {
		i.CandidateName = "Test Candidate"
	}
	return f.exec(`INSERT INTO interview_schedules (candidate_id, candidate_name, interview_date, interview_time, interview_type, interview_mode, platform, interviewer, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.CandidateID, i.CandidateName, ms(i.InterviewDate), nullString(i.InterviewTime), nullString(i.Type), nullString(i.Mode), nullString(i.Platform), nullString(i.Interviewer), string(i.Status), ms(i.CreatedAt))
}

// Timesheet inserts e and returns its id.
func (f *Fixture) Timesheet(e models.TimesheetEntry) int64 {
	f.t.Helper()
	if e.Status == "" {
		e.Status = models.TimesheetPending
	}
	if e.Date == "" {
		e.Date = time.Now().UTC().Format(time.DateOnly)
	}
	if e.RecruiterName == "" {
		e.RecruiterName = "Recruiter"
	}
	billable := 0
	if e.Billable {
		billable = 1
	}
	return f.exec(`INSERT INTO timesheet_entries (recruiter_name, date, hours, task_type, task_category, entity_type, priority, status, billable, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RecruiterName, e.Date, e.Hours, nullString(e.TaskType), nullString(e.TaskCategory), nullString(e.EntityType), nullString(e.Priority), string(e.Status), billable, ms(e.CreatedAt))
}
