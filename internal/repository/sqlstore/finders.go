package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garnizeh/ats/internal/models"
	"github.com/garnizeh/ats/pkg/repository"
)

// find runs a SELECT over one collection and hands each row to scan.
func (s *Store) find(ctx context.Context, c repository.Collection, cols, joins string, q repository.Query, scan func(Rows) error) error {
	t, err := lookup(c)
	if err != nil {
		return err
	}
	b := &builder{t: t, dialect: s.conn.Dialect()}
	w, err := b.where(q.Where)
	if err != nil {
		return err
	}
	p, err := b.page(q)
	if err != nil {
		return err
	}

	rows, err := s.conn.Query(ctx, `SELECT `+cols+` FROM `+t.name+` t`+joins+w+p, b.args...)
	if err != nil {
		return fmt.Errorf("find %s: %w", c, classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("find %s scan: %w", c, classify(err))
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("find %s rows: %w", c, classify(err))
	}
	return nil
}

func (s *Store) FindJobs(ctx context.Context, q repository.Query) ([]models.JobPost, error) {
	const cols = `t.id, t.title, t.company, t.department, t.customer_id, t.status, t.work_type, t.salary_min, t.salary_max, t.created_at`

	out := make([]models.JobPost, 0)
	err := s.find(ctx, repository.Jobs, cols, "", q, func(r Rows) error {
		var (
			j          models.JobPost
			dept       sql.NullString
			customerID sql.NullInt64
			salMin     sql.NullFloat64
			salMax     sql.NullFloat64
			created    int64
		)
		if err := r.Scan(&j.ID, &j.Title, &j.Company, &dept, &customerID, &j.Status, &j.WorkType, &salMin, &salMax, &created); err != nil {
			return err
		}
		j.Department = dept.String
		if customerID.Valid {
			j.CustomerID = &customerID.Int64
		}
		if salMin.Valid {
			j.SalaryMin = &salMin.Float64
		}
		if salMax.Valid {
			j.SalaryMax = &salMax.Float64
		}
		j.CreatedAt = fromMillis(created)
		out = append(out, j)
		return nil
	})
	return out, err
}

func (s *Store) FindCandidates(ctx context.Context, q repository.Query) ([]models.CandidateApplication, error) {
	const cols = `t.id, t.first_name, t.last_name, t.email, t.phone, t.job_id, t.status, t.applied_at, t.years_of_experience, t.key_skills, t.updated_at, j.title, j.company`
	const joins = ` LEFT JOIN job_posts j ON j.id = t.job_id`

	out := make([]models.CandidateApplication, 0)
	err := s.find(ctx, repository.Candidates, cols, joins, q, func(r Rows) error {
		var (
			c          models.CandidateApplication
			phone      sql.NullString
			exp        sql.NullInt64
			skills     sql.NullString
			applied    int64
			updated    int64
			jobTitle   sql.NullString
			jobCompany sql.NullString
		)
		if err := r.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &phone, &c.JobID, &c.Status, &applied, &exp, &skills, &updated, &jobTitle, &jobCompany); err != nil {
			return err
		}
		c.Phone = phone.String
		if exp.Valid {
			c.YearsOfExperience = &exp.Int64
		}
		c.KeySkills = skills.String
		c.AppliedAt = fromMillis(applied)
		c.UpdatedAt = fromMillis(updated)
		if jobTitle.Valid {
			c.Job = &models.JobRef{Title: jobTitle.String, Company: jobCompany.String}
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

func (s *Store) FindInterviews(ctx context.Context, q repository.Query) ([]models.InterviewSchedule, error) {
	const cols = `t.id, t.candidate_id, t.candidate_name, t.interview_date, t.interview_time, t.interview_type, t.interview_mode, t.platform, t.interviewer, t.status, t.created_at`

	out := make([]models.InterviewSchedule, 0)
	err := s.find(ctx, repository.Interviews, cols, "", q, func(r Rows) error {
		var (
			i                                    models.InterviewSchedule
			at, created                          int64
			tm, typ, mode, platform, interviewer sql.NullString
		)
		if err := r.Scan(&i.ID, &i.CandidateID, &i.CandidateName, &at, &tm, &typ, &mode, &platform, &interviewer, &i.Status, &created); err != nil {
			return err
		}
		i.InterviewDate = fromMillis(at)
		i.InterviewTime = tm.String
		i.Type = typ.String
		i.Mode = mode.String
		i.Platform = platform.String
		i.Interviewer = interviewer.String
		i.CreatedAt = fromMillis(created)
		out = append(out, i)
		return nil
	})
	return out, err
}

func (s *Store) FindCustomers(ctx context.Context, q repository.Query) ([]models.Customer, error) {
	const cols = `t.id, t.company_name, t.industry, t.status, t.priority, t.created_at`

	out := make([]models.Customer, 0)
	err := s.find(ctx, repository.Customers, cols, "", q, func(r Rows) error {
		var (
			c        models.Customer
			industry sql.NullString
			priority sql.NullString
			created  int64
		)
		if err := r.Scan(&c.ID, &c.CompanyName, &industry, &c.Status, &priority, &created); err != nil {
			return err
		}
		c.Industry = industry.String
		c.Priority = priority.String
		c.CreatedAt = fromMillis(created)
		out = append(out, c)
		return nil
	})
	return out, err
}

func (s *Store) FindTimesheets(ctx context.Context, q repository.Query) ([]models.TimesheetEntry, error) {
	const cols = `t.id, t.recruiter_name, t.date, t.hours, t.task_type, t.task_category, t.entity_type, t.priority, t.status, t.billable, t.created_at`

	out := make([]models.TimesheetEntry, 0)
	err := s.find(ctx, repository.Timesheets, cols, "", q, func(r Rows) error {
		var (
			e                                    models.TimesheetEntry
			taskType, category, entity, priority sql.NullString
			created                              int64
		)
		if err := r.Scan(&e.ID, &e.RecruiterName, &e.Date, &e.Hours, &taskType, &category, &entity, &priority, &e.Status, &e.Billable, &created); err != nil {
			return err
		}
		e.TaskType = taskType.String
		e.TaskCategory = category.String
		e.EntityType = entity.String
		e.Priority = priority.String
		e.CreatedAt = fromMillis(created)
		out = append(out, e)
		return nil
	})
	return out, err
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
