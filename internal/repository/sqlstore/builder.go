package sqlstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/garnizeh/ats/internal/models"
	"github.com/garnizeh/ats/pkg/repository"
)

// table maps the logical field names of a collection to its columns.
type table struct {
	name   string
	fields map[string]string
}

var tables = map[repository.Collection]table{
	repository.Jobs: {
		name: "job_posts",
		fields: map[string]string{
			"id":         "id",
			"title":      "title",
			"company":    "company",
			"department": "department",
			"customerId": "customer_id",
			"status":     "status",
			"workType":   "work_type",
			"salaryMin":  "salary_min",
			"salaryMax":  "salary_max",
			"createdAt":  "created_at",
		},
	},
	repository.Candidates: {
		name: "candidate_applications",
		fields: map[string]string{
			"id":                "id",
			"firstName":         "first_name",
			"lastName":          "last_name",
			"email":             "email",
			"phone":             "phone",
			"jobId":             "job_id",
			"status":            "status",
			"appliedAt":         "applied_at",
			"yearsOfExperience": "years_of_experience",
			"keySkills":         "key_skills",
			"updatedAt":         "updated_at",
		},
	},
	repository.Interviews: {
		name: "interview_schedules",
		fields: map[string]string{
			"id":            "id",
			"candidateId":   "candidate_id",
			"candidateName": "candidate_name",
			"interviewDate": "interview_date",
			"interviewTime": "interview_time",
			"type":          "interview_type",
			"mode":          "interview_mode",
			"platform":      "platform",
			"interviewer":   "interviewer",
			"status":        "status",
			"createdAt":     "created_at",
		},
	},
	repository.Customers: {
		name: "customers",
		fields: map[string]string{
			"id":          "id",
			"companyName": "company_name",
			"industry":    "industry",
			"status":      "status",
			"priority":    "priority",
			"createdAt":   "created_at",
		},
	},
	repository.Timesheets: {
		name: "timesheet_entries",
		fields: map[string]string{
			"id":            "id",
			"recruiterName": "recruiter_name",
			"date":          "date",
			"hours":         "hours",
			"taskType":      "task_type",
			"taskCategory":  "task_category",
			"entityType":    "entity_type",
			"priority":      "priority",
			"status":        "status",
			"billable":      "billable",
			"createdAt":     "created_at",
		},
	},
}

func lookup(c repository.Collection) (table, error) {
	t, ok := tables[c]
	if !ok {
		return table{}, fmt.Errorf("%w: collection %q", repository.ErrUnknownField, c)
	}
	return t, nil
}

// builder accumulates a WHERE clause and its arguments. Every column is
// qualified with the `t` alias of the collection's table.
type builder struct {
	t       table
	dialect Dialect
	args    []any
}

func (b *builder) col(field string) (string, error) {
	c, ok := b.t.fields[field]
	if !ok {
		return "", fmt.Errorf("%w: %s.%s", repository.ErrUnknownField, b.t.name, field)
	}
	return "t." + c, nil
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, argValue(v))
	return "?"
}

func (b *builder) where(conds []repository.Cond) (string, error) {
	if len(conds) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		col, err := b.col(c.Field)
		if err != nil {
			return "", err
		}

		switch c.Op {
		case repository.OpEq, repository.OpNe, repository.OpGt, repository.OpGte, repository.OpLt, repository.OpLte:
			parts = append(parts, col+" "+string(c.Op)+" "+b.arg(c.Value))
		case repository.OpFold:
			s, ok := c.Value.(string)
			if !ok {
				return "", fmt.Errorf("fold on %s: want string, got %T", c.Field, c.Value)
			}
			parts = append(parts, "LOWER(TRIM("+col+")) = "+b.arg(models.FoldStatus(s)))
		case repository.OpNotNull:
			parts = append(parts, col+" IS NOT NULL")
		case repository.OpIn:
			vs, ok := c.Value.([]any)
			if !ok {
				return "", fmt.Errorf("in on %s: want []any, got %T", c.Field, c.Value)
			}
			if len(vs) == 0 {
				parts = append(parts, "1 = 0")
				continue
			}
			ph := make([]string, len(vs))
			for i, v := range vs {
				ph[i] = b.arg(v)
			}
			parts = append(parts, col+" IN ("+strings.Join(ph, ", ")+")")
		default:
			return "", fmt.Errorf("unsupported operator %q on %s", c.Op, c.Field)
		}
	}

	return " WHERE " + strings.Join(parts, " AND "), nil
}

// page renders ORDER BY / LIMIT / OFFSET for a Query. Ties on the sort
// column fall back to id in the same direction.
func (b *builder) page(q repository.Query) (string, error) {
	dir := " ASC"
	if q.Desc {
		dir = " DESC"
	}

	order := " ORDER BY t.id" + dir
	if q.OrderBy != "" && q.OrderBy != "id" {
		col, err := b.col(q.OrderBy)
		if err != nil {
			return "", err
		}
		order = " ORDER BY " + col + dir + ", t.id" + dir
	}

	switch {
	case q.Limit > 0:
		order += " LIMIT " + b.arg(q.Limit)
	case q.Offset > 0 && b.dialect == Postgres:
		order += " LIMIT ALL"
	case q.Offset > 0:
		order += " LIMIT -1"
	}
	if q.Offset > 0 {
		order += " OFFSET " + b.arg(q.Offset)
	}
	return order, nil
}

// argValue converts query values into their stored representation.
func argValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UnixMilli()
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.UnixMilli()
	case models.JobStatus:
		return string(x)
	case models.WorkType:
		return string(x)
	case models.InterviewStatus:
		return string(x)
	case models.CustomerStatus:
		return string(x)
	case models.TimesheetStatus:
		return string(x)
	default:
		return v
	}
}
