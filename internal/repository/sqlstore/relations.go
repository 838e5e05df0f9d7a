package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/garnizeh/ats/internal/models"
)

// TopCustomersByJobs ranks customers by owned job posts, ties by id.
func (s *Store) TopCustomersByJobs(ctx context.Context, limit int) ([]models.Customer, error) {
	if limit <= 0 {
		return []models.Customer{}, nil
	}
	const q = `SELECT c.id, c.company_name, c.industry, c.status, c.priority, c.created_at, COUNT(j.id) AS job_count
		FROM customers c
		LEFT JOIN job_posts j ON j.customer_id = c.id
		GROUP BY c.id, c.company_name, c.industry, c.status, c.priority, c.created_at
		ORDER BY job_count DESC, c.id ASC
		LIMIT ?`

	rows, err := s.conn.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("top customers: %w", classify(err))
	}
	defer rows.Close()

	out := make([]models.Customer, 0, limit)
	for rows.Next() {
		var (
			c        models.Customer
			industry sql.NullString
			priority sql.NullString
			created  int64
		)
		if err := rows.Scan(&c.ID, &c.CompanyName, &industry, &c.Status, &priority, &created, &c.JobCount); err != nil {
			return nil, fmt.Errorf("top customers scan: %w", classify(err))
		}
		c.Industry = industry.String
		c.Priority = priority.String
		c.CreatedAt = fromMillis(created)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top customers rows: %w", classify(err))
	}
	return out, nil
}

// CountCandidatesWithInterviews counts applications with at least one
// interview schedule.
func (s *Store) CountCandidatesWithInterviews(ctx context.Context) (int64, error) {
	const q = `SELECT COUNT(*) FROM candidate_applications c
		WHERE EXISTS (SELECT 1 FROM interview_schedules i WHERE i.candidate_id = c.id)`

	var n int64
	if err := s.conn.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("count candidates with interviews: %w", classify(err))
	}
	return n, nil
}

func (s *Store) CountInterviewsByCandidateStatus(ctx context.Context, status string) (int64, error) {
	const q = `SELECT COUNT(*) FROM interview_schedules i
		JOIN candidate_applications c ON c.id = i.candidate_id
		WHERE LOWER(TRIM(c.status)) = ?`

	var n int64
	if err := s.conn.QueryRow(ctx, q, models.FoldStatus(status)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count interviews by candidate status: %w", classify(err))
	}
	return n, nil
}

// EarliestHires returns the first hired application of each listed job.
// Ties on applied_at resolve to the lowest application id.
func (s *Store) EarliestHires(ctx context.Context, jobIDs []int64) ([]models.Hire, error) {
	if len(jobIDs) == 0 {
		return []models.Hire{}, nil
	}

	ph := make([]string, len(jobIDs))
	args := make([]any, 0, len(jobIDs)+1)
	args = append(args, models.CandidateHired)
	for i, id := range jobIDs {
		ph[i] = "?"
		args = append(args, id)
	}

	q := `SELECT job_id, id, applied_at FROM candidate_applications
		WHERE LOWER(TRIM(status)) = ? AND job_id IN (` + strings.Join(ph, ", ") + `)
		ORDER BY job_id ASC, applied_at ASC, id ASC`

	rows, err := s.conn.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("earliest hires: %w", classify(err))
	}
	defer rows.Close()

	out := make([]models.Hire, 0, len(jobIDs))
	seen := make(map[int64]bool, len(jobIDs))
	for rows.Next() {
		var (
			h       models.Hire
			applied int64
		)
		if err := rows.Scan(&h.JobID, &h.CandidateID, &applied); err != nil {
			return nil, fmt.Errorf("earliest hires scan: %w", classify(err))
		}
		if seen[h.JobID] {
			continue
		}
		seen[h.JobID] = true
		h.HiredAt = fromMillis(applied)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("earliest hires rows: %w", classify(err))
	}
	return out, nil
}
