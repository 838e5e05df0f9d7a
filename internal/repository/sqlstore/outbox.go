package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garnizeh/ats/internal/jobs"
)

// Enqueue inserts a job into the jobs table and returns the new ID
func (s *Store) Enqueue(ctx context.Context, j *jobs.Job) (int64, error) {
	if j == nil {
		return 0, fmt.Errorf("job is nil")
	}
	if j.MaxAttempts == 0 {
		j.MaxAttempts = 5
	}
	if j.ScheduledAt.IsZero() {
		j.ScheduledAt = time.Now()
	}

	now := time.Now().UTC().UnixMilli()
	const q = `INSERT INTO jobs(type, payload, status, attempts, max_attempts, priority, scheduled_at, created, updated)
		VALUES(?,?,?,?,?,?,?,?,?) RETURNING id`

	var id int64
	err := s.conn.QueryRow(ctx, q, j.Type, string(j.Payload), jobs.StatusQueued, j.Attempts, j.MaxAttempts, j.Priority, j.ScheduledAt.UnixMilli(), now, now).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("enqueue failed: %w", classify(err))
	}
	j.ID = id
	return id, nil
}

// FetchNext claims the next due job respecting priority and schedule.
func (s *Store) FetchNext(ctx context.Context) (*jobs.Job, error) {
	const q = `UPDATE jobs SET status = ?, updated = ?
		WHERE id = (
			SELECT id FROM jobs
			WHERE (status = ? OR status = ?) AND (next_try_at IS NULL OR next_try_at <= ?) AND scheduled_at <= ?
			ORDER BY priority ASC, scheduled_at ASC, id ASC
			LIMIT 1
		) AND (status = ? OR status = ?)
		RETURNING id, type, payload, status, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created, updated`

	now := time.Now().UTC().UnixMilli()
	row := s.conn.QueryRow(ctx, q,
		jobs.StatusRunning, now,
		jobs.StatusQueued, jobs.StatusRetry, now, now,
		jobs.StatusQueued, jobs.StatusRetry)

	var (
		j           jobs.Job
		payload     sql.NullString
		scheduledAt int64
		nextTry     sql.NullInt64
		lastError   sql.NullString
		created     int64
		updated     int64
	)
	if err := row.Scan(&j.ID, &j.Type, &payload, &j.Status, &j.Attempts, &j.MaxAttempts, &j.Priority, &scheduledAt, &nextTry, &lastError, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch next job: %w", classify(err))
	}

	j.ScheduledAt = time.UnixMilli(scheduledAt)
	j.Created = time.UnixMilli(created)
	j.Updated = time.UnixMilli(updated)
	if payload.Valid {
		j.Payload = json.RawMessage(payload.String)
	}
	if nextTry.Valid {
		t := time.UnixMilli(nextTry.Int64)
		j.NextTryAt = &t
	}
	j.LastError = lastError.String
	return &j, nil
}

// UpdateJob updates attempts, status, next_try_at, last_error
func (s *Store) UpdateJob(ctx context.Context, j *jobs.Job) error {
	var nextTry any
	if j.NextTryAt != nil {
		nextTry = j.NextTryAt.UnixMilli()
	}
	const q = `UPDATE jobs SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated = ? WHERE id = ?`
	if err := s.conn.Exec(ctx, q, j.Status, j.Attempts, nextTry, j.LastError, time.Now().UTC().UnixMilli(), j.ID); err != nil {
		return fmt.Errorf("update job %d: %w", j.ID, classify(err))
	}
	return nil
}

// MoveToDeadLetter moves a job to dead_letter_jobs and deletes the job row
func (s *Store) MoveToDeadLetter(ctx context.Context, j *jobs.Job) error {
	err := s.conn.InTx(ctx, func(ctx context.Context, tx Conn) error {
		const insert = `INSERT INTO dead_letter_jobs(job_id, type, payload, attempts, last_error, failed_at) VALUES(?,?,?,?,?,?)`
		if err := tx.Exec(ctx, insert, j.ID, j.Type, string(j.Payload), j.Attempts, j.LastError, time.Now().UTC().UnixMilli()); err != nil {
			return err
		}
		return tx.Exec(ctx, `DELETE FROM jobs WHERE id = ?`, j.ID)
	})
	if err != nil {
		return fmt.Errorf("dead letter job %d: %w", j.ID, classify(err))
	}
	return nil
}

// DeadLetterCount reports how many jobs exhausted their retries.
func (s *Store) DeadLetterCount(ctx context.Context) (int64, error) {
	var n int64
	if err := s.conn.QueryRow(ctx, `SELECT COUNT(*) FROM dead_letter_jobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count dead letters: %w", classify(err))
	}
	return n, nil
}
