// small contract description
// inputs: outbox rows, handlers map
// outputs: job status updates, dead-letter moves on permanent failure
// error modes: queue errors, handler errors
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Outcome labels reported to Options.OnResult.
const (
	OutcomeDone       = "done"
	OutcomeRetry      = "retry"
	OutcomeDeadLetter = "dead_letter"
)

type Options struct {
	Workers      int
	PollInterval time.Duration
	// OnResult, when set, observes each processed job.
	OnResult func(jobType, outcome string)
}

type WorkerPool struct {
	queue    Queue
	handlers map[string]Handler
	logger   *slog.Logger
	opts     Options
	stop     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

func NewWorkerPool(queue Queue, handlers map[string]Handler, logger *slog.Logger, opts Options) *WorkerPool {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{queue: queue, handlers: handlers, logger: logger, opts: opts, stop: make(chan struct{})}
}

// Start launches the worker goroutines
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop signals workers to stop and waits for them
func (p *WorkerPool) Stop() {
	p.once.Do(func() { close(p.stop) })
	p.wg.Wait()
}

// sleep waits for d, returning false when the pool is stopping.
func (p *WorkerPool) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.stop:
		return false
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			p.logger.Info("worker stopping", "id", id)
			return
		case <-ctx.Done():
			p.logger.Info("context canceled, worker exiting", "id", id)
			return
		default:
		}

		job, err := p.queue.FetchNext(ctx)
		if err != nil {
			p.logger.Error("fetch job", "err", err)
			if !p.sleep(ctx, time.Second) {
				return
			}
			continue
		}
		if job == nil {
			if !p.sleep(ctx, p.opts.PollInterval) {
				return
			}
			continue
		}
		p.process(ctx, job)
	}
}

func (p *WorkerPool) process(ctx context.Context, job *Job) {
	h, ok := p.handlers[job.Type]
	if !ok {
		job.Status = StatusFailed
		job.LastError = "no handler"
		if err := p.queue.MoveToDeadLetter(ctx, job); err != nil {
			p.logger.Error("move to dead letter", "err", err, "job_id", job.ID)
		}
		p.observe(job.Type, OutcomeDeadLetter)
		return
	}

	err := h(ctx, job)
	if err == nil {
		job.Status = StatusDone
		if upErr := p.queue.UpdateJob(ctx, job); upErr != nil {
			p.logger.Error("mark job done", "err", upErr, "job_id", job.ID)
		}
		p.observe(job.Type, OutcomeDone)
		return
	}

	job.Attempts++
	job.LastError = err.Error()
	if job.Attempts >= job.MaxAttempts {
		job.Status = StatusFailed
		p.logger.Warn("job exhausted retries", "job_id", job.ID, "type", job.Type, "err", fmt.Errorf("%w: %w", ErrMaxAttempts, err))
		if mvErr := p.queue.MoveToDeadLetter(ctx, job); mvErr != nil {
			p.logger.Error("move to dead letter", "err", mvErr, "job_id", job.ID)
		}
		p.observe(job.Type, OutcomeDeadLetter)
		return
	}

	// schedule retry with backoff
	t := time.Now().Add(BackoffDuration(job.Attempts))
	job.NextTryAt = &t
	job.Status = StatusRetry
	if upErr := p.queue.UpdateJob(ctx, job); upErr != nil {
		p.logger.Error("update job for retry", "err", upErr, "job_id", job.ID)
	}
	p.observe(job.Type, OutcomeRetry)
}

func (p *WorkerPool) observe(jobType, outcome string) {
	if p.opts.OnResult != nil {
		p.opts.OnResult(jobType, outcome)
	}
}

// Enqueue convenience helper that creates a job and persists it
func (p *WorkerPool) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	return Enqueue(ctx, p.queue, typ, payload, priority, maxAttempts)
}

// Enqueue marshals payload and persists a job due immediately.
func Enqueue(ctx context.Context, q Queue, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	j := &Job{Type: typ, Payload: b, Priority: priority, MaxAttempts: maxAttempts, ScheduledAt: time.Now()}
	return q.Enqueue(ctx, j)
}
