// Package notify renders operator messages and delivers them through the
// job outbox so a slow or failing channel never blocks a request.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/garnizeh/ats/internal/jobs"
)

// JobType is the outbox job type carrying a rendered message.
const JobType = "notify.send"

const (
	defaultPriority    = 50
	defaultMaxAttempts = 5
)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by notify. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Message is the outbox payload.
type Message struct {
	Template string `json:"template"`
	Text     string `json:"text"`
}

// Sender delivers rendered text to a channel.
type Sender interface {
	Send(ctx context.Context, text string) error
}

type Notifier struct {
	queue       jobs.Queue
	maxAttempts int
	counter     *prometheus.CounterVec
}

type Option func(*Notifier)

func WithMaxAttempts(n int) Option {
	return func(nt *Notifier) {
		if n > 0 {
			nt.maxAttempts = n
		}
	}
}

// WithCounter counts Notify calls by template and outcome (queued, failed).
func WithCounter(v *prometheus.CounterVec) Option {
	return func(nt *Notifier) { nt.counter = v }
}

func New(queue jobs.Queue, opts ...Option) *Notifier {
	n := &Notifier{queue: queue, maxAttempts: defaultMaxAttempts}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Notify renders template with data and enqueues the message. It never
// fails the caller: render and enqueue errors are logged and dropped.
func (n *Notifier) Notify(ctx context.Context, template string, data any) {
	if n == nil {
		return
	}
	text, err := Render(template, data)
	if err != nil {
		logger.Error("notify: render failed", slog.String("template", template), slog.Any("err", err))
		n.observe(template, "failed")
		return
	}

	id, err := jobs.Enqueue(ctx, n.queue, JobType, Message{Template: template, Text: text}, defaultPriority, n.maxAttempts)
	if err != nil {
		logger.Error("notify: enqueue failed", slog.String("template", template), slog.Any("err", err))
		n.observe(template, "failed")
		return
	}
	logger.Debug("notify: queued", slog.String("template", template), slog.Int64("job_id", id))
	n.observe(template, "queued")
}

func (n *Notifier) observe(template, outcome string) {
	if n.counter != nil {
		n.counter.WithLabelValues(template, outcome).Inc()
	}
}

// Handler delivers queued messages with s. Returned errors make the worker
// pool retry with backoff.
func Handler(s Sender) jobs.Handler {
	return func(ctx context.Context, j *jobs.Job) error {
		var m Message
		if err := json.Unmarshal(j.Payload, &m); err != nil {
			return fmt.Errorf("decode notification %d: %w", j.ID, err)
		}
		if err := s.Send(ctx, m.Text); err != nil {
			return fmt.Errorf("send %s: %w", m.Template, err)
		}
		return nil
	}
}

// Handlers returns the worker pool handler map for s.
func Handlers(s Sender) map[string]jobs.Handler {
	return map[string]jobs.Handler{JobType: Handler(s)}
}
