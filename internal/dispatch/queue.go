package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/btouchard/midicue/internal/pushover"
)

var (
	ErrQueueFull   = errors.New("dispatch queue is full")
	ErrQueueClosed = errors.New("dispatch queue is closed")
)

const (
	defaultQueueSize  = 32
	defaultJobTimeout = 15 * time.Second
)

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, message string, priority pushover.Priority) (*pushover.Receipt, error)
}

// Job is one notification waiting for delivery.
type Job struct {
	Note     int // -1 when not triggered by a note
	Message  string
	Priority pushover.Priority
	Enqueued time.Time
}

// Result is reported once per job.
type Result struct {
	Job      Job
	Receipt  *pushover.Receipt
	Err      error
	Duration time.Duration
}

// ResultFunc receives job outcomes on the worker goroutine.
type ResultFunc func(Result)

// Queue runs jobs one at a time on a single worker so that slow deliveries
// never hold up the MIDI poller.
type Queue struct {
	sender     Sender
	jobs       chan Job
	jobTimeout time.Duration
	onResult   ResultFunc

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewQueue starts the worker. size and jobTimeout fall back to defaults when <= 0.
func NewQueue(sender Sender, size int, jobTimeout time.Duration, onResult ResultFunc) *Queue {
	if size <= 0 {
		size = defaultQueueSize
	}
	if jobTimeout <= 0 {
		jobTimeout = defaultJobTimeout
	}
	q := &Queue{
		sender:     sender,
		jobs:       make(chan Job, size),
		jobTimeout: jobTimeout,
		onResult:   onResult,
		done:       make(chan struct{}),
	}
	go q.work()
	return q
}

// Enqueue adds a job without blocking.
func (q *Queue) Enqueue(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now()
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		slog.Warn("dispatch queue full, dropping notification",
			"note", job.Note,
			"capacity", cap(q.jobs))
		return ErrQueueFull
	}
}

// Pending returns the number of queued jobs.
func (q *Queue) Pending() int { return len(q.jobs) }

// Close stops accepting jobs, delivers those already queued, and waits for
// the worker to exit.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	<-q.done
}

func (q *Queue) work() {
	defer close(q.done)
	for job := range q.jobs {
		q.run(job)
	}
}

func (q *Queue) run(job Job) {
	start := time.Now()
	res := Result{Job: job}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatch panicked", "note", job.Note, "panic", r)
			res.Err = fmt.Errorf("internal panic: %v", r)
		}
		res.Duration = time.Since(start)
		q.report(res)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), q.jobTimeout)
	defer cancel()

	res.Receipt, res.Err = q.sender.Send(ctx, job.Message, job.Priority)
}

// report hands res to onResult. A panicking callback is logged so the worker
// keeps draining the queue.
func (q *Queue) report(res Result) {
	if q.onResult == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatch result handler panicked", "note", res.Job.Note, "panic", r)
		}
	}()
	q.onResult(res)
}
