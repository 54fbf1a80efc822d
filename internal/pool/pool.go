// Package pool bounds concurrent job execution to a fixed number of worker
// slots and drives the external download capability with retries.
package pool

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"tunepull/internal/entity"
	"tunepull/internal/errs"
	"tunepull/internal/fetch"
)

// Update describes a job state commit reported by a worker. Zero-valued
// fields leave the corresponding job field untouched.
type Update struct {
	State        entity.JobState
	Attempt      int
	Progress     int
	RealizedPath string
	ErrMsg       string
	// Cancelled marks a failure caused by cancellation rather than by the
	// capability; it carries a distinct reason and ends the job regardless of
	// the remaining retry budget.
	Cancelled bool
}

// Sink receives job lifecycle commits from workers. Implementations must be
// safe for concurrent use; the pool never mutates jobs itself.
type Sink interface {
	Commit(ctx context.Context, job *entity.Job, up Update)
}

// Options configures a pool.
type Options struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	RetryDelay  time.Duration

	// Timeout bounds a single fetch attempt; zero means no limit.
	Timeout time.Duration

	// InterruptInFlight propagates Cancel to in-flight fetches via context.
	// When false, cancellation only prevents future dispatch.
	InterruptInFlight bool
}

// Pool executes submitted jobs on at most Workers concurrent slots. A job
// handed to a worker leaves the queue atomically with dispatch, so no two
// workers ever run the same job.
type Pool struct {
	log     *slog.Logger
	fetcher fetch.Fetcher
	sink    Sink
	opt     Options

	queue chan *entity.Job

	wg        sync.WaitGroup
	cancelled atomic.Bool
	startOnce sync.Once
	closeOnce sync.Once

	mu        sync.Mutex
	interrupt context.CancelFunc
}

// New creates a pool. Worker count and retry budget are clamped to at least 1.
func New(log *slog.Logger, fetcher fetch.Fetcher, sink Sink, opt Options) *Pool {
	if opt.Workers < 1 {
		opt.Workers = 1
	}

	if opt.MaxAttempts < 1 {
		opt.MaxAttempts = 1
	}

	if opt.QueueSize < 1 {
		opt.QueueSize = 1
	}

	return &Pool{
		log:     log.With(slog.String("package", "pool")),
		fetcher: fetcher,
		sink:    sink,
		opt:     opt,
		queue:   make(chan *entity.Job, opt.QueueSize),
	}
}

// Submit queues a job for execution. It never blocks: a full queue or a
// cancelled pool is reported as an error and the job stays pending.
func (p *Pool) Submit(job *entity.Job) error {
	if job == nil {
		return errs.ErrJobNil
	}

	if p.cancelled.Load() {
		return errs.ErrPoolClosed
	}

	select {
	case p.queue <- job:
		return nil
	default:
		return errs.ErrQueueFull
	}
}

// Close marks the end of submissions; workers exit once the queue drains.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
	})
}

// Start launches the worker slots. Subsequent calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		fetchCtx, cancel := context.WithCancel(ctx)

		p.mu.Lock()
		p.interrupt = cancel
		p.mu.Unlock()

		if p.cancelled.Load() && p.opt.InterruptInFlight {
			cancel()
		}

		for i := range p.opt.Workers {
			p.wg.Add(1)
			go p.worker(ctx, fetchCtx, i)
		}
	})
}

// Cancel stops future dispatch and, when configured, interrupts in-flight
// fetches. It returns immediately; Wait observes the drain.
func (p *Pool) Cancel() {
	p.cancelled.Store(true)

	if !p.opt.InterruptInFlight {
		return
	}

	p.mu.Lock()
	interrupt := p.interrupt
	p.mu.Unlock()

	if interrupt != nil {
		interrupt()
	}
}

// Wait blocks until all workers have exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context, fetchCtx context.Context, workerID int) {
	defer p.wg.Done()

	log := p.log.With(slog.Int("worker_id", workerID))

	for job := range p.queue {
		if job == nil {
			log.WarnContext(ctx, "received nil job")

			continue
		}

		// drained without dispatch: the job stays pending
		if p.cancelled.Load() || ctx.Err() != nil {
			log.DebugContext(ctx, "skipping dispatch after cancel", "job", *job)

			continue
		}

		p.run(ctx, fetchCtx, log, job)
	}
}

// run executes one job, retrying failed fetches until the budget is spent.
// The job holds its worker slot for the whole retry loop, so retries never
// inflate concurrency beyond the slot count.
func (p *Pool) run(ctx context.Context, fetchCtx context.Context, log *slog.Logger, job *entity.Job) {
	attempt := 0

	for {
		attempt++
		p.sink.Commit(ctx, job, Update{State: entity.JobStateRunning, Attempt: attempt})

		progressFn := func(percent int) {
			p.sink.Commit(ctx, job, Update{State: entity.JobStateRunning, Attempt: attempt, Progress: percent})
		}

		realized, err := p.fetchAttempt(fetchCtx, job, progressFn)
		if err == nil {
			p.sink.Commit(ctx, job, Update{
				State:        entity.JobStateSucceeded,
				Attempt:      attempt,
				Progress:     100,
				RealizedPath: realized,
			})

			return
		}

		// a dead fetch context means cancellation; a per-attempt timeout with a
		// live fetch context is an ordinary failure and consumes retry budget
		if fetchCtx.Err() != nil || errors.Is(err, context.Canceled) {
			p.sink.Commit(ctx, job, Update{
				State:     entity.JobStateFailed,
				Attempt:   attempt,
				ErrMsg:    errs.ErrJobCancelled.Error(),
				Cancelled: true,
			})

			return
		}

		if attempt >= p.opt.MaxAttempts {
			log.WarnContext(ctx, "job failed, retry budget exhausted",
				"job", *job, slog.Int("attempts", attempt), slog.Any("error", err))

			p.sink.Commit(ctx, job, Update{
				State:   entity.JobStateFailed,
				Attempt: attempt,
				ErrMsg:  err.Error(),
			})

			return
		}

		log.DebugContext(ctx, "job failed, retrying",
			"job", *job, slog.Int("attempt", attempt), slog.Any("error", err))

		// the job stays Running between attempts; only exhausting the budget
		// makes Failed terminal
		p.sink.Commit(ctx, job, Update{State: entity.JobStateRunning, Attempt: attempt, ErrMsg: err.Error()})

		if !p.sleep(fetchCtx) {
			p.sink.Commit(ctx, job, Update{
				State:     entity.JobStateFailed,
				Attempt:   attempt,
				ErrMsg:    errs.ErrJobCancelled.Error(),
				Cancelled: true,
			})

			return
		}
	}
}

// fetchAttempt runs a single fetch under the per-attempt timeout.
func (p *Pool) fetchAttempt(fetchCtx context.Context, job *entity.Job, progressFn fetch.ProgressFunc) (string, error) {
	attemptCtx := fetchCtx

	if p.opt.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(fetchCtx, p.opt.Timeout)

		defer cancel()
	}

	return p.fetcher.Fetch(attemptCtx, job, progressFn)
}

// sleep waits out the retry delay; it reports false when the wait was
// interrupted by cancellation.
func (p *Pool) sleep(ctx context.Context) bool {
	if p.opt.RetryDelay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(p.opt.RetryDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
