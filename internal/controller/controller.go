// Package controller orchestrates one playlist run: it applies the skip
// policy, drives the worker pool, commits job state transitions under a
// single lock, and reports terminal completion exactly once.
package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tunepull/internal/entity"
	"tunepull/internal/errs"
	"tunepull/internal/fetch"
	"tunepull/internal/pool"
	"tunepull/internal/progress"
	"tunepull/internal/skip"
)

// EventSink receives run events from the controller. Events are delivered in
// the order their underlying state transitions were committed.
//
// Callbacks run on the controller's commit path and must not call back into
// the controller; slow work belongs on the sink's own goroutines.
type EventSink interface {
	OnJobUpdate(job entity.Job)
	OnProgress(snap entity.ProgressSnapshot)
	OnPlaylistTerminal(state entity.RunState, snap entity.ProgressSnapshot)
}

// NopSink is an EventSink that discards all events.
type NopSink struct{}

func (NopSink) OnJobUpdate(entity.Job)                                    {}
func (NopSink) OnProgress(entity.ProgressSnapshot)                        {}
func (NopSink) OnPlaylistTerminal(entity.RunState, entity.ProgressSnapshot) {}

// Options configures a controller run.
type Options struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	Timeout     time.Duration
	RetryDelay  time.Duration

	// InterruptInFlight controls whether Cancel interrupts in-flight fetches.
	InterruptInFlight bool
}

// Controller runs a single playlist. Terminal states are final: a new
// playlist requires a new controller.
type Controller struct {
	log     *slog.Logger
	opt     Options
	fetcher fetch.Fetcher
	skip    skip.Policy
	sink    EventSink

	mu        sync.Mutex
	playlist  *entity.Playlist
	agg       progress.Aggregator
	pool      *pool.Pool
	cancelled bool

	done chan struct{}
}

// New creates a controller in the Idle state. A nil sink discards events;
// a nil policy disables skipping.
func New(log *slog.Logger, fetcher fetch.Fetcher, policy skip.Policy, sink EventSink, opt Options) *Controller {
	if sink == nil {
		sink = NopSink{}
	}

	return &Controller{
		log:     log.With(slog.String("package", "controller")),
		opt:     opt,
		fetcher: fetcher,
		skip:    policy,
		sink:    sink,
		done:    make(chan struct{}),
	}
}

// Start moves the controller from Idle to Running: it marks skippable jobs
// before any dispatch, submits the remaining pending jobs to the worker pool,
// and returns without waiting for the run to finish. A playlist with zero
// jobs (or all jobs skipped) completes immediately.
func (c *Controller) Start(ctx context.Context, playlist *entity.Playlist) error {
	if playlist == nil {
		return errs.ErrPlaylistNil
	}

	c.mu.Lock()

	if c.playlist != nil {
		c.mu.Unlock()

		return errs.ErrRunNotIdle
	}

	c.playlist = playlist
	playlist.State = entity.RunStateRunning
	playlist.UpdatedAt = time.Now()

	c.mu.Unlock()

	log := c.log.With("playlist", *playlist)
	log.InfoContext(ctx, "playlist run started")

	// skip pass: decided ahead of dispatch, so no worker ever touches a
	// skippable job
	for _, job := range playlist.Jobs {
		if c.skip != nil && c.skip.ShouldSkip(job) {
			c.Commit(ctx, job, pool.Update{State: entity.JobStateSkipped, Progress: 100})
		}
	}

	// covers the zero-job and all-skipped cases; harmless otherwise since the
	// aggregator completes at most once
	if c.checkComplete(ctx) {
		return nil
	}

	var pending []*entity.Job

	for _, job := range playlist.Jobs {
		if job.State == entity.JobStatePending {
			pending = append(pending, job)
		}
	}

	queueSize := c.opt.QueueSize
	if queueSize < len(pending) {
		queueSize = len(pending)
	}

	pl := pool.New(c.log, c.fetcher, c, pool.Options{
		Workers:           c.opt.Workers,
		QueueSize:         queueSize,
		MaxAttempts:       c.opt.MaxAttempts,
		Timeout:           c.opt.Timeout,
		RetryDelay:        c.opt.RetryDelay,
		InterruptInFlight: c.opt.InterruptInFlight,
	})

	c.mu.Lock()

	if c.cancelled {
		// cancelled between the skip pass and pool creation; nothing was
		// dispatched, finalize directly
		c.finalizeLocked(ctx, entity.RunStateCancelled)
		c.mu.Unlock()

		return nil
	}

	c.pool = pl
	c.mu.Unlock()

	for _, job := range pending {
		if err := pl.Submit(job); err != nil {
			log.ErrorContext(ctx, "submit job", "job", *job, slog.Any("error", err))
		}
	}

	pl.Close()
	pl.Start(ctx)

	go func() {
		pl.Wait()
		c.settle(ctx)
	}()

	return nil
}

// Cancel requests cancellation and returns immediately. Future dispatch
// stops; in-flight jobs are interrupted cooperatively when configured, and
// the run reaches Cancelled once they settle.
func (c *Controller) Cancel() {
	c.mu.Lock()

	if c.playlist == nil || c.playlist.State != entity.RunStateRunning || c.cancelled {
		c.mu.Unlock()

		return
	}

	c.cancelled = true
	pl := c.pool

	if pl == nil {
		// no pool yet (or none was ever needed); Start finalizes if it is
		// still in progress, otherwise do it here
		c.finalizeLocked(context.Background(), entity.RunStateCancelled)
		c.mu.Unlock()

		return
	}

	c.mu.Unlock()

	pl.Cancel()
}

// Done returns a channel closed when the run reaches a terminal state.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// State returns the current run state.
func (c *Controller) State() entity.RunState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playlist == nil {
		return entity.RunStateIdle
	}

	return c.playlist.State
}

// Snapshot recomputes the aggregate progress snapshot.
func (c *Controller) Snapshot() entity.ProgressSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playlist == nil {
		return entity.ProgressSnapshot{}
	}

	return progress.Snapshot(c.playlist.Jobs)
}

// View returns a deep copy of the playlist for readers outside the commit
// lock.
func (c *Controller) View() *entity.Playlist {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.playlist.Clone()
}

// Commit applies a job state transition and fans out events. It is the single
// mutual-exclusion boundary of the run: the transition, the snapshot, the
// completion check and the event emission happen atomically, so completion
// fires exactly once even when workers finish concurrently.
func (c *Controller) Commit(ctx context.Context, job *entity.Job, up pool.Update) {
	if job == nil {
		c.log.ErrorContext(ctx, "commit: nil job")

		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	job.State = up.State
	job.UpdatedAt = now

	if up.Attempt > 0 {
		job.Attempt = up.Attempt
	}

	if up.Progress > 0 {
		job.Progress = up.Progress
	}

	if up.RealizedPath != "" {
		job.RealizedPath = up.RealizedPath
	}

	if up.ErrMsg != "" {
		job.LastError = up.ErrMsg
	}

	c.playlist.UpdatedAt = now

	snap, completed := c.agg.Observe(c.playlist.Jobs)

	c.log.DebugContext(ctx, "job transition committed", "job", *job, "snapshot", snap)

	c.sink.OnJobUpdate(*job)
	c.sink.OnProgress(snap)

	if completed && !c.cancelled {
		c.finalizeLocked(ctx, entity.RunStateCompleted)
	}
}

// settle runs after the pool drains. Under cancellation (explicit or via a
// dying parent context) pending jobs never leave Pending, so the completing
// transition never happens; the run is finalized as Cancelled here once all
// in-flight jobs have settled.
func (c *Controller) settle(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playlist.State == entity.RunStateRunning {
		c.finalizeLocked(ctx, entity.RunStateCancelled)
	}
}

// checkComplete finalizes the run as Completed when every job is already
// terminal. Returns true when the run is over.
func (c *Controller) checkComplete(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playlist.State != entity.RunStateRunning {
		return true
	}

	snap, completed := c.agg.Observe(c.playlist.Jobs)

	if completed && !c.cancelled {
		c.sink.OnProgress(snap)
		c.finalizeLocked(ctx, entity.RunStateCompleted)

		return true
	}

	if c.cancelled {
		c.finalizeLocked(ctx, entity.RunStateCancelled)

		return true
	}

	return false
}

// finalizeLocked commits the terminal run state and emits the terminal event.
// Callers must hold c.mu.
func (c *Controller) finalizeLocked(ctx context.Context, state entity.RunState) {
	if c.playlist.State.Terminal() {
		return
	}

	c.playlist.State = state
	c.playlist.UpdatedAt = time.Now()

	snap := progress.Snapshot(c.playlist.Jobs)

	c.log.InfoContext(ctx, "playlist run finished",
		slog.String("state", string(state)), "snapshot", snap)

	c.sink.OnPlaylistTerminal(state, snap)

	close(c.done)
}
