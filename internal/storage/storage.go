// Package storage keeps the in-memory registry of playlist runs for the
// lifetime of the process.
package storage

import (
	"context"
	"log/slog"
	"sync"

	"tunepull/internal/config"
	"tunepull/internal/controller"
	"tunepull/internal/entity"
	"tunepull/internal/errs"
	"tunepull/internal/observability"
)

// Run couples a playlist with the controller driving it. Playlist state is
// read through the controller, which serves consistent copies from under its
// commit lock.
type Run struct {
	ID         string
	Controller *controller.Controller
}

// View returns a consistent copy of the run's playlist.
func (r *Run) View() *entity.Playlist {
	return r.Controller.View()
}

// Storer defines the interface for run registry operations.
type Storer interface {
	SetRun(ctx context.Context, run *Run)
	GetRunByID(ctx context.Context, id string) *Run
	GetRuns(ctx context.Context) ([]*Run, error)
	DeleteRun(ctx context.Context, id string)

	CleanupExpiredRuns(ctx context.Context)
}

type storage struct {
	log     *slog.Logger
	cfg     *config.Config
	metrics *observability.Metrics

	mu   sync.RWMutex
	runs map[string]*Run // run UUID : run
}

// New creates a new in-memory run registry and starts its cleanup loop.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config, metrics *observability.Metrics) Storer {
	stg := &storage{
		log:     log.With(slog.String("package", "storage")),
		cfg:     cfg,
		metrics: metrics,
		runs:    make(map[string]*Run),
	}

	go stg.CleanupExpiredRuns(ctx)

	return stg
}

func (stg *storage) SetRun(ctx context.Context, run *Run) {
	if run == nil || run.ID == "" {
		stg.log.ErrorContext(ctx, "set run: nil run or empty id")

		return
	}

	stg.mu.Lock()
	defer stg.mu.Unlock()

	stg.runs[run.ID] = run

	if stg.metrics != nil {
		stg.metrics.SetStoredRuns(len(stg.runs))
	}
}

func (stg *storage) GetRunByID(_ context.Context, id string) *Run {
	stg.mu.RLock()
	defer stg.mu.RUnlock()

	return stg.runs[id]
}

func (stg *storage) GetRuns(_ context.Context) ([]*Run, error) {
	stg.mu.RLock()
	defer stg.mu.RUnlock()

	if len(stg.runs) == 0 {
		return nil, errs.ErrNoRuns
	}

	runs := make([]*Run, 0, len(stg.runs))
	for _, run := range stg.runs {
		runs = append(runs, run)
	}

	return runs, nil
}

func (stg *storage) DeleteRun(_ context.Context, id string) {
	stg.mu.Lock()
	defer stg.mu.Unlock()

	delete(stg.runs, id)

	if stg.metrics != nil {
		stg.metrics.SetStoredRuns(len(stg.runs))
	}
}
