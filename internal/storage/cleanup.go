package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tunepull/internal/entity"
)

// CleanupExpiredRuns periodically removes expired terminal runs from the
// registry, along with leftover partial download files of jobs that never
// succeeded.
func (stg *storage) CleanupExpiredRuns(ctx context.Context) {
	interval := stg.cfg.Storage.CleanupInterval

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := stg.log.With(slog.String("action", "cleanup_expired_runs"), slog.Duration("interval", interval))

	for {
		select {
		case <-ticker.C:
			stg.performCleanup(ctx)
		case <-ctx.Done():
			log.Info("cleanup expired runs stopped")

			return
		}
	}
}

func (stg *storage) performCleanup(ctx context.Context) {
	log := stg.log
	now := time.Now()

	expired := stg.getExpiredRuns(now)

	if len(expired) == 0 {
		log.DebugContext(ctx, "no expired runs found to clean up")

		return
	}

	log.InfoContext(ctx, "about to remove expired runs", slog.Int("count", len(expired)))

	deletedFiles := 0

	for _, run := range expired {
		deletedFiles += stg.cleanupRun(ctx, run)
		stg.DeleteRun(ctx, run.ID)
	}

	if stg.metrics != nil {
		stg.metrics.RecordCleanup(len(expired), deletedFiles)
	}
}

// getExpiredRuns returns terminal runs past their expiry time. Active runs
// are never cleaned up, regardless of age.
func (stg *storage) getExpiredRuns(now time.Time) []*Run {
	stg.mu.RLock()
	defer stg.mu.RUnlock()

	var expired []*Run

	for _, run := range stg.runs {
		view := run.View()
		if view == nil {
			continue
		}

		if view.State.Terminal() && view.ExpiresAt.Before(now) {
			expired = append(expired, run)
		}
	}

	return expired
}

// cleanupRun removes partial download leftovers of jobs that never produced
// their target: .part fragments and unconverted intermediates.
func (stg *storage) cleanupRun(ctx context.Context, run *Run) int {
	log := stg.log

	view := run.View()
	if view == nil {
		return 0
	}

	deletedFiles := 0

	for _, job := range view.Jobs {
		if job.State != entity.JobStateFailed && job.State != entity.JobStatePending {
			continue
		}

		for _, leftover := range leftoverPaths(job) {
			if !filepath.IsAbs(leftover) {
				log.ErrorContext(ctx, "non-absolute path found", slog.String("filename", leftover))

				continue
			}

			err := os.Remove(leftover)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			if err != nil {
				log.ErrorContext(ctx, "failed to delete file", slog.String("filename", leftover), slog.Any("error", err))

				continue
			}

			deletedFiles++

			log.DebugContext(ctx, "deleted leftover file", slog.String("filename", leftover))
		}
	}

	log.DebugContext(ctx, "run cleaned up",
		slog.String("run_id", run.ID),
		slog.Int("deleted_files", deletedFiles),
		slog.Int("jobs", len(view.Jobs)))

	return deletedFiles
}

func leftoverPaths(job *entity.Job) []string {
	base := strings.TrimSuffix(job.TargetPath, job.Format.Ext())

	paths := []string{
		job.TargetPath + ".part",
		base + ".m4a.part",
	}

	// unconverted intermediate, unless it is the target format itself
	if job.Format != entity.FormatM4A {
		paths = append(paths, base+".m4a")
	}

	return paths
}
