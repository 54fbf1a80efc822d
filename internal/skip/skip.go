// Package skip decides, ahead of dispatch, whether a job's output already
// exists and the download can be skipped.
package skip

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"tunepull/internal/entity"
)

// Policy decides whether a job should be skipped. Implementations must be
// deterministic and side-effect-free so the check can run before dispatch
// without locking.
type Policy interface {
	ShouldSkip(job *entity.Job) bool
}

type filePolicy struct {
	log *slog.Logger
}

// NewFilePolicy returns a Policy that skips a job when a nonempty file with
// the expected format extension already exists at the job's target path.
func NewFilePolicy(log *slog.Logger) Policy {
	return &filePolicy{log: log.With(slog.String("package", "skip"))}
}

func (p *filePolicy) ShouldSkip(job *entity.Job) bool {
	if job == nil || job.TargetPath == "" {
		return false
	}

	if !strings.HasSuffix(job.TargetPath, job.Format.Ext()) {
		return false
	}

	info, err := os.Stat(job.TargetPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}

	if err != nil {
		// probe failures are treated as "not skippable": the job proceeds to
		// download and surfaces any real I/O problem there
		p.log.Warn("skip probe failed", slog.String("target_path", job.TargetPath), slog.Any("error", err))

		return false
	}

	return !info.IsDir() && info.Size() > 0
}
