// Package progress aggregates per-job state into run-level snapshots and
// detects the single transition that completes a run.
package progress

import (
	"tunepull/internal/entity"
)

// Snapshot computes a ProgressSnapshot over the given jobs. It is a pure
// function of the current job states; a run with zero jobs is complete.
func Snapshot(jobs []*entity.Job) entity.ProgressSnapshot {
	var snap entity.ProgressSnapshot

	for _, job := range jobs {
		switch job.State {
		case entity.JobStatePending:
			snap.Pending++
		case entity.JobStateRunning:
			snap.Running++
		case entity.JobStateSucceeded:
			snap.Succeeded++
		case entity.JobStateFailed:
			snap.Failed++
		case entity.JobStateSkipped:
			snap.Skipped++
		}
	}

	snap.IsComplete = snap.Pending == 0 && snap.Running == 0

	return snap
}

// Aggregator tracks whether a run's completing transition has already been
// observed. The zero value is ready for use.
//
// Aggregator is not safe for concurrent use on its own: Observe must be
// called under the same mutual-exclusion boundary that commits job state
// transitions, so that exactly one transition observes completion.
type Aggregator struct {
	completed bool
}

// Observe recomputes the snapshot after a state transition and reports
// whether this transition is the one that completed the run. The completion
// signal fires at most once per Aggregator.
func (a *Aggregator) Observe(jobs []*entity.Job) (entity.ProgressSnapshot, bool) {
	snap := Snapshot(jobs)

	if snap.IsComplete && !a.completed {
		a.completed = true

		return snap, true
	}

	return snap, false
}

// Completed reports whether the completion signal has fired.
func (a *Aggregator) Completed() bool {
	return a.completed
}
