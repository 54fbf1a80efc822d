package progress

import (
	"testing"

	"tunepull/internal/entity"
)

func jobsWithStates(states ...entity.JobState) []*entity.Job {
	jobs := make([]*entity.Job, 0, len(states))
	for i, s := range states {
		jobs = append(jobs, &entity.Job{ID: string(rune('a' + i)), State: s})
	}

	return jobs
}

func TestSnapshot(t *testing.T) {
	tests := []struct {
		name     string
		states   []entity.JobState
		want     entity.ProgressSnapshot
		complete bool
	}{
		{
			name:     "zero jobs is complete",
			states:   nil,
			complete: true,
		},
		{
			name:     "pending keeps the run open",
			states:   []entity.JobState{entity.JobStatePending, entity.JobStateSucceeded},
			complete: false,
		},
		{
			name:     "running keeps the run open",
			states:   []entity.JobState{entity.JobStateRunning, entity.JobStateSucceeded},
			complete: false,
		},
		{
			name: "all terminal is complete",
			states: []entity.JobState{
				entity.JobStateSucceeded, entity.JobStateFailed, entity.JobStateSkipped,
			},
			complete: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Snapshot(jobsWithStates(tt.states...))
			if snap.IsComplete != tt.complete {
				t.Errorf("expected complete=%v, got %v", tt.complete, snap.IsComplete)
			}
			if snap.Total() != len(tt.states) {
				t.Errorf("expected total %d, got %d", len(tt.states), snap.Total())
			}
		})
	}
}

func TestSnapshotCounts(t *testing.T) {
	jobs := jobsWithStates(
		entity.JobStatePending,
		entity.JobStateRunning, entity.JobStateRunning,
		entity.JobStateSucceeded,
		entity.JobStateFailed,
		entity.JobStateSkipped,
	)

	snap := Snapshot(jobs)

	if snap.Pending != 1 || snap.Running != 2 || snap.Succeeded != 1 || snap.Failed != 1 || snap.Skipped != 1 {
		t.Errorf("unexpected counts: %+v", snap)
	}
	if snap.IsComplete {
		t.Error("expected incomplete snapshot")
	}
}

func TestAggregatorObserveExactlyOnce(t *testing.T) {
	jobs := jobsWithStates(entity.JobStateRunning)

	var agg Aggregator

	if _, completed := agg.Observe(jobs); completed {
		t.Error("completion fired while a job was still running")
	}

	jobs[0].State = entity.JobStateSucceeded

	if _, completed := agg.Observe(jobs); !completed {
		t.Error("expected completion on the finishing transition")
	}

	// repeated observations of a complete run never fire again
	for range 3 {
		if _, completed := agg.Observe(jobs); completed {
			t.Error("completion fired more than once")
		}
	}

	if !agg.Completed() {
		t.Error("expected aggregator to report completed")
	}
}

func TestAggregatorZeroJobs(t *testing.T) {
	var agg Aggregator

	if _, completed := agg.Observe(nil); !completed {
		t.Error("expected a zero-job run to complete immediately")
	}
	if _, completed := agg.Observe(nil); completed {
		t.Error("completion fired twice for a zero-job run")
	}
}
