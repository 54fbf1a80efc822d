package service

import (
	"sync"
	"time"

	"tunepull/internal/controller"
	"tunepull/internal/entity"
	"tunepull/internal/observability"
)

// multiSink fans run events out to multiple sinks in order.
type multiSink []controller.EventSink

func (m multiSink) OnJobUpdate(job entity.Job) {
	for _, s := range m {
		s.OnJobUpdate(job)
	}
}

func (m multiSink) OnProgress(snap entity.ProgressSnapshot) {
	for _, s := range m {
		s.OnProgress(snap)
	}
}

func (m multiSink) OnPlaylistTerminal(state entity.RunState, snap entity.ProgressSnapshot) {
	for _, s := range m {
		s.OnPlaylistTerminal(state, snap)
	}
}

// metricsSink translates run events into Prometheus metrics. Job updates fire
// on every progress tick, so terminal jobs are deduplicated by ID.
type metricsSink struct {
	metrics *observability.Metrics

	mu   sync.Mutex
	seen map[string]struct{} // terminal job IDs already recorded
}

func newMetricsSink(metrics *observability.Metrics) *metricsSink {
	return &metricsSink{metrics: metrics, seen: make(map[string]struct{})}
}

func (ms *metricsSink) OnJobUpdate(job entity.Job) {
	if ms.metrics == nil || !job.State.Terminal() {
		return
	}

	ms.mu.Lock()
	_, dup := ms.seen[job.ID]
	ms.seen[job.ID] = struct{}{}
	ms.mu.Unlock()

	if dup {
		return
	}

	var duration time.Duration
	if !job.CreatedAt.IsZero() {
		duration = job.UpdatedAt.Sub(job.CreatedAt)
	}

	ms.metrics.RecordJobTerminal(string(job.State), job.Attempt, duration)
}

func (ms *metricsSink) OnProgress(snap entity.ProgressSnapshot) {
	if ms.metrics == nil {
		return
	}

	ms.metrics.SetJobsInProgress(snap.Running)
}

func (ms *metricsSink) OnPlaylistTerminal(state entity.RunState, _ entity.ProgressSnapshot) {
	if ms.metrics == nil {
		return
	}

	ms.metrics.RecordRunTerminal(state == entity.RunStateCancelled)
}
