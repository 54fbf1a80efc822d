package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"tunepull/internal/consts"
	"tunepull/internal/entity"
	"tunepull/internal/errs"
)

const simulateSteps = 10

// Mock is a scripted Fetcher for tests: it simulates a stepped download and
// fails a configurable number of times per source before succeeding. It also
// records invocation counts and the peak number of concurrent fetches.
type Mock struct {
	log             *slog.Logger
	simulateTime    time.Duration
	ignoreInterrupt bool

	mu       sync.Mutex
	failures map[string]int // sourceRef : remaining scripted failures
	calls    map[string]int // sourceRef : fetch invocations

	running    atomic.Int32
	maxRunning atomic.Int32
}

// MockOption configures the mock fetcher.
type MockOption func(*Mock)

// WithSimulateTime overrides the simulated download duration.
func WithSimulateTime(d time.Duration) MockOption {
	return func(m *Mock) { m.simulateTime = d }
}

// WithIgnoreInterrupt makes in-flight fetches run to completion even when
// their context is cancelled, modelling a capability without preemption.
func WithIgnoreInterrupt() MockOption {
	return func(m *Mock) { m.ignoreInterrupt = true }
}

// NewMock creates a mock fetcher.
func NewMock(log *slog.Logger, opts ...MockOption) *Mock {
	m := &Mock{
		log:          log.With(slog.String("package", "fetch"), slog.String("fetcher", consts.FetcherMock)),
		simulateTime: consts.DefaultSimulateTime,
		failures:     make(map[string]int),
		calls:        make(map[string]int),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// FailTimes scripts n failures for sourceRef before fetches succeed.
func (m *Mock) FailTimes(sourceRef string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures[sourceRef] = n
}

// Calls returns the number of fetch invocations recorded for sourceRef.
func (m *Mock) Calls(sourceRef string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls[sourceRef]
}

// MaxConcurrent returns the peak number of simultaneous fetches observed.
func (m *Mock) MaxConcurrent() int {
	return int(m.maxRunning.Load())
}

// Fetch simulates a stepped download and returns the job's target path.
func (m *Mock) Fetch(ctx context.Context, job *entity.Job, progressFn ProgressFunc) (string, error) {
	if job == nil {
		return "", errs.ErrJobNil
	}

	n := m.running.Add(1)
	defer m.running.Add(-1)

	for {
		peak := m.maxRunning.Load()
		if n <= peak || m.maxRunning.CompareAndSwap(peak, n) {
			break
		}
	}

	m.mu.Lock()
	m.calls[job.SourceRef]++
	m.mu.Unlock()

	log := m.log.With(slog.String("func", "Fetch"), "job", *job)

	if err := m.simulate(ctx, progressFn); err != nil {
		log.DebugContext(ctx, "simulated fetch interrupted", slog.Any("error", err))

		return "", err
	}

	m.mu.Lock()
	remaining := m.failures[job.SourceRef]
	if remaining > 0 {
		m.failures[job.SourceRef] = remaining - 1
	}
	m.mu.Unlock()

	if remaining > 0 {
		log.DebugContext(ctx, "simulated fetch failure", slog.Int("remaining", remaining-1))

		return "", fmt.Errorf("%w: scripted failure", errs.ErrFetchFailed)
	}

	log.DebugContext(ctx, "simulated fetch done")

	return job.TargetPath, nil
}

func (m *Mock) simulate(ctx context.Context, progressFn ProgressFunc) error {
	ticker := time.NewTicker(m.simulateTime / simulateSteps)
	defer ticker.Stop()

	for step := 1; step <= simulateSteps; step++ {
		if m.ignoreInterrupt {
			<-ticker.C
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}

		if progressFn != nil {
			progressFn(step * (100 / simulateSteps))
		}
	}

	return nil
}

// MockResolver is a scripted Resolver for tests.
type MockResolver struct {
	Info *PlaylistInfo
	Err  error
}

// Resolve returns the scripted playlist info or error.
func (r *MockResolver) Resolve(_ context.Context, _ string) (*PlaylistInfo, error) {
	if r.Err != nil {
		return nil, r.Err
	}

	return r.Info, nil
}
