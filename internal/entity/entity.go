// Package entity defines the core entities used in the application.
package entity

import (
	"fmt"
	"log/slog"
	"time"
)

// Format is the audio output format of a download job.
type Format string

const (
	// FormatMP3 is the default output format.
	FormatMP3 Format = "mp3"
	// FormatWAV is uncompressed PCM audio.
	FormatWAV Format = "wav"
	// FormatM4A is AAC audio in an MP4 container.
	FormatM4A Format = "m4a"
	// FormatOpus is Opus audio.
	FormatOpus Format = "opus"
)

// ParseFormat parses a format string into a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown format: %q", s)
	}

	return f, nil
}

// Valid reports whether the format is one of the supported output formats.
func (f Format) Valid() bool {
	switch f {
	case FormatMP3, FormatWAV, FormatM4A, FormatOpus:
		return true
	default:
		return false
	}
}

// Ext returns the file extension for the format, including the leading dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// JobState represents the state of a single download job.
type JobState string

const (
	// JobStatePending indicates that the job has not been dispatched yet.
	JobStatePending JobState = "pending"
	// JobStateSkipped indicates that the job's target already existed and no download ran.
	JobStateSkipped JobState = "skipped"
	// JobStateRunning indicates that the job occupies a worker slot.
	JobStateRunning JobState = "running"
	// JobStateSucceeded indicates that the job finished and produced its target file.
	JobStateSucceeded JobState = "succeeded"
	// JobStateFailed indicates that the job failed after exhausting its retry budget,
	// or was interrupted by cancellation.
	JobStateFailed JobState = "failed"
)

// Terminal reports whether no further automatic transition occurs from the state.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateSkipped, JobStateSucceeded, JobStateFailed:
		return true
	default:
		return false
	}
}

// Job represents one playlist entry's download-and-convert unit of work.
//
// A Job is owned exclusively by its run's controller once started; workers
// receive a reference for the duration of execution and report outcomes back
// through the controller, never mutating the job directly.
type Job struct {
	ID           string    `json:"id"`
	SourceRef    string    `json:"sourceRef"`
	Title        string    `json:"title,omitempty"`
	TargetPath   string    `json:"targetPath"`
	Format       Format    `json:"format"`
	State        JobState  `json:"state"`
	Progress     int       `json:"progress"`
	Attempt      int       `json:"attempt"`
	LastError    string    `json:"lastError,omitempty"`
	RealizedPath string    `json:"realizedPath,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (j Job) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", j.ID),
		slog.String("source_ref", j.SourceRef),
		slog.String("state", string(j.State)),
		slog.Int("progress", j.Progress),
		slog.Int("attempt", j.Attempt),
		slog.String("target_path", j.TargetPath),
		slog.String("last_error", j.LastError),
	)
}

// RunState represents the state of a playlist run.
type RunState string

const (
	// RunStateIdle indicates that the run has been created but not started.
	RunStateIdle RunState = "idle"
	// RunStateRunning indicates that jobs are being dispatched or executed.
	RunStateRunning RunState = "running"
	// RunStateCompleted indicates that every job reached a terminal state.
	RunStateCompleted RunState = "completed"
	// RunStateCancelled indicates that the run was cancelled before completing.
	RunStateCancelled RunState = "cancelled"
)

// Terminal reports whether the run state is final.
func (s RunState) Terminal() bool {
	return s == RunStateCompleted || s == RunStateCancelled
}

// Playlist represents one download request: an ordered, fixed sequence of jobs
// sharing a destination directory and a default format. Jobs mutate state as
// the run progresses, but the member sequence never changes after creation.
type Playlist struct {
	ID             string    `json:"id"`
	SourceRef      string    `json:"sourceRef"`
	Title          string    `json:"title,omitempty"`
	DestinationDir string    `json:"destinationDir"`
	Format         Format    `json:"format"`
	Jobs           []*Job    `json:"jobs"`
	State          RunState  `json:"state"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// Clone returns a deep copy of the playlist, safe to hand to readers outside
// the controller's lock.
func (p *Playlist) Clone() *Playlist {
	if p == nil {
		return nil
	}

	clone := *p
	clone.Jobs = make([]*Job, len(p.Jobs))

	for i, job := range p.Jobs {
		jobCopy := *job
		clone.Jobs[i] = &jobCopy
	}

	return &clone
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (p Playlist) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", p.ID),
		slog.String("source_ref", p.SourceRef),
		slog.String("state", string(p.State)),
		slog.String("format", string(p.Format)),
		slog.Int("jobs", len(p.Jobs)),
	)
}

// ProgressSnapshot is a point-in-time aggregate of job states across a run.
// It is always recomputed from the playlist's jobs, never mutated on its own.
type ProgressSnapshot struct {
	Pending    int  `json:"pending"`
	Running    int  `json:"running"`
	Succeeded  int  `json:"succeeded"`
	Failed     int  `json:"failed"`
	Skipped    int  `json:"skipped"`
	IsComplete bool `json:"isComplete"`
}

// Total returns the number of jobs covered by the snapshot.
func (s ProgressSnapshot) Total() int {
	return s.Pending + s.Running + s.Succeeded + s.Failed + s.Skipped
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (s ProgressSnapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("pending", s.Pending),
		slog.Int("running", s.Running),
		slog.Int("succeeded", s.Succeeded),
		slog.Int("failed", s.Failed),
		slog.Int("skipped", s.Skipped),
		slog.Bool("is_complete", s.IsComplete),
	)
}
