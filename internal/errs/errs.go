// Package errs defines common error variables used across the application.
package errs

import "errors"

// Request validation errors.
var (
	// ErrInvalidURL indicates that the playlist URL is invalid.
	ErrInvalidURL = errors.New("invalid url field")
	// ErrInvalidFormat indicates that the requested audio format is not supported.
	ErrInvalidFormat = errors.New("invalid format field")
)

// Run errors.
var (
	// ErrNoRuns indicates that there are no playlist runs in the registry.
	ErrNoRuns = errors.New("no playlist runs")
	// ErrRunAlreadyExists indicates that an active run already exists for the
	// same playlist URL and format.
	ErrRunAlreadyExists = errors.New("playlist run already exists")
	// ErrRunNotFound indicates that the run is not found in the registry.
	ErrRunNotFound = errors.New("playlist run not found")
	// ErrRunNotIdle indicates that the controller was already started; a new
	// playlist requires a new controller.
	ErrRunNotIdle = errors.New("playlist run is not idle")
	// ErrRunNotRunning indicates that the run is not in a cancellable state.
	ErrRunNotRunning = errors.New("playlist run is not running")
	// ErrPlaylistNil indicates that the playlist is nil.
	ErrPlaylistNil = errors.New("playlist is nil")
)

// Job and pool errors.
var (
	// ErrJobNil indicates that the job is nil.
	ErrJobNil = errors.New("job is nil")
	// ErrJobCancelled indicates that the job was interrupted by cancellation.
	ErrJobCancelled = errors.New("job cancelled")
	// ErrPoolClosed indicates that the pool no longer accepts submissions.
	ErrPoolClosed = errors.New("worker pool is closed")
	// ErrQueueFull indicates that the job queue is full.
	ErrQueueFull = errors.New("job queue is full")
)

// Fetch errors.
var (
	// ErrFetchFailed indicates that the external download capability failed.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrResolveFailed indicates that the playlist could not be resolved into entries.
	ErrResolveFailed = errors.New("playlist resolve failed")
	// ErrBinaryNotFound indicates that a required binary was not found.
	ErrBinaryNotFound = errors.New("binary not found")
	// ErrUnsupportedPlatform indicates that the current platform is not supported.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)
