// Package fetch defines the external download capability contract and its
// implementations.
package fetch

import (
	"context"
	"errors"

	"tunepull/internal/entity"
)

// ProgressFunc receives download progress for the job being fetched, as a
// percentage in [0, 100].
type ProgressFunc func(percent int)

// Fetcher is the external download capability: it downloads the job's source
// and produces an audio file at (or near) the job's target path. It must be
// safely callable concurrently from multiple workers with distinct jobs, and
// returns a definite success or failure outcome.
type Fetcher interface {
	Fetch(ctx context.Context, job *entity.Job, progressFn ProgressFunc) (realizedPath string, err error)
}

// Entry is one resolved playlist member.
type Entry struct {
	ID       string
	Title    string
	URL      string
	Duration int // seconds
}

// PlaylistInfo is the result of resolving a playlist locator.
type PlaylistInfo struct {
	ID      string
	Title   string
	Entries []Entry
}

// Resolver expands a playlist locator into its entries without downloading
// anything.
type Resolver interface {
	Resolve(ctx context.Context, sourceRef string) (*PlaylistInfo, error)
}

func classifyFetchError(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "fetch"
	}
}
