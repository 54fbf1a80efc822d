// Package consts defines application-wide constants.
package consts

import "time"

const (
	// DefaultHandlerTimeout is the default timeout for HTTP handlers.
	DefaultHandlerTimeout = 30 * time.Second
	// DefaultSimulateTime is the default time to simulate a download in the mock fetcher.
	DefaultSimulateTime = 1 * time.Second
)

// HTTP response messages.
const (
	// RespInvalidRequestBody is returned when the request body is invalid.
	RespInvalidRequestBody = "invalid request body"
	// RespQueryParamMissing is returned when a required query parameter is missing or invalid.
	RespQueryParamMissing = "query param missing or invalid"
	// RespUnprocessableEntity is returned when the request cannot be processed.
	RespUnprocessableEntity = "unprocessable entity"
	// RespRunEnqueued is returned when a playlist run is successfully started.
	RespRunEnqueued = "playlist run started"
	// RespRunEnqueueFail is returned when a playlist run cannot be started.
	RespRunEnqueueFail = "playlist run start failed"
	// RespRunAlreadyExists is returned when an active run already exists.
	RespRunAlreadyExists = "playlist run already exists"
	// RespRunRetrieved is returned when a run is successfully retrieved.
	RespRunRetrieved = "playlist run retrieved"
	// RespRunsRetrieved is returned when runs are successfully retrieved.
	RespRunsRetrieved = "playlist runs retrieved"
	// RespRunNotFound is returned when a run is not found.
	RespRunNotFound = "playlist run not found"
	// RespNoRuns is returned when there are no runs available.
	RespNoRuns = "no playlist runs"
	// RespGetRunsFail is returned when fetching all runs fails.
	RespGetRunsFail = "get playlist runs failed"
	// RespRunCancelled is returned when a run cancellation was accepted.
	RespRunCancelled = "playlist run cancellation requested"
	// RespRunCancelFail is returned when a run cannot be cancelled.
	RespRunCancelFail = "playlist run cancel failed"
)

// Fetcher identifiers.
const (
	// FetcherYTdlp is the yt-dlp fetcher identifier.
	FetcherYTdlp = "ytdlp"
	// FetcherMock is the mock fetcher identifier for testing.
	FetcherMock = "mock"
)
