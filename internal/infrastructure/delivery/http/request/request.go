// Package request defines the HTTP request payloads and their validation.
package request

import (
	"tunepull/internal/entity"
	"tunepull/internal/errs"
	"tunepull/pkg/urls"
)

// Enqueue is the payload for starting a playlist run.
type Enqueue struct {
	URL    string `json:"url"`
	Format string `json:"format"` // e.g. "mp3"; empty means the configured default
}

// Validate checks the payload fields.
func (e *Enqueue) Validate() error {
	if !urls.IsURLValid(urls.FixURL(e.URL)) {
		return errs.ErrInvalidURL
	}

	if e.Format != "" && !entity.Format(e.Format).Valid() {
		return errs.ErrInvalidFormat
	}

	return nil
}
