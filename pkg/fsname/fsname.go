// Package fsname derives safe file names from free-form titles.
package fsname

import (
	"strings"
)

const replacement = ""

// unsafe characters are stripped rather than escaped so that the resulting
// names stay readable in a music folder.
const unsafeChars = `\/*?:"<>|`

// Sanitize removes characters that are unsafe for file names and trims
// surrounding whitespace and trailing dots.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		if strings.ContainsRune(unsafeChars, r) {
			b.WriteString(replacement)

			continue
		}

		b.WriteRune(r)
	}

	out := strings.TrimSpace(b.String())
	out = strings.TrimRight(out, ".")

	return out
}

// WithExt sanitizes name and appends ext (which must include the leading dot).
// An empty sanitized name falls back to fallback.
func WithExt(name, fallback, ext string) string {
	out := Sanitize(name)
	if out == "" {
		out = fallback
	}

	return out + ext
}
