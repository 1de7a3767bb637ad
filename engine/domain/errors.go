package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the pipeline failure taxonomy.
var (
	// ErrSourceUnavailable marks a network/auth failure for one feed source.
	// Recovered locally via backoff, never fatal to the whole loop.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrParse marks a malformed feed payload. The item or source is skipped
	// and the cycle continues.
	ErrParse = errors.New("parse error")

	// ErrProviderUnavailable marks an embedding/completion/search backend
	// failure after retry.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrEmptyContext means neither retrieval nor live search produced usable
	// material. Distinct and non-retryable so callers can render "no
	// information found" instead of a generic failure.
	ErrEmptyContext = errors.New("no relevant context found")
)

// SourceError wraps a per-source failure with the source that caused it.
type SourceError struct {
	Source  Source
	Wrapped error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %s", e.Source, e.Wrapped)
}

func (e *SourceError) Unwrap() error { return e.Wrapped }

// NewSourceError creates a SourceError.
func NewSourceError(source Source, wrapped error) *SourceError {
	return &SourceError{Source: source, Wrapped: wrapped}
}
