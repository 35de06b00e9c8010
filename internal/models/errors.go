package models

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline errors so callers can tell fatal configuration
// problems from per-file failures without string matching.
type Kind string

const (
	KindValidation  Kind = "validation"  // file rejected by the security screen
	KindExtraction  Kind = "extraction"  // content could not be parsed
	KindResource    Kind = "resource"    // a configured ceiling was hit
	KindTimeout     Kind = "timeout"     // batch or task deadline passed
	KindConfig      Kind = "config"      // invalid configuration, fatal at startup
	KindUnavailable Kind = "unavailable" // a required runtime (OCR) is missing
)

// PipelineError is an error with a machine-readable kind. Configuration
// errors abort the run; every other kind becomes a per-file warning.
type PipelineError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Message: message, Err: err}
}

// Constructors, one per kind.

func ValidationError(message string, err error) *PipelineError {
	return newError(KindValidation, message, err)
}

func ExtractionError(message string, err error) *PipelineError {
	return newError(KindExtraction, message, err)
}

func ResourceError(message string, err error) *PipelineError {
	return newError(KindResource, message, err)
}

func TimeoutError(message string, err error) *PipelineError {
	return newError(KindTimeout, message, err)
}

func ConfigError(message string, err error) *PipelineError {
	return newError(KindConfig, message, err)
}

func UnavailableError(message string, err error) *PipelineError {
	return newError(KindUnavailable, message, err)
}

// KindOf returns the kind of err, unwrapping as needed, or "" for errors
// that did not originate in this package.
func KindOf(err error) Kind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
