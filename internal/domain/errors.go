package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when required input is missing or malformed
	ErrValidation = errors.New("invalid request parameters")

	// ErrProductNotFound is returned when no product exists for a barcode
	ErrProductNotFound = errors.New("product not found")

	// ErrUpstreamFailure is returned when the product database is unreachable or erroring
	ErrUpstreamFailure = errors.New("product lookup service failed")

	// ErrAnalysisFailed is returned when the reasoning backend fails or returns malformed output
	ErrAnalysisFailed = errors.New("allergen analysis failed")

	// ErrAnalysisInFlight is returned when an analysis is submitted while another is outstanding
	ErrAnalysisInFlight = errors.New("an allergen analysis is already in progress")

	// ErrIngredientsMissing is returned when an analysis is requested without ingredient text
	ErrIngredientsMissing = errors.New("analysis not performed: ingredients missing")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)

// ValidationError names the offending field so callers can show inline guidance
type ValidationError struct {
	Field   string
	Message string
	Err     error // optional, more specific sentinel
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError builds a ValidationError for the given field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// UpstreamError preserves the status code returned by the product database.
// StatusCode is 0 when the service could not be reached at all.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%v: %v", ErrUpstreamFailure, e.Err)
	}
	return fmt.Sprintf("%v: status %d: %v", ErrUpstreamFailure, e.StatusCode, e.Err)
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamFailure
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// AnalysisError reports why an analysis could not produce a verdict
type AnalysisError struct {
	Reason string // backend, malformed_output, timeout
	Err    error
}

// Analysis failure reasons
const (
	AnalysisReasonBackend   = "backend"
	AnalysisReasonMalformed = "malformed_output"
	AnalysisReasonTimeout   = "timeout"
)

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%v (%s): %v", ErrAnalysisFailed, e.Reason, e.Err)
}

func (e *AnalysisError) Is(target error) bool {
	return target == ErrAnalysisFailed
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}
