package entity

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrConfiguration       = errors.New("configuration error")
	ErrNavigationTimeout   = errors.New("navigation timed out")
	ErrTargetCrashed       = errors.New("render target crashed")
	ErrRenderFailed        = errors.New("render failed")
	ErrAnalysisUnavailable = errors.New("analysis unavailable")
	ErrNonRetryableRequest = errors.New("non-retryable request")
	ErrRunTimeout          = errors.New("run timed out")
	ErrRunFinalized        = errors.New("run stats already finalized")
	ErrQueueEmpty          = errors.New("queue is empty")
	ErrNotFound            = errors.New("not found")
)

// ConfigurationError is fatal and surfaces before any crawling starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// AnalysisUnavailableError is returned when the completion call itself failed.
type AnalysisUnavailableError struct {
	Message             string
	TruncatedSourceText string
	Err                 error
}

func (e *AnalysisUnavailableError) Error() string {
	return "analysis unavailable: " + e.Message
}

func (e *AnalysisUnavailableError) Is(target error) bool {
	return target == ErrAnalysisUnavailable
}

func (e *AnalysisUnavailableError) Unwrap() error {
	return e.Err
}

// NonRetryable marks err as terminal for the retry policy.
func NonRetryable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNonRetryableRequest, fmt.Sprintf(format, args...))
}

// IsRetryable reports whether a failed attempt may be tried again.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrNonRetryableRequest), errors.Is(err, ErrConfiguration):
		return false
	case errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

// ErrorKind names the failure class of err for logs, metrics and stored records.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNonRetryableRequest):
		return "non_retryable"
	case errors.Is(err, ErrTargetCrashed):
		return "target_crashed"
	case errors.Is(err, ErrNavigationTimeout):
		return "navigation_timeout"
	case errors.Is(err, ErrRenderFailed):
		return "render_failed"
	case errors.Is(err, ErrAnalysisUnavailable):
		return "analysis_unavailable"
	case errors.Is(err, ErrRunTimeout):
		return "run_timeout"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "unknown"
	}
}
