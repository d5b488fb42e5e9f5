// Package errors provides a lightweight structured error type (RunnerError)
// for category-based classification of test-run failures and for mapping them
// to CLI exit codes.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorCategory represents the category of a runner error for classification
type ErrorCategory string

const (
	// Lifecycle misuse: an operation ran before its scope existed
	CategoryPrecondition ErrorCategory = "precondition"

	// Local disk and archive errors
	CategoryFileSystem ErrorCategory = "filesystem"

	// LogArea collection and upload errors
	CategoryCollaborator ErrorCategory = "collaborator"

	// Caller supplied hooks (on-create callbacks)
	CategoryCallback ErrorCategory = "callback"

	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Test command execution errors
	CategoryExecution ErrorCategory = "execution"

	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// RunnerError is a structured error with category, retryability, and context
type RunnerError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for RunnerError
type ContextFields map[string]any

// Error implements the error interface
func (e *RunnerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *RunnerError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a RunnerError of the same category and message.
// Context and cause are ignored so that sentinels match enriched copies.
func (e *RunnerError) Is(target error) bool {
	t, ok := target.(*RunnerError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Message == t.Message
}

// WithContext adds context information to the error
func (e *RunnerError) WithContext(key string, value any) *RunnerError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new RunnerError
func New(category ErrorCategory, severity ErrorSeverity, message string) *RunnerError {
	return &RunnerError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new RunnerError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *RunnerError {
	return &RunnerError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// Retryable creates a new retryable RunnerError
func Retryable(category ErrorCategory, severity ErrorSeverity, message string) *RunnerError {
	return &RunnerError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: true,
	}
}

// WrapRetryable creates a new retryable RunnerError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *RunnerError {
	return &RunnerError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// As finds the first RunnerError in err's chain.
func As(err error) (*RunnerError, bool) {
	var re *RunnerError
	if stdErrors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsCategory checks if an error chain contains a RunnerError of the given category
func IsCategory(err error, category ErrorCategory) bool {
	if re, ok := As(err); ok {
		return re.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if re, ok := As(err); ok {
		return re.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a RunnerError
func GetCategory(err error) ErrorCategory {
	if re, ok := As(err); ok {
		return re.Category
	}
	return CategoryInternal
}
