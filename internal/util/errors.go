package util

import (
	"errors"
	"fmt"
	"strings"
)

// Common error types for linemill
var (
	// ErrInvalidConfig indicates a configuration error
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInputRoot indicates the input root is missing or not a directory
	ErrInvalidInputRoot = errors.New("invalid input root")

	// ErrOutputNotDirectory indicates the output root exists as something other than a directory
	ErrOutputNotDirectory = errors.New("output root exists and is not a directory")

	// ErrOutputUncreatable indicates the output root could not be created
	ErrOutputUncreatable = errors.New("output root could not be created")

	// ErrDiscovery indicates the input tree could not be walked
	ErrDiscovery = errors.New("input discovery failed")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCancelled indicates an operation was cancelled
	ErrCancelled = errors.New("operation cancelled")
)

// Process exit codes. A run that got past setup always exits with
// ExitOK or ExitTaskFailures; ExitSetupFailure is reserved for runs that
// never started a task.
const (
	ExitOK           = 0
	ExitTaskFailures = 1
	ExitSetupFailure = 2
)

// SetupError is a fatal error raised before any task runs
type SetupError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *SetupError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("setup: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("setup: %s %q: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/As compatibility
func (e *SetupError) Unwrap() error {
	return e.Err
}

// NewSetupError wraps err as a setup failure for op on path
func NewSetupError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &SetupError{Op: op, Path: path, Err: err}
}

// IsSetup reports whether err is (or wraps) a SetupError
func IsSetup(err error) bool {
	var setupErr *SetupError
	return errors.As(err, &setupErr)
}

// TaskError wraps an error with the input the failing task was processing
type TaskError struct {
	Input string
	Err   error
}

// Error implements the error interface
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %q: %v", e.Input, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/As compatibility
func (e *TaskError) Unwrap() error {
	return e.Err
}

// WrapTaskError wraps an error with task context
func WrapTaskError(input string, err error) error {
	if err == nil {
		return nil
	}
	return &TaskError{
		Input: input,
		Err:   err,
	}
}

// MultiError aggregates multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:", len(m.Errors)))
	for i, err := range m.Errors {
		if i < 10 { // Limit to first 10 errors in the message
			sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
		} else if i == 10 {
			sb.WriteString(fmt.Sprintf("\n  ... and %d more errors", len(m.Errors)-10))
			break
		}
	}
	return sb.String()
}

// Unwrap returns the errors for errors.Is/As compatibility
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the multi-error
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// ErrorOrNil returns nil if no errors were added, otherwise returns the MultiError
func (m *MultiError) ErrorOrNil() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	if v.Value != nil {
		return fmt.Sprintf("validation failed for field %q (value: %v): %s", v.Field, v.Value, v.Message)
	}
	return fmt.Sprintf("validation failed for field %q: %s", v.Field, v.Message)
}

// Is lets errors.Is(err, ErrInvalidConfig) match any validation failure
func (v *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCancelled checks if an error is a cancellation error
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// ExitCode maps the error returned by the CLI to a process exit status.
// Errors carrying ExitCoder decide for themselves; everything else that
// reaches main is a setup or usage failure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var coder ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}

	return ExitSetupFailure
}

// ExitCoder is implemented by errors that carry their own exit status
type ExitCoder interface {
	error
	ExitCode() int
}

// FriendlyError converts technical errors to user-friendly messages
func FriendlyError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidInputRoot):
		return "Input directory is missing or is not a directory. Please check the first argument to 'run'."
	case errors.Is(err, ErrOutputNotDirectory):
		return "Output path exists but is not a directory. Choose another output directory or remove the file."
	case errors.Is(err, ErrOutputUncreatable):
		return "Output directory could not be created. Please check permissions on the parent directory."
	case errors.Is(err, ErrInvalidConfig):
		return "Invalid configuration. Please check your config file and command-line flags.\n" + err.Error()
	case IsTimeout(err):
		return "Operation timed out. Please try again or increase the timeout value with --task-timeout flag."
	case IsCancelled(err):
		return "Operation was cancelled."
	default:
		return err.Error()
	}
}
