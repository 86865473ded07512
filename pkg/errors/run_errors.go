package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"slices"
)

// ErrorCode represents specific error types in a test run
type ErrorCode string

const (
	// Configuration errors
	ErrInvalidEnvironment ErrorCode = "INVALID_ENVIRONMENT"

	// Assembly errors
	ErrMalformedCommand ErrorCode = "MALFORMED_COMMAND"

	// Execution errors
	ErrCommandExecution ErrorCode = "COMMAND_EXECUTION_FAILED"
	ErrTestsFailed      ErrorCode = "TESTS_FAILED"
)

// RunError represents a structured error raised while preparing or running tests
type RunError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	ExitCode  int                    `json:"exit_code,omitempty"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (re *RunError) Error() string {
	if re.Cause != nil {
		return fmt.Sprintf("[%s]: %s: %v", re.Code, re.Message, re.Cause)
	}
	return fmt.Sprintf("[%s]: %s", re.Code, re.Message)
}

// Unwrap returns the underlying cause error
func (re *RunError) Unwrap() error {
	return re.Cause
}

// NewRunError creates a new structured run error
func NewRunError(code ErrorCode, message string) *RunError {
	return &RunError{
		Code:      code,
		Message:   message,
		Context:   make(map[string]interface{}),
	}
}

// WithCause adds the underlying cause error
func (re *RunError) WithCause(err error) *RunError {
	re.Cause = err
	return re
}

// WithExitCode records the exit status the process should terminate with
func (re *RunError) WithExitCode(code int) *RunError {
	re.ExitCode = code
	return re
}

// WithContext adds arbitrary context to the error
func (re *RunError) WithContext(key string, value interface{}) *RunError {
	re.Context[key] = value
	return re
}

// Fields returns the context as sorted key-value pairs for structured logging
func (re *RunError) Fields() []interface{} {
	fields := make([]interface{}, 0, 2*len(re.Context))
	for _, k := range slices.Sorted(maps.Keys(re.Context)) {
		fields = append(fields, k, re.Context[k])
	}
	return fields
}

// AsRunError finds the first RunError in err's chain
func AsRunError(err error) (*RunError, bool) {
	var re *RunError
	if stderrors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// HasErrorCode checks if an error has a specific error code
func HasErrorCode(err error, code ErrorCode) bool {
	if re, ok := AsRunError(err); ok {
		return re.Code == code
	}
	return false
}

// WrapError wraps a regular error as a RunError
func WrapError(err error, code ErrorCode, message string) *RunError {
	return NewRunError(code, message).WithCause(err)
}

// ExitCode maps an error to a process exit status. A nil error is 0; a
// RunError carrying a non-zero exit code keeps it; anything else is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if re, ok := AsRunError(err); ok && re.ExitCode != 0 {
		return re.ExitCode
	}
	return 1
}

func NewInvalidEnvironmentError(variable, value string, cause error) *RunError {
	return NewRunError(ErrInvalidEnvironment, "invalid environment").
		WithContext("variable", variable).
		WithContext("value", value).
		WithCause(cause)
}

func NewMalformedCommandError(line string, cause error) *RunError {
	return NewRunError(ErrMalformedCommand, "command line is not valid shell syntax").
		WithContext("command", line).
		WithCause(cause)
}

func NewCommandExecutionError(line string, cause error) *RunError {
	return NewRunError(ErrCommandExecution, "command execution failed").
		WithContext("command", line).
		WithCause(cause)
}

func NewTestsFailedError(line string, exitCode int) *RunError {
	return NewRunError(ErrTestsFailed, fmt.Sprintf("test command exited with status %d", exitCode)).
		WithContext("command", line).
		WithExitCode(exitCode)
}
