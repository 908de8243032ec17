package coordinator

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyRunning = errors.New("a survey of this type is already running")
	ErrNotRunning     = errors.New("no survey of this type is running")
	ErrClosed         = errors.New("coordinator is closed")
)

type ErrorCode string

const (
	CodeInvalidRange  ErrorCode = "INVALID_RANGE"
	CodeInvalidPrefix ErrorCode = "INVALID_PREFIX"
	CodeInvalidPort   ErrorCode = "INVALID_PORT"
)

// ValidationError rejects a start request before any work begins.
type ValidationError struct {
	Code   ErrorCode
	Input  string
	Reason string
}

var (
	ErrInvalidRange  = &ValidationError{Code: CodeInvalidRange}
	ErrInvalidPrefix = &ValidationError{Code: CodeInvalidPrefix}
	ErrInvalidPort   = &ValidationError{Code: CodeInvalidPort}
)

func (e *ValidationError) Error() string {
	if e.Input != "" {
		return fmt.Sprintf("[%s] %s (input: %s)", e.Code, e.Reason, e.Input)
	}
	if e.Reason != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Reason)
	}
	return string(e.Code)
}

// Is matches any ValidationError carrying the same code, so callers can test
// errors.Is(err, ErrInvalidRange).
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Code == e.Code
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func newValidationError(code ErrorCode, input string, reason string) *ValidationError {
	return &ValidationError{
		Code:   code,
		Input:  input,
		Reason: reason,
	}
}
