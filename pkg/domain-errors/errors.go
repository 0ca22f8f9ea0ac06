// Package domainerrors provides coded errors shared across all modules.
//
// Services return these so transports can translate failures into stable,
// machine-checkable responses without inspecting error strings. Stores return
// sentinel errors (pkg/platform/sentinel) and services translate them here.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a category of failure.
type Code string

const (
	// CodeValidation marks malformed or semantically invalid input.
	CodeValidation Code = "validation"
	// CodeBadRequest marks requests that cannot be parsed or are missing fields.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound marks a referenced entity that does not exist.
	CodeNotFound Code = "not_found"
	// CodeUnauthorized marks a caller without a valid identity.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks a caller whose role does not permit the operation.
	CodeForbidden Code = "forbidden"
	// CodeConflict marks a uniqueness or concurrent-update conflict.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation marks a state-machine guard violation, such as
	// an invalid status transition. No side effects occurred.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeGenerationFailed marks an artifact generator failure. Nothing was
	// partially persisted.
	CodeGenerationFailed Code = "generation_failed"
	// CodeRateLimited marks a caller that exceeded the request budget.
	CodeRateLimited Code = "rate_limited"
	// CodeTimeout marks an operation aborted by deadline or cancellation.
	CodeTimeout Code = "timeout"
	// CodeInternal marks unexpected infrastructure failures.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. The wrapped cause, if any, is preserved for
// errors.Is / errors.As chains.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or any error it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
		if err == nil {
			return false
		}
	}
	return false
}

// Is is shorthand for HasCode, matching how guards read at call sites.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// Message returns the outermost coded message, or err.Error() when the error
// carries no code.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// ToHTTPStatus maps a code to the HTTP status transports should respond with.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict, CodeInvariantViolation:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeGenerationFailed:
		return http.StatusBadGateway
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
