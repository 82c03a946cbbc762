package remote

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidConfig is returned by Config.Validate and New.
	ErrInvalidConfig = errors.New("invalid remote config")

	// ErrUnexpectedStatus is the cause of every ServiceError built from a
	// non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

// ServiceError is returned by every failed call to the remote service.
// StatusCode is 0 when no HTTP response was received.
type ServiceError struct {
	StatusCode int
	Message    string
	Retryable  bool
	Cause      error
}

func (e *ServiceError) Error() string {
	if e.StatusCode == 0 {
		return "remote service unreachable: " + e.Message
	}
	return fmt.Sprintf("remote service error (status %d): %s", e.StatusCode, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// IsNotFound reports whether err is a 404 ServiceError.
func IsNotFound(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// IsRetryable reports whether the remote service marked err as retryable.
func IsRetryable(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Retryable
}

// ErrorCode classifies protocol violations.
type ErrorCode string

const (
	CodeNotImplemented      ErrorCode = "NOT_IMPLEMENTED"
	CodeInvalidResponse     ErrorCode = "INVALID_RESPONSE"
	CodeGenericServiceError ErrorCode = "GENERIC_SERVICE_ERROR"
)

// ProtocolError is a response that is well-formed HTTP but cannot be used.
// Protocol errors are never retried.
type ProtocolError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *ProtocolError) Error() string {
	return string(e.Code) + ": " + e.Message
}

func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

// HasCode reports whether err is a ProtocolError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var pe *ProtocolError
	return errors.As(err, &pe) && pe.Code == code
}

// NotImplemented builds a NOT_IMPLEMENTED protocol error.
func NotImplemented(format string, args ...any) error {
	return newProtocolError(CodeNotImplemented, format, args...)
}

// InvalidResponse builds an INVALID_RESPONSE protocol error.
// A %w verb in format becomes the Cause.
func InvalidResponse(format string, args ...any) error {
	return newProtocolError(CodeInvalidResponse, format, args...)
}

func newProtocolError(code ErrorCode, format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	return &ProtocolError{
		Code:    code,
		Message: err.Error(),
		Cause:   errors.Unwrap(err),
	}
}
