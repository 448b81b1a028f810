// Package errors defines the error taxonomy shared by the services and the
// HTTP layer. Every failure a caller can observe is an *AppError.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeInvalidParameter = "INVALID_PARAMETER"
	CodeNotFound         = "NOT_FOUND"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeValidation       = "VALIDATION_ERROR"
	CodeCanceled         = "REQUEST_CANCELED"
	CodeInternal         = "INTERNAL_ERROR"
)

var (
	ErrUnauthorized     = NewAppError(CodeUnauthorized, "authentication required", http.StatusUnauthorized)
	ErrInvalidParameter = NewAppError(CodeInvalidParameter, "invalid parameter", http.StatusBadRequest)
	ErrNotFound         = NewAppError(CodeNotFound, "transaction not found", http.StatusNotFound)
	ErrStoreUnavailable = NewAppError(CodeStoreUnavailable, "ledger store unavailable", http.StatusServiceUnavailable)
	ErrValidation       = NewAppError(CodeValidation, "validation failed", http.StatusUnprocessableEntity)
	ErrInternal         = NewAppError(CodeInternal, "internal error", http.StatusInternalServerError)
)

type AppError struct {
	Code       string
	Message    string
	Field      string // offending input field, if any
	StatusCode int
	Err        error
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field %s)", msg, e.Field)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any *AppError carrying the same code, so errors.Is(err, ErrNotFound)
// holds for every not-found error regardless of message or field.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	clone := *e
	clone.Err = err
	return &clone
}

func (e *AppError) WithField(field string) *AppError {
	clone := *e
	clone.Field = field
	return &clone
}

func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func WrapError(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewInvalidParameter reports a malformed or out of range request parameter.
func NewInvalidParameter(field, message string) *AppError {
	e := ErrInvalidParameter.WithField(field)
	e.Message = message
	return e
}

// NewValidationError reports the first business rule a write violated.
func NewValidationError(field, message string) *AppError {
	e := ErrValidation.WithField(field)
	e.Message = message
	return e
}

// NewNotFound is deliberately identical for absent rows and rows owned by someone else.
func NewNotFound() *AppError {
	return ErrNotFound.WithError(nil)
}

func NewStoreUnavailable(err error) *AppError {
	return WrapError(err, CodeStoreUnavailable, "ledger store unavailable", http.StatusServiceUnavailable)
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// FromError maps any error onto the taxonomy. Unknown errors become 500s.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	if errors.Is(err, context.Canceled) {
		return WrapError(err, CodeCanceled, "request canceled by client", http.StatusRequestTimeout)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewStoreUnavailable(err)
	}
	return ErrInternal.WithError(err)
}
