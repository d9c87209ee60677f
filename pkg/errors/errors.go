package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrDatabase            = errors.New("database error")
	ErrCache               = errors.New("cache error")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeDatabaseError       = "DATABASE_ERROR"
	ErrCodeCacheError          = "CACHE_ERROR"
)

func InvalidInput(format string, args ...any) *BusinessError {
	return NewBusinessError(ErrCodeInvalidInput, fmt.Sprintf(format, args...), ErrInvalidInput)
}

func InvalidState(format string, args ...any) *BusinessError {
	return NewBusinessError(ErrCodeInvalidState, fmt.Sprintf(format, args...), ErrInvalidState)
}

// NotFound reports a missing entity, e.g. NotFound("loan", id).
func NotFound(kind string, id any) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("%s with ID %v not found", kind, id),
		ErrNotFound,
	)
}

func ConcurrencyConflict(loanID any) *BusinessError {
	return NewBusinessError(
		ErrCodeConcurrencyConflict,
		fmt.Sprintf("loan %v was modified concurrently", loanID),
		ErrConcurrencyConflict,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		fmt.Errorf("%w: %w", ErrDatabase, err),
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"cache operation failed",
		fmt.Errorf("%w: %w", ErrCache, err),
	)
}

func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }

func IsConcurrencyConflict(err error) bool { return errors.Is(err, ErrConcurrencyConflict) }

// Code returns the BusinessError code carried by err, or "" when err is not one.
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
