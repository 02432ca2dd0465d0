package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrRateLimited = errors.New("rate limited")
	ErrInternal    = errors.New("internal error")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// RateLimited returns an AppError carrying the exact budget that was exceeded.
// The message format matches what clients of the original API already parse.
func RateLimited(maxRequests, windowSeconds int) *AppError {
	return &AppError{
		Err: ErrRateLimited,
		Message: fmt.Sprintf("Rate limit exceeded. Maximum %d requests per %d seconds.",
			maxRequests, windowSeconds),
	}
}

// Internal returns an AppError for unexpected server-side faults. The message
// is intentionally generic — the real cause belongs in the logs, not in a
// response to whoever submitted the code.
func Internal(message string) *AppError {
	return &AppError{
		Err:     ErrInternal,
		Message: "Server error: " + message,
	}
}
