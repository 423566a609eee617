package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so clones compare equal to their template.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrUnprocessable      = New("VALIDATION_ERROR", http.StatusUnprocessableEntity, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// Plan rejections; Details carries the offending course ids.
	ErrBoundsMismatch      = New("BOUNDS_MISMATCH", http.StatusUnprocessableEntity, "cfu bounds do not match the study plan type")
	ErrCfuSumMismatch      = New("CFU_SUM_MISMATCH", http.StatusUnprocessableEntity, "sum of cfu is not correct")
	ErrCourseNotFound      = New("COURSE_NOT_FOUND", http.StatusNotFound, "course not found")
	ErrIncompatibleCourses = New("INCOMPATIBLE_COURSES", http.StatusBadRequest, "courses are incompatible")
	ErrMissingPrerequisite = New("MISSING_PREREQUISITE", http.StatusBadRequest, "required course missing")
	ErrCourseFull          = New("COURSE_FULL", http.StatusBadRequest, "course is full")

	// Plan lifecycle conflicts.
	ErrPlanExists   = New("PLAN_EXISTS", http.StatusConflict, "Study plan already exists")
	ErrPlanNotFound = New("PLAN_NOT_FOUND", http.StatusNotFound, "Study plan not found")

	// Store-level failures.
	ErrCapacityExceeded = New("STORE_INTEGRITY", http.StatusConflict, "course capacity exceeded at write time")
	ErrBelowZero        = New("STORE_INTEGRITY", http.StatusConflict, "enrollment count would drop below zero")
	ErrStoreIntegrity   = New("STORE_INTEGRITY", http.StatusConflict, "stale snapshot, retry the request")
	ErrStoreUnavailable = New("STORE_UNAVAILABLE", http.StatusServiceUnavailable, "store unavailable")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	clone.Details = nil
	return &clone
}

// WithDetails returns a copy of err carrying the given details.
func WithDetails(err *Error, message string, details map[string]interface{}) *Error {
	clone := Clone(err, message)
	if clone == nil {
		return nil
	}
	clone.Details = details
	return clone
}

// IsStoreIntegrity reports whether err is a write-time constraint violation.
func IsStoreIntegrity(err error) bool {
	return errors.Is(err, ErrStoreIntegrity)
}
